// mcaplog-demo publishes synthetic cart-pole telemetry until
// interrupted, exercising the console, container and viewer sinks.
// Connect a viewer to the reported address to watch the stream live.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcaplog/internal/config"
	"mcaplog/internal/core"
	"mcaplog/internal/schema"
	"mcaplog/internal/service"
	"mcaplog/internal/version"
)

type cartState struct {
	Position            float64 `json:"position"`
	Velocity            float64 `json:"velocity"`
	PoleAngle           float64 `json:"pole_angle"`
	PoleAngularVelocity float64 `json:"pole_angular_velocity"`
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tel, err := service.New(cfg.ServiceOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start telemetry: %v\n", err)
		os.Exit(1)
	}

	tel.Info(fmt.Sprintf("mcaplog-demo %s starting", version.String()), core.ThisOrNow())
	tel.Info(fmt.Sprintf("viewer listening on %s", tel.ViewerAddr()), core.ThisOrNow())
	if cfg.Path != "" {
		tel.Info(fmt.Sprintf("recording to %s", cfg.Path), core.ThisOrNow())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for running := true; running; {
		select {
		case sig := <-sigChan:
			tel.Info(fmt.Sprintf("received %v, shutting down", sig), core.ThisOrNow())
			running = false

		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			state := cartState{
				Position:            math.Sin(t / 2),
				Velocity:            math.Cos(t/2) / 2,
				PoleAngle:           0.3 * math.Sin(2*t),
				PoleAngularVelocity: 0.6 * math.Cos(2*t),
			}
			if err := tel.Publish("/cartpole/state", schema.Wrap(state), core.ThisOrNow()); err != nil {
				fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
				running = false
			}
		}
	}

	if err := tel.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
}
