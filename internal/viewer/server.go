package viewer

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mcaplog/internal/version"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// Server hosts the live visualization endpoint. It advertises channels
// to connected viewers and broadcasts data frames to subscribers. There
// is no backlog: messages sent before a viewer connects are gone.
type Server struct {
	host string
	port int
	name string

	server *fasthttp.Server
	ln     net.Listener

	// Channel registrations, written by the owning network worker and
	// read by connection handlers.
	mu          sync.RWMutex
	channels    map[uint64]channel
	nextChannel uint64

	clientsMu sync.RWMutex
	clients   map[string]*client

	logger   *log.Logger
	dropWarn *rate.Limiter

	startTime     time.Time
	totalSent     atomic.Uint64
	totalDropped  atomic.Uint64
	activeClients atomic.Int64
	done          chan struct{}
	wg            sync.WaitGroup
}

// frame is one outbound websocket message for a single client.
type frame struct {
	text bool
	data []byte
}

type client struct {
	id   string
	out  chan frame
	done chan struct{}

	subMu sync.Mutex
	subs  map[uint64]uint32 // channel id -> client-chosen subscription id
}

const clientBuffer = 256

func NewServer(host string, port int, name string, logger *log.Logger) *Server {
	return &Server{
		host:      host,
		port:      port,
		name:      name,
		channels:  make(map[uint64]channel),
		clients:   make(map[string]*client),
		logger:    logger,
		dropWarn:  rate.NewLimiter(rate.Every(time.Second), 1),
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Start binds the listen socket and begins serving. The actual address
// is available via Addr afterwards, which matters when port 0 is used.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.ln = ln

	s.server = &fasthttp.Server{
		Name:             fmt.Sprintf("%s/%s", s.name, version.Short()),
		Handler:          s.requestHandler,
		DisableKeepalive: false,
		Logger:           compat.NewFastHTTPAdapter(s.logger),
	}

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(50 * time.Millisecond):
	}

	s.logger.Info("msg", "Viewer server started",
		"component", "viewer",
		"addr", ln.Addr().String(),
		"name", s.name)
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// AddChannel registers a topic and advertises it to every connected
// viewer. Returns the channel identifier used in subsequent sends.
func (s *Server) AddChannel(topic, encoding, schemaName string, schemaBody []byte) (uint64, error) {
	select {
	case <-s.done:
		return 0, fmt.Errorf("viewer server is stopped")
	default:
	}

	s.mu.Lock()
	s.nextChannel++
	ch := channel{
		ID:             s.nextChannel,
		Topic:          topic,
		Encoding:       encoding,
		SchemaName:     schemaName,
		Schema:         string(schemaBody),
		SchemaEncoding: "jsonschema",
	}
	s.channels[ch.ID] = ch
	s.mu.Unlock()

	s.logger.Debug("msg", "Channel registered",
		"component", "viewer",
		"channel_id", ch.ID,
		"topic", topic,
		"type", schemaName)

	data, err := json.Marshal(advertisement{Op: "advertise", Channels: []channel{ch}})
	if err != nil {
		return 0, fmt.Errorf("encode advertisement: %w", err)
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.enqueue(frame{text: true, data: data})
	}
	s.clientsMu.RUnlock()

	return ch.ID, nil
}

// SendMessage broadcasts one data frame to every viewer subscribed to
// the channel. Slow viewers drop frames rather than stalling the
// worker; the warning is throttled so a stuck viewer cannot flood the
// diagnostic log.
func (s *Server) SendMessage(channelID uint64, timestampNs uint64, payload []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("viewer server is stopped")
	default:
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.subMu.Lock()
		subID, ok := c.subs[channelID]
		c.subMu.Unlock()
		if !ok {
			continue
		}

		if c.enqueue(frame{data: messageDataFrame(subID, timestampNs, payload)}) {
			s.totalSent.Add(1)
		} else {
			s.totalDropped.Add(1)
			if s.dropWarn.Allow() {
				s.logger.Warn("msg", "Dropped frame for slow viewer",
					"component", "viewer",
					"client_id", c.id,
					"channel_id", channelID)
			}
		}
	}
	s.clientsMu.RUnlock()

	return nil
}

// Stop shuts the server down and disconnects all viewers.
func (s *Server) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	if s.server != nil {
		s.server.Shutdown()
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()

	s.clientsMu.Lock()
	s.clients = make(map[string]*client)
	s.clientsMu.Unlock()

	s.logger.Info("msg", "Viewer server stopped", "component", "viewer")
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/status":
		s.handleStatus(ctx)
	case "/":
		s.handleViewer(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]any{"error": "Not Found"})
	}
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	s.mu.RLock()
	channelCount := len(s.channels)
	s.mu.RUnlock()

	status := map[string]any{
		"service": s.name,
		"version": version.Short(),
		"server": map[string]any{
			"active_clients": s.activeClients.Load(),
			"channels":       channelCount,
			"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		},
		"statistics": map[string]any{
			"frames_sent":    s.totalSent.Load(),
			"frames_dropped": s.totalDropped.Load(),
		},
	}

	ctx.SetContentType("application/json")
	data, _ := json.Marshal(status)
	ctx.SetBody(data)
}

var upgrader = websocket.FastHTTPUpgrader{
	Subprotocols: []string{Subprotocol},
	CheckOrigin:  func(ctx *fasthttp.RequestCtx) bool { return true },
}

func (s *Server) handleViewer(ctx *fasthttp.RequestCtx) {
	err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		s.serveClient(conn)
	})
	if err != nil {
		s.logger.Warn("msg", "Websocket upgrade failed",
			"component", "viewer",
			"remote_addr", ctx.RemoteAddr().String(),
			"error", err)
	}
}

func (s *Server) serveClient(conn *websocket.Conn) {
	c := &client{
		id:   uuid.NewString(),
		out:  make(chan frame, clientBuffer),
		done: make(chan struct{}),
		subs: make(map[uint64]uint32),
	}

	info, _ := json.Marshal(serverInfo{
		Op:                 "serverInfo",
		Name:               s.name,
		Capabilities:       []string{},
		SupportedEncodings: []string{"json"},
		SessionID:          c.id,
	})
	c.enqueue(frame{text: true, data: info})

	// Advertise everything known so far; later channels arrive through
	// the broadcast path in AddChannel.
	s.mu.RLock()
	known := make([]channel, 0, len(s.channels))
	for _, ch := range s.channels {
		known = append(known, ch)
	}
	s.mu.RUnlock()
	if len(known) > 0 {
		adv, _ := json.Marshal(advertisement{Op: "advertise", Channels: known})
		c.enqueue(frame{text: true, data: adv})
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	count := s.activeClients.Add(1)
	s.logger.Debug("msg", "Viewer connected",
		"component", "viewer",
		"client_id", c.id,
		"remote_addr", conn.RemoteAddr().String(),
		"active_clients", count)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.done)
		conn.Close()

		count := s.activeClients.Add(-1)
		s.logger.Debug("msg", "Viewer disconnected",
			"component", "viewer",
			"client_id", c.id,
			"active_clients", count)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		writePump(conn, c, s.done)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := s.handleClientMessage(c, data); err != nil {
			s.logger.Warn("msg", "Bad viewer message",
				"component", "viewer",
				"client_id", c.id,
				"error", err)
		}
	}
}

func (s *Server) handleClientMessage(c *client, data []byte) error {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode client message: %w", err)
	}

	switch msg.Op {
	case "subscribe":
		c.subMu.Lock()
		for _, sub := range msg.Subscriptions {
			c.subs[sub.ChannelID] = sub.ID
		}
		c.subMu.Unlock()

	case "unsubscribe":
		c.subMu.Lock()
		for _, subID := range msg.SubscriptionIDs {
			for chID, id := range c.subs {
				if id == subID {
					delete(c.subs, chID)
				}
			}
		}
		c.subMu.Unlock()

	default:
		return fmt.Errorf("unsupported op %q", msg.Op)
	}
	return nil
}

// enqueue offers a frame to the client without blocking. Reports false
// when the client's buffer is full.
func (c *client) enqueue(f frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- f:
		return true
	default:
		return false
	}
}

func writePump(conn *websocket.Conn, c *client, serverDone <-chan struct{}) {
	for {
		select {
		case f := <-c.out:
			msgType := websocket.BinaryMessage
			if f.text {
				msgType = websocket.TextMessage
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(msgType, f.data); err != nil {
				conn.Close()
				return
			}

		case <-c.done:
			return

		case <-serverDone:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			conn.Close()
			return
		}
	}
}
