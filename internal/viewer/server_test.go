package viewer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer("127.0.0.1", 0, "mcaplog-test", log.NewLogger())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

type wsFrame struct {
	messageType int
	data        []byte
}

// dialViewer connects a websocket client and pumps incoming frames
// into a channel so tests can wait on them without read deadlines.
func dialViewer(t *testing.T, s *Server) (*websocket.Conn, <-chan wsFrame) {
	t.Helper()

	dialer := websocket.Dialer{
		Subprotocols:     []string{Subprotocol},
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := dialer.Dial(fmt.Sprintf("ws://%s/", s.Addr()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	frames := make(chan wsFrame, 64)
	go func() {
		defer close(frames)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- wsFrame{messageType: messageType, data: data}
		}
	}()
	return conn, frames
}

func nextFrame(t *testing.T, frames <-chan wsFrame) wsFrame {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "connection closed while waiting for a frame")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return wsFrame{}
	}
}

func TestServerHandshake(t *testing.T) {
	s := newTestServer(t)

	chID, err := s.AddChannel("/pose", "json", "pose", []byte(`{"type":"object"}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), chID)

	_, frames := dialViewer(t, s)

	info := nextFrame(t, frames)
	assert.Equal(t, websocket.TextMessage, info.messageType)
	var serverInfoMsg map[string]any
	require.NoError(t, json.Unmarshal(info.data, &serverInfoMsg))
	assert.Equal(t, "serverInfo", serverInfoMsg["op"])
	assert.Equal(t, "mcaplog-test", serverInfoMsg["name"])

	adv := nextFrame(t, frames)
	assert.Equal(t, websocket.TextMessage, adv.messageType)
	var advMsg advertisement
	require.NoError(t, json.Unmarshal(adv.data, &advMsg))
	assert.Equal(t, "advertise", advMsg.Op)
	require.Len(t, advMsg.Channels, 1)
	assert.Equal(t, "/pose", advMsg.Channels[0].Topic)
	assert.Equal(t, "pose", advMsg.Channels[0].SchemaName)
	assert.Equal(t, chID, advMsg.Channels[0].ID)
}

func TestServerBroadcast(t *testing.T) {
	s := newTestServer(t)

	chID, err := s.AddChannel("/pose", "json", "pose", []byte(`{"type":"object"}`))
	require.NoError(t, err)

	conn, frames := dialViewer(t, s)
	nextFrame(t, frames) // serverInfo
	nextFrame(t, frames) // advertise

	const subscriptionID = uint32(7)
	sub := fmt.Sprintf(`{"op":"subscribe","subscriptions":[{"id":%d,"channelId":%d}]}`,
		subscriptionID, chID)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(sub)))

	// Broadcast until the subscription has been processed and a data
	// frame makes it back; pre-subscription frames are simply lost.
	payload := []byte(`{"x":1,"y":2}`)
	var data wsFrame
	deadline := time.After(2 * time.Second)
	for data.data == nil {
		require.NoError(t, s.SendMessage(chID, 42_000_000_000, payload))
		select {
		case f := <-frames:
			if f.messageType == websocket.BinaryMessage {
				data = f
			}
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("no data frame received")
		}
	}

	require.GreaterOrEqual(t, len(data.data), 13)
	assert.EqualValues(t, 0x01, data.data[0])
	assert.Equal(t, subscriptionID, binary.LittleEndian.Uint32(data.data[1:5]))
	assert.Equal(t, uint64(42_000_000_000), binary.LittleEndian.Uint64(data.data[5:13]))
	assert.Equal(t, payload, data.data[13:])
}

func TestServerAdvertisesLateChannels(t *testing.T) {
	s := newTestServer(t)

	_, frames := dialViewer(t, s)
	nextFrame(t, frames) // serverInfo; nothing to advertise yet

	chID, err := s.AddChannel("/imu", "json", "imuSample", []byte(`{"type":"object"}`))
	require.NoError(t, err)

	adv := nextFrame(t, frames)
	var advMsg advertisement
	require.NoError(t, json.Unmarshal(adv.data, &advMsg))
	require.Len(t, advMsg.Channels, 1)
	assert.Equal(t, chID, advMsg.Channels[0].ID)
	assert.Equal(t, "/imu", advMsg.Channels[0].Topic)
}

func TestServerUnsubscribedClientsGetNothing(t *testing.T) {
	s := newTestServer(t)

	chID, err := s.AddChannel("/pose", "json", "pose", []byte(`{}`))
	require.NoError(t, err)

	_, frames := dialViewer(t, s)
	nextFrame(t, frames) // serverInfo
	nextFrame(t, frames) // advertise

	require.NoError(t, s.SendMessage(chID, 1, []byte(`{}`)))

	select {
	case f := <-frames:
		assert.NotEqual(t, websocket.BinaryMessage, f.messageType,
			"client without a subscription must not receive data frames")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestServerStatus(t *testing.T) {
	s := newTestServer(t)

	_, err := s.AddChannel("/pose", "json", "pose", []byte(`{}`))
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/status", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "mcaplog-test", status["service"])

	server, ok := status["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), server["channels"])
}

func TestServerStopDisconnectsClients(t *testing.T) {
	s := newTestServer(t)

	_, frames := dialViewer(t, s)
	nextFrame(t, frames) // serverInfo

	s.Stop()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-frames:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "client connection survived server stop")

	_, err := s.AddChannel("/late", "json", "pose", []byte(`{}`))
	assert.Error(t, err)
	assert.Error(t, s.SendMessage(1, 1, []byte(`{}`)))
}
