package viewer

import "encoding/binary"

// Wire protocol spoken to connected viewers (foxglove.websocket.v1
// subset): JSON text messages for control, binary frames for data.
const Subprotocol = "foxglove.websocket.v1"

// Binary opcodes, server to client.
const opMessageData = 0x01

// serverInfo is sent once per connection, immediately after upgrade.
type serverInfo struct {
	Op                 string   `json:"op"`
	Name               string   `json:"name"`
	Capabilities       []string `json:"capabilities"`
	SupportedEncodings []string `json:"supportedEncodings"`
	SessionID          string   `json:"sessionId"`
}

// advertisement announces channels to a client. New channels are
// advertised to already-connected clients as they appear.
type advertisement struct {
	Op       string    `json:"op"`
	Channels []channel `json:"channels"`
}

type channel struct {
	ID             uint64 `json:"id"`
	Topic          string `json:"topic"`
	Encoding       string `json:"encoding"`
	SchemaName     string `json:"schemaName"`
	Schema         string `json:"schema"`
	SchemaEncoding string `json:"schemaEncoding"`
}

// clientMessage is the union of control messages a viewer may send.
type clientMessage struct {
	Op              string         `json:"op"`
	Subscriptions   []subscription `json:"subscriptions,omitempty"`
	SubscriptionIDs []uint32       `json:"subscriptionIds,omitempty"`
}

type subscription struct {
	ID        uint32 `json:"id"`
	ChannelID uint64 `json:"channelId"`
}

// messageDataFrame builds the binary data frame for one subscription:
// opcode, little-endian subscription id, little-endian receive
// timestamp in nanoseconds, then the raw payload.
func messageDataFrame(subscriptionID uint32, timestampNs uint64, payload []byte) []byte {
	frame := make([]byte, 1+4+8+len(payload))
	frame[0] = opMessageData
	binary.LittleEndian.PutUint32(frame[1:5], subscriptionID)
	binary.LittleEndian.PutUint64(frame[5:13], timestampNs)
	copy(frame[13:], payload)
	return frame
}
