package schema

import (
	"mcaplog/internal/core"
)

// Registration is the sink-local handle for a registered topic. A topic
// maps to exactly one type name for the lifetime of its sink.
type Registration struct {
	TypeName  string
	ChannelID uint64
}

// Registrar is the registration surface a sink exposes to its registry.
// AddChannel is called exactly once per topic, on first resolution.
type Registrar interface {
	AddChannel(topic, encoding, schemaName string, schemaBody []byte) (uint64, error)
}

// Registry caches topic registrations for one sink. It is not
// synchronized: each sink's registry is mutated only by that sink's
// owning goroutine.
type Registry struct {
	byTopic map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{byTopic: make(map[string]Registration)}
}

// Resolve returns the registration for topic, registering the channel
// on first use. A repeated resolution with the same type is idempotent
// and performs no registrar call; a different type is a conflict.
func (r *Registry) Resolve(reg Registrar, topic string, msg Message) (Registration, error) {
	desc := msg.Descriptor()

	if cached, ok := r.byTopic[topic]; ok {
		if cached.TypeName != desc.Name {
			return Registration{}, &core.ConflictError{
				Topic:      topic,
				Registered: cached.TypeName,
				Requested:  desc.Name,
			}
		}
		return cached, nil
	}

	channelID, err := reg.AddChannel(topic, core.MessageEncoding, desc.Name, desc.Data)
	if err != nil {
		return Registration{}, err
	}

	cached := Registration{TypeName: desc.Name, ChannelID: channelID}
	r.byTopic[topic] = cached
	return cached, nil
}

// Len returns the number of registered topics.
func (r *Registry) Len() int {
	return len(r.byTopic)
}
