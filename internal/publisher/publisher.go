// Package publisher encodes task events for message transports. Trace
// context travels in message attributes so consumers can continue the span.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
)

// Message is an encoded event ready for a transport.
type Message struct {
	Topic      string
	Data       []byte
	Attributes map[string]string
}

// Encode marshals payload to JSON and injects the current trace context.
func Encode(ctx context.Context, topic string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	attrs := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, Carrier(attrs))
	return Message{Topic: topic, Data: data, Attributes: attrs}, nil
}

// Carrier adapts message attributes to propagation.TextMapCarrier.
type Carrier map[string]string

// Get returns the attribute value for key.
func (c Carrier) Get(key string) string {
	return c[key]
}

// Set stores an attribute.
func (c Carrier) Set(key, value string) {
	c[key] = value
}

// Keys lists attribute names.
func (c Carrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Nop drops every event. It backs the "none" events provider.
type Nop struct{}

// Publish discards the payload.
func (Nop) Publish(context.Context, string, any) (string, error) {
	return "", nil
}
