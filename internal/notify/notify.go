// Package notify encodes run summaries into the message shape shared by every
// publisher backend.
package notify

import (
	"encoding/json"
	"fmt"
)

// Message attribute keys.
const (
	AttrType  = "type"
	AttrRunID = "run_id"
	AttrState = "state"
)

// TypeRunSummary tags every message produced by Encode.
const TypeRunSummary = "run-summary"

// Message is an encoded payload with routing attributes.
type Message struct {
	Data       []byte
	Attributes map[string]string
}

// Attributer is implemented by payloads that carry their own routing attributes.
type Attributer interface {
	MessageAttributes() map[string]string
}

// Encode marshals payload to JSON and collects its attributes.
func Encode(payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	attrs := map[string]string{AttrType: TypeRunSummary}
	if a, ok := payload.(Attributer); ok {
		for k, v := range a.MessageAttributes() {
			if v != "" && k != AttrType {
				attrs[k] = v
			}
		}
	}
	return Message{Data: data, Attributes: attrs}, nil
}
