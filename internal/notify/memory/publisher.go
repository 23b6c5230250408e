// Package memory keeps encoded run summaries in process, for tests and dry runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JakeFAU/knowledgesync/internal/notify"
)

// Publisher records every message it is asked to send.
type Publisher struct {
	mu       sync.RWMutex
	messages []notify.Message
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes payload the way the Pub/Sub backend does and keeps it.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	msg, err := notify.Encode(payload)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return fmt.Sprintf("memory-%d", len(p.messages)), nil
}

// Messages returns a copy of the recorded messages.
func (p *Publisher) Messages() []notify.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]notify.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Decode unmarshals the i-th recorded message into v.
func (p *Publisher) Decode(i int, v any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.messages) {
		return fmt.Errorf("no message at index %d (have %d)", i, len(p.messages))
	}
	return json.Unmarshal(p.messages[i].Data, v)
}
