package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/knowledgesync/internal/notify"
)

func TestPublisherRecordsEncodedMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), map[string]string{"run_id": "r1"})
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), map[string]string{"run_id": "r2"})
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Attributes[notify.AttrType] != notify.TypeRunSummary {
		t.Fatalf("expected run-summary type, got %v", msgs[0].Attributes)
	}
	msgs[1].Data = nil
	if pub.Messages()[1].Data == nil {
		t.Fatal("expected Messages() to return a copy")
	}

	var decoded map[string]string
	if err := pub.Decode(1, &decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded["run_id"] != "r2" {
		t.Fatalf("unexpected decoded payload %v", decoded)
	}
	if err := pub.Decode(5, &decoded); err == nil {
		t.Fatal("expected error for out of range index")
	}
}

func TestPublisherRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	if _, err := New().Publish(context.Background(), func() {}); err == nil {
		t.Fatal("expected encode error")
	}
	if n := len(New().Messages()); n != 0 {
		t.Fatalf("expected no messages, got %d", n)
	}
}
