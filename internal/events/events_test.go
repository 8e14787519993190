package events

import (
	"context"
	"testing"
	"time"
)

func TestDialWithoutURLIsNop(t *testing.T) {
	p, err := Dial("", "")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, ok := p.(Nop); !ok {
		t.Fatalf("expected Nop publisher, got %T", p)
	}
	if err := p.Publish(context.Background(), New(OrderPlaced, time.Now(), nil)); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, typ := range []string{OrderPlaced, OrderApproved} {
		if err := r.Publish(context.Background(), New(typ, at, map[string]string{"order_id": "o1"})); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	types := r.Types()
	if len(types) != 2 || types[0] != OrderPlaced || types[1] != OrderApproved {
		t.Errorf("types = %v", types)
	}
	evs := r.Events()
	if evs[0].ID == "" || evs[0].ID == evs[1].ID {
		t.Errorf("expected distinct event ids, got %q and %q", evs[0].ID, evs[1].ID)
	}
	if evs[0].Source != "academy" || !evs[0].OccurredAt.Equal(at) {
		t.Errorf("unexpected envelope %+v", evs[0])
	}
}
