package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"serenote/internal/domain"
)

// Sink persists journal entries.
type Sink interface {
	AppendEvent(ctx context.Context, e domain.Event) (int64, error)
}

type Writer struct {
	Sink Sink
	Now  func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, evtType, messageID, actorID string, payload EventPayload) (domain.Event, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	e := domain.Event{
		TS:        w.Now().UTC().Format(time.RFC3339),
		Type:      evtType,
		MessageID: messageID,
		ActorID:   actorID,
		Payload:   string(data),
	}
	id, err := w.Sink.AppendEvent(ctx, e)
	if err != nil {
		return domain.Event{}, fmt.Errorf("append %s event: %w", evtType, err)
	}
	e.ID = id
	return e, nil
}
