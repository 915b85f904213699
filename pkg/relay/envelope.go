package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

// Envelope is the wire form of a relayed event.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    dispatcher.Kind `json:"kind"`
	Origin  string          `json:"origin"`
	PostID  string          `json:"post_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

func newEnvelope(ctx context.Context, origin string, e dispatcher.Event) (*Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, ErrEncode.WithDetail("kind", string(e.Kind())).WithCause(err)
	}
	return &Envelope{
		ID:      uuid.NewString(),
		Kind:    e.Kind(),
		Origin:  origin,
		PostID:  dispatcher.PostID(ctx),
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}, nil
}

type envelopeKey struct{}

func withEnvelope(ctx context.Context, env *Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey{}, env)
}

// FromRelay returns the envelope an event arrived in when the handler's
// context comes from a relayed post.
func FromRelay(ctx context.Context) (*Envelope, bool) {
	env, ok := ctx.Value(envelopeKey{}).(*Envelope)
	return env, ok
}
