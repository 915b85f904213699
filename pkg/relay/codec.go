package relay

import (
	"encoding/json"
	"reflect"
	"slices"
	"sync"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

// Decoder turns an envelope payload back into an event.
type Decoder func(payload []byte) (dispatcher.Event, error)

// Codecs maps kinds to decoders. Only registered kinds can be received.
type Codecs struct {
	mu       sync.RWMutex
	decoders map[dispatcher.Kind]Decoder
}

func NewCodecs() *Codecs {
	return &Codecs{decoders: make(map[dispatcher.Kind]Decoder)}
}

// Register adds a JSON decoder for T under T's kind. Pointer event types
// decode into a fresh value.
func Register[T dispatcher.Event](c *Codecs) error {
	kind, err := dispatcher.KindOf[T]()
	if err != nil {
		return err
	}

	typ := reflect.TypeFor[T]()
	return c.RegisterFunc(kind, func(payload []byte) (dispatcher.Event, error) {
		if typ.Kind() == reflect.Pointer {
			v := reflect.New(typ.Elem())
			if err := json.Unmarshal(payload, v.Interface()); err != nil {
				return nil, err
			}
			return v.Interface().(dispatcher.Event), nil
		}

		var e T
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	})
}

func (c *Codecs) RegisterFunc(kind dispatcher.Kind, decode Decoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.decoders[kind]; exists {
		return ErrCodecExists.WithDetail("kind", string(kind))
	}
	c.decoders[kind] = decode
	return nil
}

func (c *Codecs) Has(kind dispatcher.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.decoders[kind]
	return ok
}

func (c *Codecs) Kinds() []dispatcher.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]dispatcher.Kind, 0, len(c.decoders))
	for k := range c.decoders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func (c *Codecs) Decode(env *Envelope) (dispatcher.Event, error) {
	c.mu.RLock()
	decode, ok := c.decoders[env.Kind]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrNoCodec.WithDetail("kind", string(env.Kind))
	}

	e, err := decode(env.Payload)
	if err != nil {
		return nil, ErrDecode.WithDetail("kind", string(env.Kind)).WithCause(err)
	}
	return e, nil
}
