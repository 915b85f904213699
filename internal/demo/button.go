package demo

import (
	"context"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

// Poster is the part of the dispatcher a button needs.
type Poster interface {
	Post(ctx context.Context, e dispatcher.Event) error
}

type Button struct {
	poster  Poster
	message string
}

func NewButton(poster Poster) *Button {
	return &Button{poster: poster, message: ButtonMessage}
}

// Click posts exactly one ButtonFirstEvent.
func (b *Button) Click(ctx context.Context) error {
	return b.poster.Post(ctx, ButtonFirstEvent{Message: b.message})
}
