package demo

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

// Panel is a display surface that shows every button message it receives.
type Panel struct {
	name    string
	context dispatcher.ContextName

	mu       sync.Mutex
	messages []string
	changed  chan struct{}
	echo     func(p *Panel, n int, msg string)
}

func NewPanel(name string, on dispatcher.ContextName) *Panel {
	if on == "" {
		on = dispatcher.Posting
	}
	return &Panel{name: name, context: on, changed: make(chan struct{})}
}

func (p *Panel) Name() string { return p.name }

func (p *Panel) Context() dispatcher.ContextName { return p.context }

// Attach subscribes the panel to button events on its execution context.
func (p *Panel) Attach(d *dispatcher.Dispatcher) error {
	_, err := dispatcher.On(d, p, p.onButtonFirst,
		dispatcher.OnContext(p.context),
		dispatcher.WithName(p.name),
	)
	return err
}

func (p *Panel) Detach(d *dispatcher.Dispatcher) {
	d.Unregister(p)
}

func (p *Panel) onButtonFirst(_ context.Context, e ButtonFirstEvent) error {
	p.mu.Lock()
	p.messages = append(p.messages, e.Message)
	n := len(p.messages)
	echo := p.echo
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()

	if echo != nil {
		echo(p, n, e.Message)
	}
	return nil
}

// OnMessage sets a callback run after each message is recorded, on the
// panel's execution context.
func (p *Panel) OnMessage(fn func(p *Panel, n int, msg string)) {
	p.mu.Lock()
	p.echo = fn
	p.mu.Unlock()
}

func (p *Panel) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages)
}

// WaitFor blocks until the panel has received at least n messages.
func (p *Panel) WaitFor(ctx context.Context, n int) error {
	for {
		p.mu.Lock()
		got := len(p.messages)
		changed := p.changed
		p.mu.Unlock()

		if got >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrPanelTimeout.
				WithDetail("panel", p.name).
				WithDetail("want", n).
				WithDetail("got", got).
				WithCause(ctx.Err())
		case <-changed:
		}
	}
}

func (p *Panel) Render(w io.Writer) error {
	messages := p.Messages()
	if len(messages) == 0 {
		_, err := fmt.Fprintf(w, "[%s@%s] (empty)\n", p.name, p.context)
		return err
	}
	for i, m := range messages {
		if err := p.RenderLine(w, i+1, m); err != nil {
			return err
		}
	}
	return nil
}

// RenderLine writes the n-th message the way Render does.
func (p *Panel) RenderLine(w io.Writer, n int, msg string) error {
	_, err := fmt.Fprintf(w, "[%s@%s] #%d %s\n", p.name, p.context, n, msg)
	return err
}
