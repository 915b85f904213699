package demo

import (
	"context"
	"io"
	"sync"

	"github.com/shuldan/dispatch/pkg/contracts"
	"github.com/shuldan/dispatch/pkg/dispatcher"
	"github.com/shuldan/dispatch/pkg/logger"
)

const (
	FirstPanelName  = "first"
	SecondPanelName = "second"
)

type ActivityOption func(*Activity)

// WithPanelContexts chooses the execution contexts of the two panels.
func WithPanelContexts(first, second dispatcher.ContextName) ActivityOption {
	return func(a *Activity) {
		a.first = NewPanel(FirstPanelName, first)
		a.second = NewPanel(SecondPanelName, second)
	}
}

// WithEcho prints every message to w as a panel receives it. Writes from
// the two panels are serialized.
func WithEcho(w io.Writer) ActivityOption {
	return func(a *Activity) {
		a.echo = w
	}
}

// Activity is the screen: two panels and the button that feeds them.
type Activity struct {
	d      *dispatcher.Dispatcher
	logger contracts.Logger
	button *Button
	first  *Panel
	second *Panel

	echo    io.Writer
	echoMu  sync.Mutex
	mu      sync.Mutex
	created bool
}

// NewActivity places the first panel on the main context and the second on
// the background context unless WithPanelContexts says otherwise.
func NewActivity(d *dispatcher.Dispatcher, log contracts.Logger, opts ...ActivityOption) *Activity {
	if log == nil {
		log = logger.NewNop()
	}
	a := &Activity{
		d:      d,
		logger: log,
		button: NewButton(d),
		first:  NewPanel(FirstPanelName, dispatcher.Main),
		second: NewPanel(SecondPanelName, dispatcher.Background),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.echo != nil {
		for _, p := range a.Panels() {
			p.OnMessage(a.echoLine)
		}
	}
	return a
}

func (a *Activity) echoLine(p *Panel, n int, msg string) {
	a.echoMu.Lock()
	defer a.echoMu.Unlock()
	if err := p.RenderLine(a.echo, n, msg); err != nil {
		a.logger.Warn("echo failed", "panel", p.Name(), "error", err)
	}
}

// Create attaches both panels. Clicks before Create reach nobody.
func (a *Activity) Create() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.created {
		return ErrAlreadyCreated
	}

	if err := a.first.Attach(a.d); err != nil {
		return err
	}
	if err := a.second.Attach(a.d); err != nil {
		a.first.Detach(a.d)
		return err
	}
	a.created = true
	a.logger.Debug("activity created",
		"first", string(a.first.Context()), "second", string(a.second.Context()))
	return nil
}

func (a *Activity) Click(ctx context.Context) error {
	return a.button.Click(ctx)
}

// WaitFor blocks until both panels have shown n messages.
func (a *Activity) WaitFor(ctx context.Context, n int) error {
	if err := a.first.WaitFor(ctx, n); err != nil {
		return err
	}
	return a.second.WaitFor(ctx, n)
}

func (a *Activity) Render(w io.Writer) error {
	if err := a.first.Render(w); err != nil {
		return err
	}
	return a.second.Render(w)
}

func (a *Activity) Panels() []*Panel {
	return []*Panel{a.first, a.second}
}

// Stop detaches both panels.
func (a *Activity) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.created {
		return ErrNotCreated
	}
	a.first.Detach(a.d)
	a.second.Detach(a.d)
	a.created = false
	a.logger.Debug("activity stopped")
	return nil
}
