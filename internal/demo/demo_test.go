package demo

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shuldan/dispatch/pkg/dispatcher"
)

func newDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d := dispatcher.New()
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestButton_ClickPostsBFMV(t *testing.T) {
	d := newDispatcher(t)
	var calls atomic.Int32
	var got atomic.Value

	_, err := dispatcher.On(d, t, func(_ context.Context, e ButtonFirstEvent) error {
		calls.Add(1)
		got.Store(e.Message)
		return nil
	})
	if err != nil {
		t.Fatalf("On failed: %v", err)
	}

	if err := NewButton(d).Click(context.Background()); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected exactly one delivery, got %d", calls.Load())
	}
	if got.Load() != "BFMV" {
		t.Errorf("unexpected payload %v", got.Load())
	}
}

func TestButton_ClickWithoutSubscribers(t *testing.T) {
	d := newDispatcher(t)
	if err := NewButton(d).Click(context.Background()); err != nil {
		t.Errorf("click with no panels should succeed: %v", err)
	}
}

func TestActivity_BothPanelsReceiveClick(t *testing.T) {
	d := newDispatcher(t)
	a := NewActivity(d, nil)

	if err := a.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := a.Click(context.Background()); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.WaitFor(ctx, 1); err != nil {
		t.Fatalf("panels did not receive the click: %v", err)
	}

	for _, p := range a.Panels() {
		if got := p.Messages(); !slices.Equal(got, []string{ButtonMessage}) {
			t.Errorf("panel %s got %v", p.Name(), got)
		}
	}

	var buf bytes.Buffer
	if err := a.Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[first@main] #1 BFMV") || !strings.Contains(out, "[second@background] #1 BFMV") {
		t.Errorf("unexpected render output:\n%s", out)
	}
}

func TestActivity_StopDetachesPanels(t *testing.T) {
	d := newDispatcher(t)
	a := NewActivity(d, nil, WithPanelContexts(dispatcher.Posting, dispatcher.Posting))

	if err := a.Stop(); !errors.Is(err, ErrNotCreated) {
		t.Errorf("expected ErrNotCreated, got %v", err)
	}
	_ = a.Create()
	if err := a.Create(); !errors.Is(err, ErrAlreadyCreated) {
		t.Errorf("expected ErrAlreadyCreated, got %v", err)
	}

	_ = a.Click(context.Background())
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	_ = a.Click(context.Background())

	if d.HasSubscribers(KindButtonFirst) {
		t.Error("panels are still subscribed after Stop")
	}
	for _, p := range a.Panels() {
		if n := len(p.Messages()); n != 1 {
			t.Errorf("panel %s got %d messages, want 1", p.Name(), n)
		}
	}
}

func TestPanel_WaitForTimesOut(t *testing.T) {
	p := NewPanel("lonely", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.WaitFor(ctx, 1)
	if !errors.Is(err, ErrPanelTimeout) {
		t.Errorf("expected ErrPanelTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout should wrap the context error, got %v", err)
	}

	var buf bytes.Buffer
	_ = p.Render(&buf)
	if buf.String() != "[lonely@posting] (empty)\n" {
		t.Errorf("unexpected empty render %q", buf.String())
	}
}

func TestActivity_EchoPrintsEachMessage(t *testing.T) {
	d := newDispatcher(t)
	var buf bytes.Buffer
	a := NewActivity(d, nil,
		WithPanelContexts(dispatcher.Posting, dispatcher.Posting),
		WithEcho(&buf),
	)
	_ = a.Create()
	defer func() { _ = a.Stop() }()

	_ = a.Click(context.Background())
	_ = a.Click(context.Background())

	want := "[first@posting] #1 BFMV\n[second@posting] #1 BFMV\n" +
		"[first@posting] #2 BFMV\n[second@posting] #2 BFMV\n"
	if buf.String() != want {
		t.Errorf("echo output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
