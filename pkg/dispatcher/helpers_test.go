package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEvent struct {
	Message string
}

func (testEvent) Kind() Kind { return "test.event" }

type otherEvent struct {
	Value int
}

func (otherEvent) Kind() Kind { return "test.other" }

type subscriber struct {
	name string
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) handler(label string) Handler {
	return func(_ context.Context, _ Event) error {
		r.add(label)
		return nil
	}
}

type faultRecorder struct {
	mu     sync.Mutex
	faults []Fault
}

func (f *faultRecorder) HandleFault(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault)
}

func (f *faultRecorder) snapshot() []Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Fault, len(f.faults))
	copy(out, f.faults)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	d := New(opts...)
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return d
}
