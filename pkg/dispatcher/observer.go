package dispatcher

import (
	"context"
	"time"
)

// Observer is told about every post, successful delivery and fault. Calls
// happen on the delivering goroutine, so implementations must be cheap and
// safe for concurrent use.
type Observer interface {
	Posted(ctx context.Context, e Event, matched int)
	Delivered(ctx context.Context, e Event, sub *Subscription, elapsed time.Duration)
	Faulted(f Fault)
}

type nopObserver struct{}

func (nopObserver) Posted(context.Context, Event, int)                             {}
func (nopObserver) Delivered(context.Context, Event, *Subscription, time.Duration) {}
func (nopObserver) Faulted(Fault)                                                  {}

type observers []Observer

func (o observers) Posted(ctx context.Context, e Event, matched int) {
	for _, obs := range o {
		obs.Posted(ctx, e, matched)
	}
}

func (o observers) Delivered(ctx context.Context, e Event, sub *Subscription, elapsed time.Duration) {
	for _, obs := range o {
		obs.Delivered(ctx, e, sub, elapsed)
	}
}

func (o observers) Faulted(f Fault) {
	for _, obs := range o {
		obs.Faulted(f)
	}
}
