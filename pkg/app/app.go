package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type app struct {
	container       contracts.DIContainer
	registry        contracts.AppRegistry
	info            Info
	parent          context.Context
	handleSignals   bool
	shutdownTimeout time.Duration

	appCtxMu  sync.RWMutex
	appCtx    *appContext
	isRunning atomic.Bool
}

func (a *app) Register(module contracts.AppModule) error {
	return a.registry.Register(module)
}

func (a *app) currentContext() *appContext {
	a.appCtxMu.RLock()
	defer a.appCtxMu.RUnlock()
	return a.appCtx
}

// Run registers and starts every module, blocks until the app context is
// stopped (by a module, a signal or the parent context) and then shuts the
// modules down in reverse order.
func (a *app) Run() error {
	if !a.isRunning.CompareAndSwap(false, true) {
		return ErrAppRun.WithDetail("reason", "application is already running")
	}
	defer a.isRunning.Store(false)

	ctx := newAppContext(a.parent, a.info, a.container)
	a.appCtxMu.Lock()
	a.appCtx = ctx
	a.appCtxMu.Unlock()

	for _, module := range a.registry.All() {
		if err := module.Register(a.container); err != nil {
			ctx.Stop()
			return ErrModuleRegister.
				WithDetail("module", module.Name()).
				WithCause(err)
		}
	}

	started := 0
	for _, module := range a.registry.All() {
		if err := module.Start(ctx); err != nil {
			ctx.Stop()
			a.shutdownStarted(ctx, started)
			return ErrModuleStart.
				WithDetail("module", module.Name()).
				WithCause(err)
		}
		started++
	}

	if a.handleSignals {
		go setupSignalHandler(ctx)
	}

	<-ctx.Ctx().Done()
	ctx.Stop()

	return a.shutdown(ctx)
}

func (a *app) shutdown(ctx *appContext) error {
	if a.shutdownTimeout <= 0 {
		return a.registry.Shutdown(ctx)
	}

	timer := time.NewTimer(a.shutdownTimeout)
	defer timer.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.registry.Shutdown(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		return ErrAppStop.WithDetail("reason", "graceful shutdown timed out after "+a.shutdownTimeout.String())
	}
}

func (a *app) shutdownStarted(appCtx contracts.AppContext, startedModulesCount int) {
	modules := a.registry.All()
	for i := startedModulesCount - 1; i >= 0; i-- {
		_ = modules[i].Stop(appCtx)
	}
}

func setupSignalHandler(ctx contracts.AppContext) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		ctx.Stop()
	case <-ctx.Ctx().Done():
	}
}
