package contracts

import (
	"context"
	"time"
)

const (
	ConfigModuleName     = "config"
	LoggerModuleName     = "logger"
	DispatcherModuleName = "dispatcher"
	BrokerModuleName     = "broker"
	RelayModuleName      = "relay"
	JournalModuleName    = "journal"
	CliModuleName        = "cli"
)

type DIContainer interface {
	Has(name string) bool
	Instance(name string, concrete any) error
	Factory(name string, factory func(c DIContainer) (any, error)) error
	Resolve(name string) (any, error)
}

type AppContext interface {
	Ctx() context.Context
	Container() DIContainer
	AppName() string
	Version() string
	Environment() string
	StartTime() time.Time
	StopTime() time.Time
	IsRunning() bool
	Stop()
}

type AppModule interface {
	Name() string
	Register(container DIContainer) error
	Start(ctx AppContext) error
	Stop(ctx AppContext) error
}

type AppRegistry interface {
	Register(module AppModule) error
	All() []AppModule
	Shutdown(ctx AppContext) error
}

type App interface {
	Register(module AppModule) error
	Run() error
}
