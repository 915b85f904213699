package demo

import "github.com/shuldan/dispatch/pkg/errors"

var newDemoCode = errors.WithPrefix("DEMO")

var (
	ErrPanelTimeout   = newDemoCode().New("panel {{.panel}} received {{.got}} of {{.want}} messages")
	ErrNotCreated     = newDemoCode().New("activity has not been created")
	ErrAlreadyCreated = newDemoCode().New("activity is already created")
)
