package app

import "github.com/shuldan/dispatch/pkg/errors"

var newAppCode = errors.WithPrefix("APP")
var newRegistryCode = errors.WithPrefix("APP_REGISTRY")
var newContainerCode = errors.WithPrefix("APP_CONTAINER")

var (
	ErrModuleRegister = newAppCode().New("failed to register module {{.module}}")
	ErrModuleStart    = newAppCode().New("failed to start module {{.module}}")
	ErrAppRun         = newAppCode().New("application run failed with reason: {{.reason}}")
	ErrAppStop        = newAppCode().New("application stop failed with reason: {{.reason}}")

	ErrModuleStop      = newRegistryCode().New("failed to stop module {{.module}}")
	ErrDuplicateModule = newRegistryCode().New("module {{.module}} already registered")

	ErrCircularDep       = newContainerCode().New("circular dependency detected for {{.name}}")
	ErrValueNotFound     = newContainerCode().New("value not found for {{.name}}")
	ErrDuplicateInstance = newContainerCode().New("instance already exists for {{.name}}")
	ErrDuplicateFactory  = newContainerCode().New("factory already registered for {{.name}}")
	ErrInvalidInstance   = newContainerCode().New("instance {{.name}} has an unexpected type")
)
