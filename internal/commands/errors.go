package commands

import "github.com/shuldan/dispatch/pkg/errors"

var newCommandsCode = errors.WithPrefix("COMMANDS")

var (
	ErrInvalidCount    = newCommandsCode().New("-n must be at least 1, got {{.n}}")
	ErrInvalidLimit    = newCommandsCode().New("-limit must be at least 1, got {{.limit}}")
	ErrInvalidInterval = newCommandsCode().New("-every must not be negative, got {{.every}}")
	ErrJournalDisabled = newCommandsCode().New("journal is disabled; set journal.enabled")

	ErrUnknownConfigKey = newCommandsCode().New("configuration has no key {{.key}}")
)
