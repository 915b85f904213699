package cli

import (
	"slices"
	"strings"
	"sync"

	"github.com/shuldan/dispatch/pkg/contracts"
)

const defaultGroup = "general"

// cmdRegistry keeps commands in registration order; Groups sorts them by
// name for help output.
type cmdRegistry struct {
	mu       sync.RWMutex
	commands []contracts.CliCommand
	byName   map[string]contracts.CliCommand
}

func NewRegistry() contracts.CliRegistry {
	return &cmdRegistry{byName: make(map[string]contracts.CliCommand)}
}

func (r *cmdRegistry) Register(command contracts.CliCommand) error {
	if command == nil {
		return ErrCommandRegistration.WithDetail("command", "nil")
	}
	name := command.Name()
	if strings.TrimSpace(name) == "" {
		return ErrCommandRegistration.WithDetail("command", "empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return ErrCommandRegistration.WithDetail("command", name).WithDetail("reason", "already registered")
	}
	r.byName[name] = command
	r.commands = append(r.commands, command)
	return nil
}

func (r *cmdRegistry) Get(name string) (contracts.CliCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	command, exists := r.byName[name]
	return command, exists
}

// Groups buckets commands by Group(); an empty group becomes "general".
func (r *cmdRegistry) Groups() map[string][]contracts.CliCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]contracts.CliCommand)
	for _, command := range r.commands {
		group := command.Group()
		if group == "" {
			group = defaultGroup
		}
		result[group] = append(result[group], command)
	}
	for _, commands := range result {
		slices.SortFunc(commands, func(a, b contracts.CliCommand) int {
			return strings.Compare(a.Name(), b.Name())
		})
	}
	return result
}
