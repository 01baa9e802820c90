package pipeable

import (
	"maps"
	"slices"
)

// Defaults for OperatorConfig.
const (
	DefaultComposeName    = "pipe"
	DefaultClassReference = "Observable"
)

// OperatorConfig binds a rule to a module and the operators it migrates. It
// is built once and never modified.
type OperatorConfig struct {
	operators      map[string]struct{}
	Module         string
	ComposeName    string
	ClassReference string
}

// NewOperatorConfig returns a configuration with the default compose name
// and class reference.
func NewOperatorConfig(module string, operators ...string) OperatorConfig {
	set := make(map[string]struct{}, len(operators))
	for _, op := range operators {
		set[op] = struct{}{}
	}

	return OperatorConfig{
		Module:         module,
		ComposeName:    DefaultComposeName,
		ClassReference: DefaultClassReference,
		operators:      set,
	}
}

// Has reports whether name is a configured operator.
func (c OperatorConfig) Has(name string) bool {
	_, ok := c.operators[name]

	return ok
}

// Operators returns the configured operator names, sorted.
func (c OperatorConfig) Operators() []string {
	return slices.Sorted(maps.Keys(c.operators))
}
