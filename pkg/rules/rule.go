// Package rules provides the migration rules that drive chain recognition
// and edit synthesis for one file at a time.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// ErrUnknownRule is returned when a rule name is not registered.
var ErrUnknownRule = errors.New("unknown rule")

// Metadata describes a rule.
type Metadata struct {
	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type"        yaml:"type"`
	Module      string `json:"module"      yaml:"module"`
}

// Rule analyzes one parsed file. Analyze is pure: it never mutates the tree
// and returns violations whose edits are sorted and validated.
type Rule interface {
	Metadata() Metadata
	Analyze(tree *tsast.Tree, oracle typecheck.Oracle) []pipeable.Violation
}

// Options are shared by every rule.
type Options struct {
	Logger      *slog.Logger
	StreamTypes []string
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

// Registry holds rules in registration order.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule, replacing any rule with the same name.
func (r *Registry) Register(rule Rule) {
	name := rule.Metadata().Name
	if _, ok := r.rules[name]; !ok {
		r.order = append(r.order, name)
	}

	r.rules[name] = rule
}

// Get returns the rule with the given name.
func (r *Registry) Get(name string) (Rule, error) {
	rule, ok := r.rules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}

	return rule, nil
}

// Names returns rule names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// All returns every rule in registration order.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.rules[name])
	}

	return out
}

// Select returns the named rules in registration order. An empty selection
// returns every rule.
func (r *Registry) Select(names []string) ([]Rule, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	for _, name := range names {
		if _, ok := r.rules[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, name)
		}
	}

	out := make([]Rule, 0, len(names))

	for _, name := range r.order {
		if slices.Contains(names, name) {
			out = append(out, r.rules[name])
		}
	}

	return out, nil
}

// Default returns the registry of built-in rules. Chained pipes run last so
// they merge the pipes the operator rules create in the same pass.
func Default(opts Options) *Registry {
	reg := NewRegistry()
	reg.Register(NewEffectsOperators(opts))
	reg.Register(NewStoreOperators(opts))
	reg.Register(NewChainedPipes(opts))

	return reg
}
