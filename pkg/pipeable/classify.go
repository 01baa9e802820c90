// Package pipeable recognizes chains of instance-style stream operator calls
// and synthesizes the edits that turn them into a single composed pipe call.
package pipeable

import (
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Classifier decides whether expressions and calls are stream-typed.
// Unresolved types are never streams.
type Classifier struct {
	oracle  typecheck.Oracle
	streams map[string]struct{}
}

// NewClassifier returns a Classifier over the given stream type names. When
// streamTypes is empty the default catalogue is used.
func NewClassifier(oracle typecheck.Oracle, streamTypes []string) *Classifier {
	if len(streamTypes) == 0 {
		streamTypes = typecheck.DefaultStreamTypes
	}

	return &Classifier{oracle: oracle, streams: typecheck.Set(streamTypes...)}
}

// IsStreamType reports whether typ or one of its supertypes is a stream type.
func (c *Classifier) IsStreamType(typ typecheck.Type) bool {
	return typ.Is(c.streams)
}

// IsStream reports whether the expression is stream-typed.
func (c *Classifier) IsStream(expr tsast.NodeID) bool {
	return c.IsStreamType(c.oracle.TypeOf(expr))
}

// CallReturnsStream reports whether the call's result is stream-typed.
func (c *Classifier) CallReturnsStream(call tsast.NodeID) bool {
	return c.IsStreamType(c.oracle.ReturnTypeOf(call))
}
