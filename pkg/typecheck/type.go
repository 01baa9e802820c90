// Package typecheck answers type questions about TypeScript expressions.
//
// The Resolver is a per-file heuristic oracle: it follows declarations,
// annotations, class fields, constructor parameter properties, imports, local
// class heritage and a catalogue of stream-returning functions and methods.
// Anything it cannot prove resolves to the unknown type.
package typecheck

import (
	"slices"

	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

// Origin records where a type name is bound in the file.
type Origin uint8

// Type origins.
const (
	// OriginAmbient names are not bound in the file and match by name.
	OriginAmbient Origin = iota
	// OriginLibrary names are imported from a stream module.
	OriginLibrary
	// OriginLocal names are declared in the file.
	OriginLocal
	// OriginForeign names are imported from any other module.
	OriginForeign
)

// Type is a resolved nominal type. The zero value is the unknown type.
type Type struct {
	// Name is the type's own name without type arguments. For imports it is
	// the exported name, not the local alias.
	Name string
	// Supers lists the supertypes reached through local classes that are
	// ambient or library names, nearest first.
	Supers []string
	// Module is the import source of Name, if any.
	Module string
	Origin Origin
}

// Unknown is the type of expressions the oracle cannot resolve.
var Unknown = Type{}

// Known reports whether the type was resolved.
func (t Type) Known() bool {
	return t.Name != ""
}

// IsArray reports whether the type is an array type.
func (t Type) IsArray() bool {
	return t.Name == "Array" || t.Name == "ReadonlyArray"
}

// Is reports whether the type or any of its supertypes is in names. Local
// and foreign types never match by their own name.
func (t Type) Is(names map[string]struct{}) bool {
	if !t.Known() || t.IsArray() {
		return false
	}

	if t.Origin == OriginAmbient || t.Origin == OriginLibrary {
		if _, ok := names[t.Name]; ok {
			return true
		}
	}

	return slices.ContainsFunc(t.Supers, func(s string) bool {
		_, ok := names[s]

		return ok
	})
}

// String returns the type name, or "unknown".
func (t Type) String() string {
	if !t.Known() {
		return "unknown"
	}

	return t.Name
}

// Oracle resolves expression and call result types within one tree.
type Oracle interface {
	TypeOf(expr tsast.NodeID) Type
	ReturnTypeOf(call tsast.NodeID) Type
}

// Options configures the heuristic resolver.
type Options struct {
	// StreamTypes names the reactive stream types.
	StreamTypes []string
	// CreationFunctions are free functions that return a stream.
	CreationFunctions []string
	// StreamMethods are methods that return a stream when called on one.
	StreamMethods []string
	// StreamModules are import source prefixes whose exports are trusted
	// to be the stream library's own types.
	StreamModules []string
}

// Default catalogues.
var (
	DefaultStreamTypes = []string{
		"Observable", "Subject", "BehaviorSubject", "ReplaySubject", "AsyncSubject",
		"ConnectableObservable", "GroupedObservable", "Actions", "Store",
	}

	DefaultStreamModules = []string{"rxjs", "@ngrx/"}

	DefaultCreationFunctions = []string{
		"of", "from", "interval", "timer", "merge", "combineLatest", "forkJoin",
		"concat", "zip", "race", "defer", "throwError", "fromEvent", "fromPromise",
		"empty", "never", "range", "iif", "using",
	}

	DefaultStreamMethods = []string{
		"pipe", "ofType", "select", "let", "asObservable",
		"map", "mapTo", "filter", "switchMap", "switchMapTo", "mergeMap", "mergeMapTo",
		"concatMap", "concatMapTo", "exhaustMap", "flatMap", "do", "tap", "catch",
		"catchError", "finally", "finalize", "take", "takeUntil", "takeWhile", "skip",
		"skipUntil", "skipWhile", "first", "last", "debounceTime", "debounce",
		"throttleTime", "throttle", "auditTime", "sampleTime", "delay", "timeout",
		"distinctUntilChanged", "distinct", "withLatestFrom", "combineLatest", "startWith",
		"scan", "reduce", "share", "shareReplay", "publishReplay", "refCount", "retry",
		"retryWhen", "buffer", "bufferTime", "toArray", "pluck", "partition", "groupBy",
		"zip", "concat", "merge", "race", "defaultIfEmpty", "isEmpty", "count", "every",
		"elementAt", "ignoreElements", "materialize", "dematerialize", "observeOn",
		"subscribeOn", "switch", "mergeAll", "concatAll", "exhaust", "pairwise", "window",
	}
)

// DefaultOptions returns the built-in RxJS and NgRx catalogues.
func DefaultOptions() Options {
	return Options{
		StreamTypes:       slices.Clone(DefaultStreamTypes),
		CreationFunctions: slices.Clone(DefaultCreationFunctions),
		StreamMethods:     slices.Clone(DefaultStreamMethods),
		StreamModules:     slices.Clone(DefaultStreamModules),
	}
}

// Set builds a lookup set from names.
func Set(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}

	return out
}
