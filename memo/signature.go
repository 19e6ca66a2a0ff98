package memo

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind classifies a parameter of a batched function.
type Kind int

const (
	// KindAuto leaves classification to WithBatchArgs; unlisted parameters
	// are scalar.
	KindAuto Kind = iota
	// KindBatch marks a parameter holding one element per batch item.
	KindBatch
	// KindScalar marks a parameter shared by every batch item.
	KindScalar
)

// Param describes one declared parameter.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
	Kind       Kind
}

// Required declares a parameter without a default.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// AsBatch marks the parameter as a batch parameter.
func (p Param) AsBatch() Param {
	p.Kind = KindBatch
	return p
}

// AsScalar marks the parameter as shared across batch items.
func (p Param) AsScalar() Param {
	p.Kind = KindScalar
	return p
}

// Signature is the declared parameter list of a memoized function.
type Signature struct {
	params []Param
	index  map[string]int
}

// NewSignature validates params and builds a Signature. Names must be
// non-empty and unique.
func NewSignature(params ...Param) (Signature, error) {
	index := make(map[string]int, len(params))
	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return Signature{}, &BindError{Reason: fmt.Sprintf("parameter %d has an empty name", i)}
		}
		if _, dup := index[p.Name]; dup {
			return Signature{}, &BindError{Parameter: p.Name, Reason: "declared more than once"}
		}
		index[p.Name] = i
	}
	return Signature{params: slices.Clone(params), index: index}, nil
}

// MustSignature is like NewSignature but panics on error. Intended for
// package-level declarations.
func MustSignature(params ...Param) Signature {
	sig, err := NewSignature(params...)
	if err != nil {
		panic(err)
	}
	return sig
}

// Params returns the declared parameters in declaration order.
func (s Signature) Params() []Param {
	return slices.Clone(s.params)
}

// Lookup returns the named parameter.
func (s Signature) Lookup(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// Bind maps args onto the declared parameters and applies defaults.
func (s Signature) Bind(args Args) (Bound, error) {
	if len(args.Positional) > len(s.params) {
		return Bound{}, &BindError{Reason: fmt.Sprintf("takes %d positional arguments but %d were given", len(s.params), len(args.Positional))}
	}

	values := make(map[string]any, len(s.params))
	for i, v := range args.Positional {
		values[s.params[i].Name] = v
	}
	for name, v := range args.Keyword {
		if _, ok := s.index[name]; !ok {
			return Bound{}, &BindError{Parameter: name, Reason: "unexpected keyword argument"}
		}
		if _, dup := values[name]; dup {
			return Bound{}, &BindError{Parameter: name, Reason: "multiple values for argument"}
		}
		values[name] = v
	}
	for _, p := range s.params {
		if _, ok := values[p.Name]; ok {
			continue
		}
		if !p.HasDefault {
			return Bound{}, &BindError{Parameter: p.Name, Reason: "missing required argument"}
		}
		values[p.Name] = p.Default
	}
	return newBound(values), nil
}

// Args holds the raw arguments of one call.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Call builds Args from positional values.
func Call(positional ...any) Args {
	return Args{Positional: positional}
}

// Kw builds keyword-only Args from alternating name, value pairs.
func Kw(pairs ...any) Args {
	if len(pairs)%2 != 0 {
		panic("memo: Kw requires name/value pairs")
	}
	kw := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("memo: Kw name at position %d is %T, want string", i, pairs[i]))
		}
		kw[name] = pairs[i+1]
	}
	return Args{Keyword: kw}
}

// With returns a copy of a with a keyword argument added.
func (a Args) With(name string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	maps.Copy(kw, a.Keyword)
	kw[name] = value
	return Args{Positional: a.Positional, Keyword: kw}
}

// Bound is a call bound to a signature, one value per declared parameter.
type Bound struct {
	values map[string]any
	names  []string
}

func newBound(values map[string]any) Bound {
	return Bound{values: values, names: slices.Sorted(maps.Keys(values))}
}

// Get returns the value bound to name.
func (b Bound) Get(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names returns the bound parameter names sorted by name.
func (b Bound) Names() []string {
	return slices.Clone(b.names)
}

// Len returns the number of bound parameters.
func (b Bound) Len() int {
	return len(b.names)
}

// Args converts the bound call back to keyword-only Args.
func (b Bound) Args() Args {
	return Args{Keyword: maps.Clone(b.values)}
}

// Arg returns the value bound to name as a T.
func Arg[T any](b Bound, name string) (T, error) {
	var zero T
	v, ok := b.values[name]
	if !ok {
		return zero, &BindError{Parameter: name, Reason: "not bound"}
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrArgType, name, v, zero)
	}
	return t, nil
}

// MustArg is like Arg but panics on error.
func MustArg[T any](b Bound, name string) T {
	t, err := Arg[T](b, name)
	if err != nil {
		panic(err)
	}
	return t
}
