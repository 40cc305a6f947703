package semantic

// FuncClass distinguishes how a built-in function is evaluated.
type FuncClass int

const (
	ClassScalar FuncClass = iota
	ClassAggregate
	ClassWindow
)

// Signature describes one built-in function.
type Signature struct {
	Name  string
	Arity int
	Class FuncClass
}

// Registry is a table of built-in function signatures. It is constructed up
// front and handed to Resolve; the resolver never consults ambient state,
// and the table is not mutated after construction.
type Registry struct {
	sigs map[string]Signature
}

// NewRegistry builds a registry from the given signatures.
func NewRegistry(sigs ...Signature) *Registry {
	reg := &Registry{sigs: make(map[string]Signature, len(sigs))}
	for _, s := range sigs {
		reg.sigs[s.Name] = s
	}
	return reg
}

// Lookup returns the signature registered under a name.
func (reg *Registry) Lookup(name string) (Signature, bool) {
	sig, ok := reg.sigs[name]
	return sig, ok
}

// DefaultRegistry returns the standard built-in functions.
func DefaultRegistry() *Registry {
	return NewRegistry(
		// Aggregates.
		Signature{Name: "sum", Arity: 1, Class: ClassAggregate},
		Signature{Name: "average", Arity: 1, Class: ClassAggregate},
		Signature{Name: "count", Arity: 1, Class: ClassAggregate},
		Signature{Name: "min", Arity: 1, Class: ClassAggregate},
		Signature{Name: "max", Arity: 1, Class: ClassAggregate},
		Signature{Name: "stddev", Arity: 1, Class: ClassAggregate},

		// Scalars.
		Signature{Name: "abs", Arity: 1, Class: ClassScalar},
		Signature{Name: "floor", Arity: 1, Class: ClassScalar},
		Signature{Name: "ceil", Arity: 1, Class: ClassScalar},
		Signature{Name: "round", Arity: 2, Class: ClassScalar},
		Signature{Name: "sqrt", Arity: 1, Class: ClassScalar},
		Signature{Name: "ln", Arity: 1, Class: ClassScalar},
		Signature{Name: "log10", Arity: 1, Class: ClassScalar},
		Signature{Name: "lower", Arity: 1, Class: ClassScalar},
		Signature{Name: "upper", Arity: 1, Class: ClassScalar},
		Signature{Name: "length", Arity: 1, Class: ClassScalar},
		Signature{Name: "trim", Arity: 1, Class: ClassScalar},

		// Window functions.
		Signature{Name: "row_number", Arity: 0, Class: ClassWindow},
		Signature{Name: "rank", Arity: 0, Class: ClassWindow},
		Signature{Name: "lag", Arity: 1, Class: ClassWindow},
		Signature{Name: "lead", Arity: 1, Class: ClassWindow},
	)
}
