package ir

import "fmt"

// Type is an immutable node in a rooted tree of named types. Every type
// except the root ("any") and the disjoint sentinel ("void") has exactly
// one parent. Types are compared by pointer identity within a registry.
type Type struct {
	name     string
	size     int
	integral bool
	parent   *Type
	pointee  *Type
	members  []*Type
	depth    int

	// registryVoid lets LCA resolve the correct disjoint sentinel as a free
	// function without threading a *TypeRegistry through every call.
	registryVoid *Type
}

// Name returns the type's registered base name.
func (t *Type) Name() string { return t.name }

// Size returns the type's representation size in bytes.
func (t *Type) Size() int { return t.size }

// IsIntegral reports whether the type is treated as an integral value.
func (t *Type) IsIntegral() bool { return t.integral }

// Parent returns the type's parent, or nil if it is a root ("any" or "void").
func (t *Type) Parent() *Type { return t.parent }

// Dereference returns the pointee type if this is a pointer type, else nil.
func (t *Type) Dereference() *Type { return t.pointee }

// Members returns the ordered member types of a compound type (nil if none).
func (t *Type) Members() []*Type { return t.members }

// Depth returns the number of parent hops from this type to its root.
func (t *Type) Depth() int { return t.depth }

// IndirectionLevel returns how many times this type must be dereferenced to
// reach a non-pointer type.
func (t *Type) IndirectionLevel() int {
	level := 0
	for cur := t; cur.pointee != nil; cur = cur.pointee {
		level++
	}
	return level
}

func (t *Type) String() string { return t.name }

// LCA computes the least common ancestor of a and b by equalizing depths and
// then walking both towards the root in lockstep. It returns the registry's
// Void type if the walk escapes the tree (the types share no ancestor).
func LCA(a, b *Type) *Type {
	if a == b {
		return a
	}
	void := a.void()
	for a.depth > b.depth {
		if a.parent == nil {
			return void
		}
		a = a.parent
	}
	for b.depth > a.depth {
		if b.parent == nil {
			return void
		}
		b = b.parent
	}
	for a != b {
		if a.parent == nil || b.parent == nil {
			return void
		}
		a = a.parent
		b = b.parent
	}
	return a
}

// void walks to this type's registry-assigned Void sentinel. Every type
// created by a TypeRegistry carries a back-pointer to that registry's Void
// instance so LCA can be a free function instead of a registry method.
func (t *Type) void() *Type {
	return t.registryVoid
}

// TypeRegistry hash-conses types by name within one program. Two types from
// different registries must never be compared.
type TypeRegistry struct {
	any         *Type
	void        *Type
	byName      map[string]*Type
	pointerSize int
	pointers    map[*Type]*Type
}

// NewTypeRegistry creates a registry seeded with the root "any" type and the
// disjoint "void" sentinel. pointerSize is the size, in bytes, synthesized
// pointer types report.
func NewTypeRegistry(pointerSize int) *TypeRegistry {
	r := &TypeRegistry{
		byName:      make(map[string]*Type),
		pointers:    make(map[*Type]*Type),
		pointerSize: pointerSize,
	}
	r.any = &Type{name: "any", integral: false, depth: 0}
	r.void = &Type{name: "void", integral: false, depth: 0}
	r.any.registryVoid = r.void
	r.void.registryVoid = r.void
	r.byName["any"] = r.any
	r.byName["void"] = r.void
	return r
}

// Any returns the registry's root type.
func (r *TypeRegistry) Any() *Type { return r.any }

// Void returns the registry's disjoint sentinel type.
func (r *TypeRegistry) Void() *Type { return r.void }

// Lookup returns a previously registered type by name.
func (r *TypeRegistry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// RegisterPrimitive registers a new named scalar type. A nil parent defaults
// to the registry's "any" root.
func (r *TypeRegistry) RegisterPrimitive(name string, size int, integral bool, parent *Type) *Type {
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("ir: type %q already registered", name))
	}
	if parent == nil {
		parent = r.any
	}
	t := &Type{
		name:         name,
		size:         size,
		integral:     integral,
		parent:       parent,
		depth:        parent.depth + 1,
		registryVoid: r.void,
	}
	r.byName[name] = t
	return t
}

// RegisterCompound registers a named struct-like type with an ordered member
// list. It is a programmer error (and aborts the process, per the core's
// error model for assertion-level invariants) to register a compound type
// whose declared size cannot hold the sum of its members' sizes.
func (r *TypeRegistry) RegisterCompound(name string, members []*Type, size int, parent *Type) *Type {
	sum := 0
	for _, m := range members {
		sum += m.size
	}
	if sum > size {
		panic(fmt.Sprintf("ir: compound type %q declares size %d but members need %d", name, size, sum))
	}
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("ir: type %q already registered", name))
	}
	if parent == nil {
		parent = r.any
	}
	cp := make([]*Type, len(members))
	copy(cp, members)
	t := &Type{
		name:         name,
		size:         size,
		integral:     false,
		parent:       parent,
		depth:        parent.depth + 1,
		members:      cp,
		registryVoid: r.void,
	}
	r.byName[name] = t
	return t
}

// Pointer lazily synthesizes (and memoizes) the pointer-to-pointee type.
// Pointer types always parent directly off "any" and are always integral.
func (r *TypeRegistry) Pointer(pointee *Type) *Type {
	if existing, ok := r.pointers[pointee]; ok {
		return existing
	}
	t := &Type{
		name:         "ptr<" + pointee.name + ">",
		size:         r.pointerSize,
		integral:     true,
		parent:       r.any,
		pointee:      pointee,
		depth:        r.any.depth + 1,
		registryVoid: r.void,
	}
	r.pointers[pointee] = t
	return t
}
