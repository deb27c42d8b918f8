// Package symboltable implements the interpreter's global bindings table:
// an ordered, insertion-keyed mapping from a monotonically increasing u64
// id to an object.Object, also searchable by name (spec.md §3).
package symboltable

import "langvm/internal/object"

// SymbolTable is shared between the compiler (which declares globals and
// reads them back during name resolution) and the VM (which mutates their
// Value in place on SetGlobal). Every global declared by the compiler
// keeps the same id for the lifetime of the interpreter.
type SymbolTable struct {
	data    map[uint64]*object.Object
	lastIdx uint64
}

func New() *SymbolTable {
	return &SymbolTable{data: make(map[uint64]*object.Object)}
}

// Insert assigns a fresh id (last_idx+1), sets obj's Name/ID to it if obj
// is provided, or creates a Value::None placeholder otherwise, and returns
// the assigned id.
func (st *SymbolTable) Insert(name string, obj *object.Object) uint64 {
	st.lastIdx++
	id := st.lastIdx
	if obj != nil {
		obj.ID = id
		obj.Name = name
		st.data[id] = obj
	} else {
		placeholder := object.NewWithID(id, name, object.None())
		st.data[id] = &placeholder
	}
	return id
}

// Set overwrites the binding at id in place.
func (st *SymbolTable) Set(id uint64, obj object.Object) {
	st.data[id] = &obj
}

// Get returns the object bound to id, or false if no such id exists.
func (st *SymbolTable) Get(id uint64) (*object.Object, bool) {
	obj, ok := st.data[id]
	return obj, ok
}

// Contains reports whether id is bound.
func (st *SymbolTable) Contains(id uint64) bool {
	_, ok := st.data[id]
	return ok
}

// ContainsName reports whether any binding has the given name.
func (st *SymbolTable) ContainsName(name string) bool {
	_, ok := st.GetIndex(name)
	return ok
}

func (st *SymbolTable) findByName(name string) (*object.Object, uint64) {
	// The table is small (one entry per global/def in the program); a
	// linear scan is acceptable, matching the Rust original's
	// symbol_table.rs get_index.
	for id, obj := range st.data {
		if obj.Name == name {
			return obj, id
		}
	}
	return nil, 0
}

// GetIndex finds the id whose bound object's name matches name. ok is
// false if no such binding exists. Ids are assigned starting at 1, so 0
// unambiguously means "not found".
func (st *SymbolTable) GetIndex(name string) (uint64, bool) {
	_, id := st.findByName(name)
	return id, id != 0
}

// Clear removes every binding.
func (st *SymbolTable) Clear() {
	st.data = make(map[uint64]*object.Object)
}

// Len reports the number of bindings, used by tracing to dump globals.
func (st *SymbolTable) Len() int { return len(st.data) }

// Each calls fn for every (id, object) binding in insertion (ascending id)
// order.
func (st *SymbolTable) Each(fn func(id uint64, obj *object.Object)) {
	for id := uint64(1); id <= st.lastIdx; id++ {
		if obj, ok := st.data[id]; ok {
			fn(id, obj)
		}
	}
}
