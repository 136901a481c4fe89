package engine

import "fmt"

// ArrayKind distinguishes a fixed-length run of primitives from one whose
// length is tied to another field's runtime value.
type ArrayKind int

const (
	ArrayFixed ArrayKind = iota
	ArrayDynamic
)

// Array is a field's declared shape: either PrimitiveArray(T, n) — a
// fixed run of n elements of primitive type T — or
// DynamicArray(SizeOf(id)) — a run whose byte length is resolved at
// concretization time as the length of the byte blob stored under id in
// the program's byte heap. See spec.md §3.
type Array struct {
	Kind ArrayKind

	// Fixed
	Elem  PrimitiveType
	Count int

	// Dynamic
	SizeOf Identifier

	// resolvedLen is set only for fixed arrays, where it equals
	// Count*Elem.Width(). Concretize does not modify the Array of a
	// dynamic field; its resolved length lives in the ConcreteField.
	resolvedLen int
	resolved    bool
}

// PrimitiveArray builds a fixed-length array field shape.
func PrimitiveArray(elem PrimitiveType, n int) Array {
	return Array{Kind: ArrayFixed, Elem: elem, Count: n, resolvedLen: n * elem.Width(), resolved: true}
}

// DynamicArray builds a shape whose byte length is resolved at
// concretization time from the byte blob stored under sizeOf.
func DynamicArray(sizeOf Identifier) Array {
	return Array{Kind: ArrayDynamic, SizeOf: sizeOf}
}

// Len returns the array's byte length. Fixed arrays are always resolved;
// a dynamic array always reports (0, false), and its length is found in
// the ConcreteField that Concretize produces.
func (a Array) Len() (int, bool) {
	return a.resolvedLen, a.resolved
}

// Field is (name, dtype); field names are unique within a Format and
// their ordering in Format.Fields determines on-wire byte order.
type Field struct {
	Name  Identifier
	DType Array
}

// Format is an ordered sequence of fields. An abstract format may
// contain DynamicArray fields whose size cannot yet be evaluated; a
// concrete format is one in which every field has known length and
// offset.
type Format struct {
	Name   Identifier
	Fields []Field
}

// GetDynamicArrays returns the byte-heap identifiers (each field's
// SizeOf) that must hold a resolved blob before this abstract format can
// be concretized — not the field names themselves, since Concretize
// matches dynamic fields against the supplied DynLens by SizeOf.
func (f Format) GetDynamicArrays() []Identifier {
	var ids []Identifier
	for _, field := range f.Fields {
		if field.DType.Kind == ArrayDynamic && !field.DType.resolved {
			ids = append(ids, field.DType.SizeOf)
		}
	}
	return ids
}

// DynLen supplies the resolved byte length for one dynamic field, as
// produced by inspecting the byte blob stored at that identifier in the
// program's byte heap.
type DynLen struct {
	ID  Identifier
	Len int
}

// ConcreteField is a field together with its resolved offset and length
// in the message buffer.
type ConcreteField struct {
	Name   Identifier
	Elem   PrimitiveType
	Offset int
	Length int
}

// ConcreteFormat is a Format in which every field has a known byte
// length and byte offset, computed left to right over Fields in
// declaration order.
type ConcreteFormat struct {
	Name     Identifier
	Fields   []ConcreteField
	byName   map[Identifier]ConcreteField
	TotalLen int
}

// FieldByName returns the concrete layout of a single field.
func (cf ConcreteFormat) FieldByName(id Identifier) (ConcreteField, error) {
	f, ok := cf.byName[id]
	if !ok {
		return ConcreteField{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	return f, nil
}

// Concretize replaces each DynamicArray's symbolic size with the
// supplied length and computes left-to-right offsets, per spec.md §4.2.
// Concretizing an abstract format requires, for every DynamicArray
// field, an entry in lens with a matching ID.
func (f Format) Concretize(lens []DynLen) (ConcreteFormat, error) {
	lenByID := make(map[Identifier]int, len(lens))
	for _, l := range lens {
		lenByID[l.ID] = l.Len
	}

	cf := ConcreteFormat{
		Name:   f.Name,
		Fields: make([]ConcreteField, 0, len(f.Fields)),
		byName: make(map[Identifier]ConcreteField, len(f.Fields)),
	}

	offset := 0
	for _, field := range f.Fields {
		var length int
		switch field.DType.Kind {
		case ArrayFixed:
			length = field.DType.Count * field.DType.Elem.Width()
		case ArrayDynamic:
			resolved, ok := lenByID[field.DType.SizeOf]
			if !ok {
				return ConcreteFormat{}, fmt.Errorf("%w: %s", ErrDynamicSizeMissing, field.DType.SizeOf)
			}
			length = resolved
		}

		cfield := ConcreteField{
			Name:   field.Name,
			Elem:   field.DType.Elem,
			Offset: offset,
			Length: length,
		}
		cf.Fields = append(cf.Fields, cfield)
		cf.byName[field.Name] = cfield
		offset += length
	}
	cf.TotalLen = offset
	return cf, nil
}
