// Package storage models abstract storage locations: declared
// variables and parameters, and the projections (fields, indices,
// validity bits) that can be taken on them.
package storage

import (
	"fmt"

	"github.com/saruga/netir-defuse/internal/ast"
)

// Storage is an opaque descriptor for a declared variable or
// parameter. Two Storage values for the same declaration compare
// equal, so they can be used as map keys.
type Storage struct {
	decl ast.Ref
	typ  ast.Type
}

// NewStorage builds a Storage for decl of the given type.
func NewStorage(decl ast.Ref, typ ast.Type) Storage {
	return Storage{decl: decl, typ: typ}
}

// Declaration returns the declaration this storage was created for.
func (s Storage) Declaration() ast.Ref { return s.decl }

// Type returns the storage's declared type.
func (s Storage) Type() ast.Type { return s.typ }

func (s Storage) String() string { return s.decl.Name }

// Location identifies one projection of a Storage: the whole object,
// a named field, a constant array index, the last-written-index
// pseudo-field of a stack, or the validity bit of a header.
type Location struct {
	Base  Storage
	Field string // non-empty for a field or pseudo-field projection
	Index int    // meaningful when Kind == locIndex
	Kind  locKind
}

type locKind uint8

const (
	locWhole locKind = iota
	locField
	locIndex
	locLastIndex
	locValid
)

func (l Location) String() string {
	switch l.Kind {
	case locField:
		return fmt.Sprintf("%s.%s", l.Base, l.Field)
	case locIndex:
		if l.Field != "" {
			return fmt.Sprintf("%s.%s[%d]", l.Base, l.Field, l.Index)
		}
		return fmt.Sprintf("%s[%d]", l.Base, l.Index)
	case locLastIndex:
		if l.Field != "" {
			return fmt.Sprintf("%s.%s.lastIndex", l.Base, l.Field)
		}
		return fmt.Sprintf("%s.lastIndex", l.Base)
	case locValid:
		if l.Field != "" {
			return fmt.Sprintf("%s.%s.$valid", l.Base, l.Field)
		}
		return fmt.Sprintf("%s.$valid", l.Base)
	default:
		return l.Base.String()
	}
}

// IsHeaderValidBit reports whether l projects to a header's validity
// bit; RemoveHeaders drops locations for which this, or the whole
// storage's type being a header, is true.
func (l Location) IsHeaderValidBit() bool { return l.Kind == locValid }

func (l Location) isHeaderStorage() bool {
	if l.Kind == locValid {
		return true
	}
	_, isHeader := l.Base.typ.(*ast.HeaderType)
	return isHeader && l.Kind == locWhole
}

// Expand returns the atomic locations a whole-object location actually
// corresponds to. A query against "the whole object" should observe
// whether every constituent part has been written, not just whether a
// single top-level assignment replaced the object outright, so a whole
// struct or header location expands into its declared fields plus,
// for a header (or a header-typed field of a struct), that header's
// own validity bit. Only one struct level is unfolded: a struct-typed
// field of a struct stays a single field location. A header reached
// through a struct field is expanded via expandHeaderFields, using
// the same field-path composition LocationSet.GetField/GetValidField
// use, so the result lines up with the exact keys the write-set
// builder records for a nested write like `s.ethernet.dstAddr = ...`.
// Any other location — a field projection, an index, already-atomic
// storage — expands to itself.
func (l Location) Expand() []Location {
	if l.Kind != locWhole {
		return []Location{l}
	}
	switch t := l.Base.typ.(type) {
	case *ast.HeaderType:
		return expandHeaderFields(l.Base, "", t)
	case *ast.StructType:
		if len(t.Fields) == 0 {
			return []Location{l}
		}
		out := make([]Location, 0, len(t.Fields))
		for _, f := range t.Fields {
			if hdr, isHeader := f.Type.(*ast.HeaderType); isHeader {
				out = append(out, expandHeaderFields(l.Base, f.Name, hdr)...)
				continue
			}
			out = append(out, Location{Base: l.Base, Field: f.Name, Kind: locField})
		}
		return out
	default:
		return []Location{l}
	}
}

// expandHeaderFields returns prefix's validity bit alongside each of
// hdr's own scalar fields, field-path-qualified by prefix (empty for
// a header declared directly, the field's name for a header reached
// through a struct field).
func expandHeaderFields(base Storage, prefix string, hdr *ast.HeaderType) []Location {
	out := make([]Location, 0, len(hdr.Fields)+1)
	out = append(out, Location{Base: base, Field: prefix, Kind: locValid})
	for _, f := range hdr.Fields {
		out = append(out, Location{Base: base, Field: joinField(prefix, f.Name), Kind: locField})
	}
	return out
}

// LocationSet is an immutable set of abstract storage locations, the
// unit of read/write bookkeeping throughout the pass.
type LocationSet struct {
	locs []Location
}

// Empty is the location set with no members.
var Empty = LocationSet{}

// FromStorage builds the single-element set containing the whole of s.
func FromStorage(s Storage) LocationSet {
	return LocationSet{locs: []Location{{Base: s, Kind: locWhole}}}
}

// IsEmpty reports whether the set has no members.
func (ls LocationSet) IsEmpty() bool { return len(ls.locs) == 0 }

// Locations returns the members of ls.
func (ls LocationSet) Locations() []Location { return ls.locs }

// GetField projects ls to field name on each member, e.g. `h.field`
// where ls denotes `h`. A member already holding a field path (from an
// earlier GetField in the same chain, e.g. projecting `s.h` before
// `.x`) has name appended to that path rather than replacing it, so
// that chained field accesses like `hdr.ethernet.dstAddr` resolve to a
// location distinct from `hdr.ipv4.dstAddr` instead of colliding on
// the trailing field name alone.
func (ls LocationSet) GetField(name string) LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		out = append(out, Location{Base: l.Base, Field: joinField(l.Field, name), Kind: locField})
	}
	return LocationSet{locs: out}
}

func joinField(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// GetIndex projects ls to a known constant array index.
func (ls LocationSet) GetIndex(i int) LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		out = append(out, Location{Base: l.Base, Field: l.Field, Index: i, Kind: locIndex})
	}
	return LocationSet{locs: out}
}

// GetArrayLastIndex projects ls to the pseudo-field storing a stack's
// last written index.
func (ls LocationSet) GetArrayLastIndex() LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		out = append(out, Location{Base: l.Base, Field: l.Field, Kind: locLastIndex})
	}
	return LocationSet{locs: out}
}

// GetValidField projects ls to a header's validity bit.
func (ls LocationSet) GetValidField() LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		out = append(out, Location{Base: l.Base, Field: l.Field, Kind: locValid})
	}
	return LocationSet{locs: out}
}

// Expand unfolds every whole-object location in ls into its atomic
// constituents (see Location.Expand), flattening the result into a
// single set. Callers that need to filter out header validity via
// RemoveHeaders must Expand first: RemoveHeaders only recognizes a
// validity location by its own Kind, so a composite (e.g. a struct of
// headers) whose validity bits only appear after expansion would
// otherwise sail through RemoveHeaders unfiltered.
func (ls LocationSet) Expand() LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		out = append(out, l.Expand()...)
	}
	return LocationSet{locs: out}
}

// RemoveHeaders returns the subset of ls excluding header storage
// (whole headers and validity bits), used by checkOutParameters, which
// does not want to warn about headers left invalid on purpose. ls
// must already be expanded (see Expand) for this to see validity
// locations nested inside a composite.
func (ls LocationSet) RemoveHeaders() LocationSet {
	out := make([]Location, 0, len(ls.locs))
	for _, l := range ls.locs {
		if l.isHeaderStorage() {
			continue
		}
		out = append(out, l)
	}
	return LocationSet{locs: out}
}

// Union returns the set containing the members of both ls and other.
func (ls LocationSet) Union(other LocationSet) LocationSet {
	out := make([]Location, 0, len(ls.locs)+len(other.locs))
	out = append(out, ls.locs...)
	out = append(out, other.locs...)
	return LocationSet{locs: out}
}

// StorageMap resolves declarations and parameters to their Storage.
type StorageMap struct {
	byDecl map[ast.Ref]Storage
}

// NewStorageMap builds an empty StorageMap.
func NewStorageMap() *StorageMap {
	return &StorageMap{byDecl: map[ast.Ref]Storage{}}
}

// Declare registers decl's storage, overwriting any prior entry.
func (m *StorageMap) Declare(decl ast.Ref, typ ast.Type) Storage {
	s := NewStorage(decl, typ)
	m.byDecl[decl] = s
	return s
}

// GetStorage returns the storage for decl, or the zero Storage and
// false if decl was never declared in this map.
func (m *StorageMap) GetStorage(decl ast.Ref) (Storage, bool) {
	s, ok := m.byDecl[decl]
	return s, ok
}
