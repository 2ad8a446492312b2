package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PathElem is one step of a ValidationError path: a field name or a list index.
type PathElem struct {
	Field string
	Index int
}

func Field(name string) PathElem {
	return PathElem{Field: name, Index: -1}
}

func Index(i int) PathElem {
	return PathElem{Index: i}
}

func (p PathElem) IsIndex() bool {
	return p.Field == ""
}

func (p PathElem) MarshalJSON() ([]byte, error) {
	if p.IsIndex() {
		return json.Marshal(p.Index)
	}

	return json.Marshal(p.Field)
}

type Path []PathElem

// Append returns a new path; p is never modified.
func (p Path) Append(elems ...PathElem) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)

	return append(out, elems...)
}

func (p Path) Field(name string) Path {
	return p.Append(Field(name))
}

func (p Path) Index(i int) Path {
	return p.Append(Index(i))
}

// String renders the path as analysis.qualityScore or variants[1].type.
// The empty path renders as root.
func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}

	var b strings.Builder
	for i, e := range p {
		if e.IsIndex() {
			b.WriteString("[" + strconv.Itoa(e.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.Field)
	}

	return b.String()
}

// MarshalJSON writes the empty path as ["root"], matching String, so a
// whole-record error is never reported against an empty path.
func (p Path) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte(`["root"]`), nil
	}

	return json.Marshal([]PathElem(p))
}

type ValidationError struct {
	Path    Path   `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Path.String() + ": " + e.Message
}
