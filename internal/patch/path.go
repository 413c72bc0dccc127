package patch

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var ErrUnknownPath = errors.New("unknown parameter path")

// field is one leaf of Patch, reachable from the root by a chain of
// struct-field or array indexes.
type field struct {
	path  string
	steps []int
	kind  reflect.Kind
}

func (f *field) value(root reflect.Value) reflect.Value {
	v := root
	for _, s := range f.steps {
		if v.Kind() == reflect.Array {
			v = v.Index(s)
		} else {
			v = v.Field(s)
		}
	}
	return v
}

// fields lists every leaf of Patch in canonical (declaration) order.
var (
	fields     = walkFields(reflect.TypeOf(Patch{}), "", nil)
	fieldIndex = indexFields(fields)
)

func walkFields(t reflect.Type, prefix string, steps []int) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		at := appendStep(steps, i)
		if sf.Anonymous {
			out = append(out, walkFields(sf.Type, prefix, at)...)
			continue
		}
		out = append(out, walkType(sf.Type, joinPath(prefix, jsonName(sf)), at)...)
	}
	return out
}

func walkType(t reflect.Type, path string, steps []int) []field {
	switch t.Kind() {
	case reflect.Struct:
		return walkFields(t, path, steps)
	case reflect.Array:
		var out []field
		for j := 0; j < t.Len(); j++ {
			out = append(out, walkType(t.Elem(), joinPath(path, strconv.Itoa(j)), appendStep(steps, j))...)
		}
		return out
	default:
		return []field{{path: path, steps: steps, kind: t.Kind()}}
	}
}

func appendStep(steps []int, s int) []int {
	out := make([]int, len(steps), len(steps)+1)
	copy(out, steps)
	return append(out, s)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" {
		return sf.Name
	}
	return name
}

func indexFields(fs []field) map[string]*field {
	idx := make(map[string]*field, len(fs))
	for i := range fs {
		idx[fs[i].path] = &fs[i]
	}
	return idx
}

// Paths returns every field path of Patch in canonical order, mapped or not.
func Paths() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.path
	}
	return out
}

// IsBool reports whether path names an on/off field.
func IsBool(path string) bool {
	f, ok := fieldIndex[path]
	return ok && f.kind == reflect.Bool
}

// Get reads a numeric or boolean field; booleans read as 0 or 1.
func (p *Patch) Get(path string) (float64, error) {
	f, ok := fieldIndex[path]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	v := f.value(reflect.ValueOf(p).Elem())
	switch f.kind {
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Int:
		return float64(v.Int()), nil
	default:
		return 0, fmt.Errorf("%w: %q is not numeric", ErrUnknownPath, path)
	}
}

// Set writes a numeric or boolean field. Numbers are rounded but not clamped;
// clamping to a byte happens when the patch is encoded or sent.
func (p *Patch) Set(path string, value float64) error {
	f, ok := fieldIndex[path]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPath, path)
	}
	v := f.value(reflect.ValueOf(p).Elem())
	switch f.kind {
	case reflect.Bool:
		v.SetBool(value != 0)
	case reflect.Int:
		v.SetInt(int64(math.Round(value)))
	default:
		return fmt.Errorf("%w: %q is not numeric", ErrUnknownPath, path)
	}
	return nil
}
