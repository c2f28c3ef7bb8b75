// Package datatype describes typed records exchanged between workflow tasks.
// A Definition declares a named, ordered set of fields; a Record binds values
// to a Definition. The derived schema is self-describing and travels inline
// on every BLOCK message, so consumers need no out-of-band registry.
package datatype

import (
	"fmt"
)

// Atomic is a primitive wire type of a record field.
type Atomic string

const (
	AtomicString  Atomic = "string"
	AtomicInt     Atomic = "int"
	AtomicFloat   Atomic = "float"
	AtomicBoolean Atomic = "boolean"
)

type fieldKind int

const (
	kindAtomic fieldKind = iota
	kindArray
	kindArrayOfRecord
	kindRecord
)

// Field is one declared field of a Definition.
type Field struct {
	name       string
	kind       fieldKind
	atomic     Atomic
	items      Atomic
	nested     *Definition
	defValue   any
	hasDefault bool
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// String declares a string field without default.
func String(name string) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicString}
}

// StringDefault declares a string field with a default value.
func StringDefault(name, def string) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicString, defValue: def, hasDefault: true}
}

// Int declares an int field without default.
func Int(name string) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicInt}
}

// IntDefault declares an int field with a default value.
func IntDefault(name string, def int) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicInt, defValue: def, hasDefault: true}
}

// Float declares a float field without default.
func Float(name string) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicFloat}
}

// FloatDefault declares a float field with a default value.
func FloatDefault(name string, def float32) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicFloat, defValue: def, hasDefault: true}
}

// Boolean declares a boolean field without default.
func Boolean(name string) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicBoolean}
}

// BooleanDefault declares a boolean field with a default value.
func BooleanDefault(name string, def bool) Field {
	return Field{name: name, kind: kindAtomic, atomic: AtomicBoolean, defValue: def, hasDefault: true}
}

// List declares an array field of atomic items.
func List(name string, items Atomic) Field {
	return Field{name: name, kind: kindArray, items: items}
}

// ListDefault declares an array field of atomic items with a default value.
func ListDefault(name string, items Atomic, def []any) Field {
	return Field{name: name, kind: kindArray, items: items, defValue: def, hasDefault: true}
}

// ListOf declares an array field whose items are records of the given Definition.
func ListOf(name string, items *Definition) Field {
	return Field{name: name, kind: kindArrayOfRecord, nested: items}
}

// Nested declares a field holding a record of the given Definition.
func Nested(name string, nested *Definition) Field {
	return Field{name: name, kind: kindRecord, nested: nested}
}

// Definition is a named record type: ordered fields plus a namespace.
type Definition struct {
	name      string
	namespace string
	fields    []Field
	override  map[string]any
}

// Define builds a Definition. A non-defaulted field declared after a
// defaulted one is rejected, mirroring positional-construction semantics.
func Define(namespace, name string, fields ...Field) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("datatype: record name must not be empty")
	}
	seenDefault := false
	for _, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("datatype: field name must not be empty in record %s", name)
		}
		if f.hasDefault {
			seenDefault = true
		} else if seenDefault {
			return nil, fmt.Errorf("datatype: non-default field %q follows a defaulted field in record %s", f.name, name)
		}
	}
	return &Definition{name: name, namespace: namespace, fields: fields}, nil
}

// MustDefine is Define but panics on error. Intended for package-level
// component record declarations.
func MustDefine(namespace, name string, fields ...Field) *Definition {
	d, err := Define(namespace, name, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// WithSchema overrides the derived schema with an explicit one.
func (d *Definition) WithSchema(schema map[string]any) *Definition {
	d.override = schema
	return d
}

// Name returns the record name.
func (d *Definition) Name() string { return d.name }

// Namespace returns the record namespace.
func (d *Definition) Namespace() string { return d.namespace }

// Schema returns the self-describing record schema, recursing into array
// items and nested records. An explicit override wins.
func (d *Definition) Schema() map[string]any {
	if d.override != nil {
		return d.override
	}
	fields := make([]any, 0, len(d.fields))
	for _, f := range d.fields {
		fields = append(fields, f.schema())
	}
	return map[string]any{
		"namespace": d.namespace,
		"name":      d.name,
		"type":      "record",
		"fields":    fields,
	}
}

func (f Field) schema() map[string]any {
	switch f.kind {
	case kindArray:
		return map[string]any{"name": f.name, "type": map[string]any{"type": "array", "items": string(f.items)}}
	case kindArrayOfRecord:
		return map[string]any{"name": f.name, "type": map[string]any{"type": "array", "items": f.nested.Schema()}}
	case kindRecord:
		return map[string]any{"name": f.name, "type": f.nested.Schema()}
	default:
		return map[string]any{"name": f.name, "type": string(f.atomic)}
	}
}

// Values binds field names to values when instantiating a Record.
type Values map[string]any

// Record is an instance of a Definition.
type Record struct {
	def    *Definition
	values Values
}

// New instantiates the Definition with the given values. Missing values fall
// back to field defaults at Dict time.
func (d *Definition) New(values Values) *Record {
	if values == nil {
		values = Values{}
	}
	return &Record{def: d, values: values}
}

// Definition returns the record's type.
func (r *Record) Definition() *Definition { return r.def }

// Key returns the record type name, used as the suffix of BLOCK keys.
func (r *Record) Key() string { return r.def.name }

// Schema returns the record's schema.
func (r *Record) Schema() map[string]any { return r.def.Schema() }

// Dict returns the canonical map representation of the record: every declared
// field present, defaults applied, values coerced to their wire types.
func (r *Record) Dict() (map[string]any, error) {
	out := make(map[string]any, len(r.def.fields))
	for _, f := range r.def.fields {
		v, ok := r.values[f.name]
		if !ok {
			if !f.hasDefault {
				return nil, fmt.Errorf("datatype: missing value for field %q of record %s", f.name, r.def.name)
			}
			v = f.defValue
		}
		coerced, err := f.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("datatype: record %s: %w", r.def.name, err)
		}
		out[f.name] = coerced
	}
	return out, nil
}

func (f Field) coerce(v any) (any, error) {
	switch f.kind {
	case kindAtomic:
		return coerceAtomic(f.name, f.atomic, v)
	case kindArray:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q expects an array", f.name)
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := coerceAtomic(f.name, f.items, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case kindArrayOfRecord:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("field %q expects an array of records", f.name)
		}
		out := make([]any, len(items))
		for i, item := range items {
			c, err := f.coerceRecord(item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case kindRecord:
		return f.coerceRecord(v)
	}
	return nil, fmt.Errorf("field %q has unknown kind", f.name)
}

func (f Field) coerceRecord(v any) (map[string]any, error) {
	switch item := v.(type) {
	case *Record:
		return item.Dict()
	case Values:
		return f.nested.New(item).Dict()
	case map[string]any:
		return f.nested.New(Values(item)).Dict()
	default:
		return nil, fmt.Errorf("field %q expects a %s record", f.name, f.nested.name)
	}
}

func coerceAtomic(name string, t Atomic, v any) (any, error) {
	switch t {
	case AtomicString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string", name)
		}
		return s, nil
	case AtomicInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int32:
			return int(n), nil
		case int64:
			return int(n), nil
		case float64:
			return int(n), nil
		}
		return nil, fmt.Errorf("field %q expects an int", name)
	case AtomicFloat:
		switch n := v.(type) {
		case float32:
			return n, nil
		case float64:
			return float32(n), nil
		case int:
			return float32(n), nil
		}
		return nil, fmt.Errorf("field %q expects a float", name)
	case AtomicBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q expects a boolean", name)
		}
		return b, nil
	}
	return nil, fmt.Errorf("field %q has unknown atomic type %q", name, t)
}
