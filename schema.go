package esremap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const tagKey = "esremap"

var timeType = reflect.TypeFor[time.Time]()

// fieldTypes are the mapping types a tag modifier may name.
var fieldTypes = map[string]struct{}{
	"keyword": {}, "text": {}, "date": {}, "boolean": {},
	"long": {}, "integer": {}, "short": {}, "byte": {},
	"double": {}, "float": {}, "half_float": {}, "scaled_float": {},
}

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction
	ptr bool         // T is a pointer to typ

	idIdx  int
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
	esType    string
}

// parseSchema reflects on T and extracts esremap struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	t := reflect.TypeFor[T]()
	meta := &schemaMeta{idIdx: -1}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		meta.ptr = true
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("esremap: type %s is not a struct", t)
	}
	meta.typ = t

	seen := make(map[string]struct{})
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
		if meta.idIdx == i {
			continue
		}
		name := meta.fields[len(meta.fields)-1].name
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("esremap: duplicate field name %q on %s", name, f.Name)
		}
		seen[name] = struct{}{}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("esremap: no field with `esremap:\"...,id\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's esremap tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}

	if modifier == "id" {
		if meta.idIdx != -1 {
			return fmt.Errorf("esremap: duplicate id tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("esremap: id field %s must be a string", f.Name)
		}
		meta.idIdx = idx
		return nil
	}

	esType := modifier
	if esType == "" {
		esType = inferType(f.Type)
		if esType == "" {
			return fmt.Errorf("esremap: cannot infer a mapping type for field %s of type %s, name one in the tag",
				f.Name, f.Type)
		}
	} else if _, ok := fieldTypes[esType]; !ok {
		return fmt.Errorf("esremap: unknown modifier %q on field %s", modifier, f.Name)
	}
	meta.fields = append(meta.fields, fieldMapping{structIdx: idx, name: name, esType: esType})
	return nil
}

// inferType picks the mapping type of a Go field. Strings default to keyword.
func inferType(t reflect.Type) string {
	if t == timeType {
		return "date"
	}
	switch t.Kind() {
	case reflect.String:
		return "keyword"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "long"
	case reflect.Float32, reflect.Float64:
		return "double"
	default:
		return ""
	}
}

// mappings builds the mappings object declaring every tagged field.
func (m *schemaMeta) mappings() map[string]any {
	props := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		props[f.name] = map[string]any{"type": f.esType}
	}
	return map[string]any{"properties": props}
}

func (m *schemaMeta) structValue(item any) (reflect.Value, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("esremap: nil %s", m.typ)
		}
		v = v.Elem()
	}
	return v, nil
}

// toAttributes splits a typed struct into its id and attributes.
func (m *schemaMeta) toAttributes(item any) (string, map[string]any, error) {
	v, err := m.structValue(item)
	if err != nil {
		return "", nil, err
	}
	attrs := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		fv := v.Field(f.structIdx)
		if fv.Type() == timeType {
			attrs[f.name] = fv.Interface().(time.Time).Format(time.RFC3339Nano)
			continue
		}
		attrs[f.name] = fv.Interface()
	}
	return v.Field(m.idIdx).String(), attrs, nil
}

// fromDocument converts a Document back to a typed struct using schema metadata.
// Attributes the struct does not declare are ignored.
func (m *schemaMeta) fromDocument(doc Document) (any, error) {
	v := reflect.New(m.typ).Elem()
	v.Field(m.idIdx).SetString(doc.ID)
	for _, f := range m.fields {
		val, ok := doc.Attributes[f.name]
		if !ok || val == nil {
			continue
		}
		if err := setValue(v.Field(f.structIdx), val); err != nil {
			return nil, fmt.Errorf("esremap: document %s field %s: %w", doc.ID, f.name, err)
		}
	}
	if m.ptr {
		return v.Addr().Interface(), nil
	}
	return v.Interface(), nil
}

// setValue assigns a decoded source value, converting JSON numbers and date strings.
func setValue(dst reflect.Value, val any) error {
	if dst.Type() == timeType {
		tm, err := toTime(val)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(tm))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(fmt.Sprint(val))
	case reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", val)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(val)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(val)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("negative value %d for unsigned field", n)
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(val)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	default:
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("cannot assign %T to %s", val, dst.Type())
		}
		dst.Set(rv)
	}
	return nil
}

func toInt(val any) (int64, error) {
	switch n := val.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		f, err := toFloat(val)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	}
}

func toFloat(val any) (float64, error) {
	switch n := val.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case interface{ Float64() (float64, error) }:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("want number, got %T", val)
	}
}

func toTime(val any) (time.Time, error) {
	switch t := val.(type) {
	case time.Time:
		return t, nil
	case string:
		if tm, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return tm, nil
		}
		return time.Parse(time.DateOnly, t)
	default:
		return time.Time{}, fmt.Errorf("want date string, got %T", val)
	}
}
