package omitnilpointers

import (
	"reflect"
)

// Fields flattens the exported fields of struct v into a map keyed by the
// value of tag (the field name when the tag is empty). Nil pointers are
// skipped and other pointers are dereferenced, so the result is a partial
// update containing only the fields that were set. Fields tagged "-" are
// skipped.
func Fields(v any, tag string) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return map[string]any{}
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return map[string]any{}
	}

	rt := rv.Type()
	fields := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		key := sf.Tag.Get(tag)
		if key == "-" {
			continue
		}
		if key == "" {
			key = sf.Name
		}

		field := rv.Field(i)
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}

		fields[key] = field.Interface()
	}

	return fields
}
