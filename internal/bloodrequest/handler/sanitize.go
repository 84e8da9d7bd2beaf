package handler

import (
	"reflect"
	"strings"
)

// sanitize trims whitespace from every settable string field of a struct.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() || field.Kind() != reflect.String {
			continue
		}
		field.SetString(strings.TrimSpace(field.String()))
	}
}
