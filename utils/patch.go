package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// Patch applies the non-nil pointer fields of dto to the struct dst points to,
// matching fields by json name, and returns the applied values keyed by that
// name for use with gorm's Updates. Fields without a counterpart in dst are
// still returned.
func Patch(dst any, dto any) map[string]any {
	changes := make(map[string]any)
	src, ok := structOf(dto)
	if !ok {
		return changes
	}
	target, hasTarget := structOf(dst)

	for i := 0; i < src.NumField(); i++ {
		fv := src.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		name := jsonName(src.Type().Field(i))
		if name == "" {
			continue
		}
		val := fv.Elem()
		changes[name] = val.Interface()

		if hasTarget {
			if f, ok := fieldByJSON(target, name); ok && f.CanSet() && val.Type().AssignableTo(f.Type()) {
				f.Set(val)
			}
		}
	}
	return changes
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func fieldByJSON(s reflect.Value, name string) (reflect.Value, bool) {
	for i := 0; i < s.NumField(); i++ {
		if jsonName(s.Type().Field(i)) == name {
			return s.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// ParseLimit reads a positive page size, falling back to def and capping at max.
func ParseLimit(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
