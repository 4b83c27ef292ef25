package config

import "reflect"

// typeName returns a stable cache key for the concrete type of v.
func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	return t.PkgPath() + "." + t.Name()
}
