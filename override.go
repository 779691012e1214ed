// FILE: override.go
package relay

import (
	"reflect"
	"strconv"
	"strings"
)

// ApplyString applies "key=value" overrides to the configuration, using
// the toml tag names. Destination fields are addressed with a
// "destination." prefix. Errors are accumulated so one bad override does
// not hide the rest.
func (c *Config) ApplyString(overrides ...string) error {
	var errs []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		target := reflect.ValueOf(c).Elem()
		if rest, ok := strings.CutPrefix(key, "destination."); ok {
			target = reflect.ValueOf(&c.Destination).Elem()
			key = rest
		}

		if err := applyConfigField(target, key, value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		combined := errs[0]
		for _, err := range errs[1:] {
			combined = combineErrors(combined, err)
		}
		return combined
	}

	return c.Validate()
}

// applyConfigField sets one struct field, located by toml tag, converting
// the string value to the field's type.
func applyConfigField(v reflect.Value, key, value string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") != key {
			continue
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int64:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmtErrorf("invalid integer for %s: '%s'", key, value)
			}
			field.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmtErrorf("invalid boolean for %s: '%s'", key, value)
			}
			field.SetBool(b)
		default:
			return fmtErrorf("unsupported field type for %s", key)
		}
		return nil
	}

	return fmtErrorf("unknown config key: %s", key)
}
