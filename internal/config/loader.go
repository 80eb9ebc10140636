package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := fill(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envField is the parsed env tag set of one config field.
//
//	env:"PRIMARY" envAlt:"FALLBACK" default:"value" required:"true"
type envField struct {
	names    []string
	def      string
	required bool
}

func envFieldOf(f reflect.StructField) (envField, bool) {
	name := f.Tag.Get("env")
	if name == "" {
		return envField{}, false
	}
	ef := envField{
		names:    []string{name},
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}
	if alt := f.Tag.Get("envAlt"); alt != "" {
		ef.names = append(ef.names, alt)
	}
	return ef, true
}

// lookup returns the first non-empty variable, then the default.
func (ef envField) lookup() (string, error) {
	for _, name := range ef.names {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	if ef.required {
		return "", fmt.Errorf("required environment variable %s is not set", ef.names[0])
	}
	return ef.def, nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	listType     = reflect.TypeOf([]string(nil))
)

// parse converts a raw value for every field type the config declares.
func parse(t reflect.Type, s string) (any, error) {
	switch t {
	case durationType:
		return time.ParseDuration(s)
	case listType:
		return splitList(s), nil
	}
	switch t.Kind() {
	case reflect.String:
		return s, nil
	case reflect.Int:
		return strconv.Atoi(s)
	case reflect.Int64:
		return strconv.ParseInt(s, 10, 64)
	case reflect.Bool:
		return strconv.ParseBool(s)
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

// fill walks the config sections and assigns every env-tagged field.
func fill(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := fill(fv); err != nil {
				return err
			}
			continue
		}

		ef, ok := envFieldOf(field)
		if !ok {
			continue
		}
		raw, err := ef.lookup()
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}

		val, err := parse(field.Type, raw)
		if err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", ef.names[0], raw, err)
		}
		fv.Set(reflect.ValueOf(val).Convert(field.Type))
	}

	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
