package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Get returns the value at a dotted JSON key such as "api.base_url".
func Get(cfg *Config, key string) (interface{}, error) {
	field, err := lookupField(reflect.ValueOf(cfg).Elem(), key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses raw as JSON when possible (numbers, booleans, quoted strings)
// and otherwise as a bare string, then assigns it at a dotted JSON key.
func Set(cfg *Config, key, raw string) error {
	field, err := lookupField(reflect.ValueOf(cfg).Elem(), key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("field %s cannot be set", key)
	}

	target := reflect.New(field.Type())
	if err := json.Unmarshal([]byte(raw), target.Interface()); err != nil {
		quoted, _ := json.Marshal(raw)
		if err := json.Unmarshal(quoted, target.Interface()); err != nil {
			return fmt.Errorf("cannot convert %q to %s", raw, field.Type())
		}
	}
	field.Set(target.Elem())
	return nil
}

// Keys lists every settable dotted key.
func Keys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, prefix+name+".", keys)
			continue
		}
		*keys = append(*keys, prefix+name)
	}
}

func lookupField(v reflect.Value, key string) (reflect.Value, error) {
	for _, part := range strings.Split(key, ".") {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("cannot access field %s: not a struct", part)
		}
		found := false
		for i := 0; i < v.NumField(); i++ {
			if jsonName(v.Type().Field(i)) == part {
				v = v.Field(i)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, fmt.Errorf("unknown config key %q", key)
		}
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("config key %q is a section", key)
	}
	return v, nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
