package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Explain returns the effective value at a dotted YAML path (for example
// "placement.sticky_top_left" or "input.stuck_modifier.scancode") and the
// source that set it.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}
	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

// Paths lists every leaf path Explain accepts.
func Paths() []string {
	var out []string
	walkPaths(reflect.TypeOf(Config{}), "", &out)
	return out
}

func walkPaths(t reflect.Type, prefix string, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := yamlName(f)
		if name == "" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			walkPaths(f.Type, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

func lookupValue(cfg *Config, path string) (any, error) {
	v := reflect.ValueOf(*cfg)
	for _, part := range strings.Split(path, ".") {
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		found := false
		for i := 0; i < v.NumField(); i++ {
			if yamlName(v.Type().Field(i)) == part {
				v = v.Field(i)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
	}
	return v.Interface(), nil
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
