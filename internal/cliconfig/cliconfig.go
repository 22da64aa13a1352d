// Package cliconfig loads the example commands' configuration from
// environment variables (optionally read from a .env file), the way
// pkg/atlas/config.go builds Atlas's Config: a struct tagged with `env:"…"`
// fields, populated by reflection. Load overwrites every field whose
// variable is set; the example commands call it after parsing their flags,
// so a set environment variable takes precedence over a command-line flag.
package cliconfig

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/hashicorp/go-envparse"
)

// Load populates target (a pointer to a struct) from environment variables
// named by each field's `env` tag. If envFile is non-empty, its contents
// are parsed and applied to the process environment first (without
// overwriting variables already set), mirroring how Atlas's Config layers
// a .env file under the real environment.
func Load(envFile string, target interface{}) error {
	if envFile != "" {
		if err := applyEnvFile(envFile); err != nil {
			return err
		}
	}
	return populate(target)
}

func applyEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	vars, err := envparse.Parse(f)
	if err != nil {
		return fmt.Errorf("cliconfig: parse %s: %w", path, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			os.Setenv(k, v)
		}
	}
	return nil
}

func populate(target interface{}) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cliconfig: target must be a pointer to a struct")
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag, ok := field.Tag.Lookup("env")
		if !ok || tag == "" {
			continue
		}
		raw, present := os.LookupEnv(tag)
		if !present {
			continue
		}
		fv := rv.Field(i)
		if err := setField(fv, raw); err != nil {
			return fmt.Errorf("cliconfig: %s (%s): %w", field.Name, tag, err)
		}
	}
	return nil
}

func setField(fv reflect.Value, raw string) error {
	switch fv.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}
