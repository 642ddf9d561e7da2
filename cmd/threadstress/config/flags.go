// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"flag"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// configFlag names the flag pointing to a TOML configuration file. It is not
// part of Config.
const configFlag = "config"

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.String(configFlag, "", "path to a TOML file with default values for the flags below. Flags given on the command line take precedence.")

	// Debugging flags.
	flagSet.String("log", "", "file path where internal debug information is written, default is stderr. The following variables are available: %COMMAND%, %PID%.")
	flagSet.String("log-format", "text", "log format: text (default), json, or json-k8s.")
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.Bool("alsologtostderr", false, "send log messages to stderr in addition to --log.")

	// Scenario flags.
	flagSet.Int("goroutines", 100, "number of goroutines each scenario races.")
	flagSet.Int("iterations", 1000, "lock/unlock cycles per goroutine in the lazymutex scenario.")
	flagSet.Duration("init-delay", time.Millisecond, "how long the run-once initializer sleeps.")
	flagSet.Duration("timeout", time.Minute, "maximum duration of each scenario.")
}

// NewFromFlags creates a new Config with values coming from the given flag
// set, and from the file named by --config if one is given. This function
// must be called after flags are parsed.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}
	if err := forEachFlagField(conf, flagSet, func(fl *flag.Flag, field reflect.Value) error {
		field.Set(reflect.ValueOf(get(fl)))
		return nil
	}); err != nil {
		return nil, err
	}

	if path := flagSet.Lookup(configFlag).Value.String(); path != "" {
		if _, err := toml.DecodeFile(path, conf); err != nil {
			return nil, fmt.Errorf("error reading config file %q: %v", path, err)
		}

		// Reapply flags given explicitly, since they take precedence over
		// the file.
		set := make(map[string]bool)
		flagSet.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
		if err := forEachFlagField(conf, flagSet, func(fl *flag.Flag, field reflect.Value) error {
			if set[fl.Name] {
				field.Set(reflect.ValueOf(get(fl)))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// ToFlags returns a slice of flags that correspond to the given Config. Only
// flags that differ from their default value are returned.
func (c *Config) ToFlags() []string {
	var rv []string

	// Construct a temporary set for default plumbing.
	flagSet := flag.NewFlagSet("tmp", flag.ContinueOnError)
	RegisterFlags(flagSet)

	_ = forEachFlagField(c, flagSet, func(fl *flag.Flag, field reflect.Value) error {
		if val := getVal(field); val != fl.DefValue {
			rv = append(rv, fmt.Sprintf("--%s=%s", fl.Name, val))
		}
		return nil
	})
	return rv
}

// forEachFlagField calls fn for every field of c tagged with a flag name,
// along with the flag it maps to.
func forEachFlagField(c *Config, flagSet *flag.FlagSet, fn func(*flag.Flag, reflect.Value) error) error {
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		if err := fn(fl, obj.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

// get returns the typed value held by a flag registered by RegisterFlags.
func get(fl *flag.Flag) any {
	return fl.Value.(flag.Getter).Get()
}

func getVal(field reflect.Value) string {
	if str, ok := field.Addr().Interface().(fmt.Stringer); ok {
		return str.String()
	}
	switch field.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(field.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(field.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(field.Uint(), 10)
	case reflect.String:
		return field.String()
	default:
		panic("unknown type " + field.Kind().String())
	}
}
