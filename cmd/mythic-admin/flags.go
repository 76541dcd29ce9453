// ABOUTME: Minimal "--name value" argument parsing for mythic-admin
// ABOUTME: Flags without a value are recorded as "true"

package main

import (
	"fmt"
	"strings"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/state"
)

type flags struct {
	values map[string]string
	args   []string
}

func parseFlags(args []string) flags {
	f := flags{values: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") {
			f.args = append(f.args, a)
			continue
		}
		name := strings.TrimPrefix(a, "--")
		if k, v, ok := strings.Cut(name, "="); ok {
			f.values[k] = v
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			f.values[name] = args[i+1]
			i++
			continue
		}
		f.values[name] = "true"
	}
	return f
}

func (f flags) get(name string) string {
	return f.values[name]
}

func (f flags) has(name string) bool {
	_, ok := f.values[name]
	return ok
}

func (f flags) required(name string) (string, error) {
	v := f.values[name]
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return v, nil
}

func (f flags) pubkey(name string) (address.Pubkey, error) {
	v, err := f.required(name)
	if err != nil {
		return address.Pubkey{}, err
	}
	pk, err := address.Parse(v)
	if err != nil {
		return address.Pubkey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}

// authority parses an optional principal flag where "none" clears it.
func (f flags) authority(name string, fallback state.Authority) (state.Authority, error) {
	v := f.values[name]
	switch v {
	case "":
		return fallback, nil
	case "none":
		return state.None(), nil
	}
	pk, err := address.Parse(v)
	if err != nil {
		return state.Authority{}, fmt.Errorf("--%s: %w", name, err)
	}
	return state.Delegate(pk), nil
}

// positional returns the first positional argument or a usage error.
func (f flags) positional(usage string) (string, error) {
	if len(f.args) == 0 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return f.args[0], nil
}
