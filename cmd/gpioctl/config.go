package main

import (
	"io"

	"github.com/alecthomas/kong"

	"github.com/d2verb/gpioctl/internal/config"
)

// yamlConfigLoader exposes a gpioctl config file to kong as a flag resolver.
// Values apply only to flags not given on the command line.
func yamlConfigLoader(r io.Reader) (kong.Resolver, error) {
	f, err := config.Parse(r)
	if err != nil {
		return nil, err
	}
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		if v, ok := f.Lookup(flag.Name); ok {
			return v, nil
		}
		return nil, nil
	}), nil
}
