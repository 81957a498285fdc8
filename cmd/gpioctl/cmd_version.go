package main

import "fmt"

type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	fmt.Fprintf(e.stdout, "gpioctl version %s (%s)\n", version, commit)
	return nil
}
