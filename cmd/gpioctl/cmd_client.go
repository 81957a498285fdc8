package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/d2verb/gpioctl/internal/client"
	"github.com/d2verb/gpioctl/internal/config"
	"github.com/d2verb/gpioctl/internal/dispatch"
	"github.com/d2verb/gpioctl/internal/logging"
	"github.com/d2verb/gpioctl/internal/ui"
)

type ClientCmd struct {
	Host       string        `short:"H" default:"${default_host}" env:"GPIOCTL_HOST" help:"Daemon host name or IP address"`
	Port       int           `short:"p" default:"${default_port}" env:"GPIOCTL_PORT" help:"Daemon port"`
	Command    string        `short:"c" placeholder:"CMD" predictor:"command" help:"Command to run: ${commands}. Starts interactive mode when omitted"`
	Auto       bool          `short:"A" help:"Run the auto test sequence (same as -c auto)"`
	Timeout    time.Duration `default:"${default_timeout}" env:"GPIOCTL_TIMEOUT" help:"Timeout for one round trip, 0 disables"`
	Delay      time.Duration `default:"${default_delay}" help:"Pause between auto sequence steps"`
	Extended   bool          `help:"Append the test mode steps to the auto sequence"`
	StrictExit bool          `name:"strict-exit" help:"Exit non-zero when a command fails (2 refused, 3 failed, 4 timeout)"`
}

// Validate is called by kong after parsing.
func (c *ClientCmd) Validate() error {
	if c.Host == "" {
		return errors.New("--host must not be empty")
	}
	if err := config.ValidatePort(c.Port); err != nil {
		return fmt.Errorf("--port: %w", err)
	}
	if c.Command != "" && !slices.Contains(commandNames(), c.Command) {
		return fmt.Errorf("--command must be one of %v, got %q", commandNames(), c.Command)
	}
	if c.Auto && c.Command != "" && c.Command != dispatch.AutoCommand {
		return errors.New("--auto cannot be combined with --command")
	}
	if c.Timeout < 0 {
		return errors.New("--timeout must not be negative")
	}
	if c.Delay < 0 {
		return errors.New("--delay must not be negative")
	}
	return nil
}

func (c *ClientCmd) Run(g *Globals, e *env) error {
	logger, logCloser := logging.Open(g.LogFile)
	defer logCloser.Close()

	endpoint := client.Endpoint{Host: c.Host, Port: c.Port}
	cl := client.New(endpoint, client.WithTimeout(c.Timeout), client.WithLogger(logger))

	printer := ui.NewPrinter(e.stdout, !g.NoColor && isTerminal(e.stdout))
	d := dispatch.New(cl, printer,
		dispatch.WithStepDelay(c.Delay),
		dispatch.WithExtendedAuto(c.Extended),
		dispatch.WithLogger(logger),
	)

	command := c.Command
	if c.Auto {
		command = dispatch.AutoCommand
	}

	if command == "" {
		logger.Info("starting interactive session", "endpoint", endpoint.String())
		return d.RunREPL(e.ctx, e.stdin)
	}

	logger.Info("running command", "endpoint", endpoint.String(), "command", command)
	res, err := d.RunOnce(e.ctx, command)
	if err != nil {
		return err
	}
	if c.StrictExit {
		if exitErr := strictExitError(res); exitErr != nil {
			return exitErr
		}
	}
	return nil
}

// isTerminal reports whether w is a terminal that should get colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.DetectColor(f)
}
