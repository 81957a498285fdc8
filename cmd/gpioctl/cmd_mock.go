package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/d2verb/gpioctl/internal/logging"
	"github.com/d2verb/gpioctl/internal/mockd"
	"github.com/d2verb/gpioctl/internal/ui"
)

type MockCmd struct {
	Listen      string        `default:":${default_port}" help:"Address to listen on"`
	ResetPulse  time.Duration `name:"reset-pulse" default:"300ms" help:"How long the simulated reset line is held"`
	DFUPulse    time.Duration `name:"dfu-pulse" default:"200ms" help:"How long the simulated DFU entry takes"`
	ReadTimeout time.Duration `name:"read-timeout" default:"5s" help:"Drop connections that send nothing for this long, 0 disables"`
}

// logFile picks the mock daemon log: --log-file, else the log under the
// gpioctl home.
func (c *MockCmd) logFile(g *Globals, e *env) (string, error) {
	if g.LogFile != "" {
		return g.LogFile, nil
	}
	if e.paths == nil {
		return "", nil
	}
	if err := e.paths.EnsureDirectories(); err != nil {
		return "", fmt.Errorf("create gpioctl directories: %w", err)
	}
	return e.paths.LogFile, nil
}

func (c *MockCmd) Run(g *Globals, e *env) error {
	path, err := c.logFile(g, e)
	if err != nil {
		return err
	}

	var logOut io.Writer = e.stderr
	if path != "" {
		w := logging.NewRotatingWriter(path)
		defer w.Close()
		logOut = io.MultiWriter(e.stderr, w)
	}
	logger := logging.NewLogger(logOut, slog.LevelInfo)

	device := mockd.NewDevice(
		mockd.WithPulses(c.ResetPulse, c.DFUPulse),
		mockd.WithDeviceLogger(logger),
	)
	server := mockd.NewServer(device, c.Listen, logger, mockd.WithReadTimeout(c.ReadTimeout))

	if err := server.Start(e.ctx); err != nil {
		return fmt.Errorf("start mock daemon: %w", err)
	}

	printer := ui.NewPrinter(e.stdout, !g.NoColor && isTerminal(e.stdout))
	printer.Success(fmt.Sprintf("Mock daemon listening on %s", server.Addr()))
	printer.Info("Press Ctrl+C to stop")

	<-e.ctx.Done()

	if err := server.Stop(); err != nil {
		return fmt.Errorf("stop mock daemon: %w", err)
	}
	printer.Info("Mock daemon stopped")
	return nil
}
