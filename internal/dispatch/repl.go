package dispatch

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/d2verb/gpioctl/internal/protocol"
	"github.com/d2verb/gpioctl/internal/ui"
)

// REPL control words.
const (
	replExit = "exit"
	replQuit = "quit"
	replHelp = "help"
)

var replCommands = []ui.HelpEntry{
	{Name: "status", Description: "Query current state"},
	{Name: "normal", Description: "Set normal run state"},
	{Name: "reset", Description: "Reset the device"},
	{Name: "dfu", Description: "Enter DFU mode"},
	{Name: "test", Description: "Enter pin toggling test mode"},
	{Name: "test_exit", Description: "Leave test mode"},
	{Name: "auto", Description: "Run the auto test sequence"},
	{Name: "help", Description: "Show this list"},
	{Name: "exit", Description: "Quit"},
}

// RunREPL reads commands line by line from in until "exit", end of input or
// ctx cancellation. Each recognized line is dispatched to completion before
// the next prompt, so no request is left open when the loop ends.
func (d *Dispatcher) RunREPL(ctx context.Context, in io.Reader) error {
	d.printer.Banner("GPIO daemon interactive test")
	d.printer.Help(replCommands)

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr = scanner.Err()
	}()

	for {
		d.printer.Prompt(d.prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			d.printer.Raw("")
			d.printer.Info("Exiting")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			d.printer.Raw("")
			return scanErr
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case replExit, replQuit:
			return nil
		case replHelp:
			d.printer.Help(replCommands)
		case AutoCommand:
			d.RunAuto(ctx)
		default:
			cmd, err := protocol.ParseCommand(line)
			if err != nil {
				d.printer.Warning("Unknown command: " + line)
				continue
			}
			d.render(d.send(ctx, Step{Command: cmd}))
		}
	}
}
