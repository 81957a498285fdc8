// Package dispatch maps user intent to daemon round trips and renders results.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/d2verb/gpioctl/internal/client"
	"github.com/d2verb/gpioctl/internal/protocol"
	"github.com/d2verb/gpioctl/internal/ui"
)

// AutoCommand runs the auto sequence instead of a single round trip.
const AutoCommand = "auto"

// Defaults for dispatcher options.
const (
	DefaultStepDelay = time.Second
	DefaultPrompt    = "gpio> "
)

// ErrUnknownCommand is returned for command names outside the known set.
var ErrUnknownCommand = errors.New("unknown command")

// Sender performs one request/response exchange with the daemon.
type Sender interface {
	SendCommand(ctx context.Context, token string) (string, error)
}

// Step is one entry of the auto sequence.
type Step struct {
	Command     protocol.Command
	Description string
}

// StepResult is the outcome of one round trip.
type StepResult struct {
	Step  Step
	Reply string
	Err   error
}

// Result collects the round trips issued by one invocation.
type Result struct {
	Steps []StepResult
}

// Err returns the first failed round trip's error, if any.
func (r Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// AutoSequence leaves the device in the normal state regardless of where it started.
var AutoSequence = []Step{
	{protocol.CmdStatus, "Query current status"},
	{protocol.CmdNormal, "Set normal run state"},
	{protocol.CmdReset, "Reset the device"},
	{protocol.CmdDFU, "Enter DFU mode"},
	{protocol.CmdNormal, "Restore normal state"},
}

// testModeSteps are appended to AutoSequence when the extended run is enabled.
var testModeSteps = []Step{
	{protocol.CmdTest, "Enter test mode"},
	{protocol.CmdStatus, "Query status in test mode"},
	{protocol.CmdTestExit, "Leave test mode"},
	{protocol.CmdStatus, "Query status after test mode"},
}

// Dispatcher drives the one-shot, auto and interactive modes.
type Dispatcher struct {
	sender    Sender
	printer   *ui.Printer
	stepDelay time.Duration
	prompt    string
	extended  bool
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithStepDelay sets the pause between auto-sequence steps.
func WithStepDelay(d time.Duration) Option {
	return func(ds *Dispatcher) { ds.stepDelay = d }
}

// WithPrompt sets the REPL prompt.
func WithPrompt(prompt string) Option {
	return func(ds *Dispatcher) { ds.prompt = prompt }
}

// WithExtendedAuto appends the test-mode steps to the auto sequence.
func WithExtendedAuto(extended bool) Option {
	return func(ds *Dispatcher) { ds.extended = extended }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ds *Dispatcher) {
		if logger != nil {
			ds.logger = logger
		}
	}
}

// New creates a dispatcher.
func New(sender Sender, printer *ui.Printer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		printer:   printer,
		stepDelay: DefaultStepDelay,
		prompt:    DefaultPrompt,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sequence returns the steps RunAuto will issue.
func (d *Dispatcher) Sequence() []Step {
	steps := append([]Step(nil), AutoSequence...)
	if d.extended {
		steps = append(steps, testModeSteps...)
	}
	return steps
}

// RunOnce executes a single named command and prints the raw reply without
// color. "auto" runs the auto sequence. Round-trip failures are printed and
// reported in the Result, not as the returned error.
func (d *Dispatcher) RunOnce(ctx context.Context, name string) (Result, error) {
	if name == AutoCommand {
		return Result{Steps: d.RunAuto(ctx)}, nil
	}

	cmd, err := protocol.ParseCommand(name)
	if err != nil {
		return Result{}, fmt.Errorf("%w '%s'", ErrUnknownCommand, name)
	}

	res := d.send(ctx, Step{Command: cmd})
	if res.Err != nil {
		d.printer.Raw(DescribeError(res.Err))
	} else {
		d.printer.Raw(res.Reply)
	}
	return Result{Steps: []StepResult{res}}, nil
}

// RunAuto issues every step of the sequence on its own connection, pausing
// between steps. A failed step is printed and the sequence continues.
// Cancelling ctx stops the sequence at the next pause.
func (d *Dispatcher) RunAuto(ctx context.Context) []StepResult {
	steps := d.Sequence()
	results := make([]StepResult, 0, len(steps))

	d.printer.Banner("Starting auto test")
	for i, step := range steps {
		d.printer.Step(i+1, step.Description)
		res := d.send(ctx, step)
		d.render(res)
		results = append(results, res)

		if i < len(steps)-1 && !d.pause(ctx) {
			d.printer.Warning("Auto test interrupted")
			return results
		}
	}
	d.printer.Banner("Auto test complete")
	return results
}

func (d *Dispatcher) send(ctx context.Context, step Step) StepResult {
	d.logger.Debug("dispatching command", "command", step.Command.Token())
	reply, err := d.sender.SendCommand(ctx, step.Command.Token())
	return StepResult{Step: step, Reply: reply, Err: err}
}

// render prints a result in the interactive style.
func (d *Dispatcher) render(res StepResult) {
	if res.Err != nil {
		d.printer.Failure(DescribeError(res.Err))
		return
	}
	d.printer.Response(res.Reply)
}

// pause waits for the step delay. It reports false if ctx ended first.
func (d *Dispatcher) pause(ctx context.Context) bool {
	if d.stepDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// DescribeError converts a round-trip failure into user-facing text.
func DescribeError(err error) string {
	var ce *client.Error
	if !errors.As(err, &ce) {
		return fmt.Sprintf("Error: %v", err)
	}
	switch ce.Kind {
	case client.KindConnectionRefused:
		return fmt.Sprintf("Error: connection refused by %s, make sure the GPIO daemon is running", ce.Endpoint)
	case client.KindTimeout:
		return fmt.Sprintf("Error: timed out talking to %s", ce.Endpoint)
	default:
		return fmt.Sprintf("Error: %v", ce)
	}
}
