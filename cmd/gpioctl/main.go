package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/d2verb/gpioctl/internal/config"
	"github.com/d2verb/gpioctl/internal/dispatch"
	"github.com/d2verb/gpioctl/internal/protocol"
)

var (
	version = "dev"
	commit  = "none"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  kong.ConfigFlag `help:"Config file path (default ~/.gpioctl/config.yaml)" placeholder:"PATH"`
	LogFile string          `name:"log-file" type:"path" env:"GPIOCTL_LOG_FILE" help:"Write diagnostic logs to this file" placeholder:"PATH"`
	NoColor bool            `name:"no-color" help:"Disable colored output"`
}

type CLI struct {
	Globals

	Client             ClientCmd                    `cmd:"" default:"withargs" hidden:"" help:"Send commands to the GPIO daemon"`
	Mock               MockCmd                      `cmd:"" help:"Run a mock GPIO daemon for testing"`
	Version            VersionCmd                   `cmd:"" help:"Show version"`
	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

// env carries the process I/O so commands can be run in tests.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// configPaths are loaded before flags are resolved; missing files are skipped.
	configPaths []string
	// paths locates the gpioctl home; nil when the home directory is unknown.
	paths *config.Paths
}

// commandNames lists everything accepted by --command.
func commandNames() []string {
	names := make([]string, 0, len(protocol.Commands)+1)
	for _, c := range protocol.Commands {
		names = append(names, c.Token())
	}
	return append(names, dispatch.AutoCommand)
}

func newParser(cli *CLI, e *env) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("gpioctl"),
		kong.Description("Test client for the GPIO control daemon.\n\nWithout --command an interactive prompt is started."),
		kong.Writers(e.stdout, e.stderr),
		kong.Configuration(yamlConfigLoader, e.configPaths...),
		kong.Vars{
			"default_host":    config.DefaultHost,
			"default_port":    strconv.Itoa(config.DefaultPort),
			"default_timeout": config.DefaultTimeout.String(),
			"default_delay":   config.DefaultStepDelay.String(),
			"commands":        strings.Join(commandNames(), ", "),
		},
	)
}

// run parses args and executes the selected command, returning the exit code.
func run(args []string, e *env) int {
	var cli CLI
	parser, err := newParser(&cli, e)
	if err != nil {
		fmt.Fprintf(e.stderr, "gpioctl: %v\n", err)
		return exitError
	}

	kongplete.Complete(parser, kongplete.WithPredictor("command", newCommandPredictor()))

	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(e.stderr, "gpioctl: error: %v\n", err)
		fmt.Fprintln(e.stderr, "Usage: gpioctl [-H host] [-p port] [-c command] [-A]. Run 'gpioctl --help' for details.")
		return exitError
	}

	if err := ctx.Run(&cli.Globals, e); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(e.stderr, exitErr.Message)
			}
			return exitErr.Code
		}
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitError
	}
	return exitSuccess
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{
		ctx:    ctx,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if paths, err := config.GetPaths(); err == nil {
		e.paths = paths
		e.configPaths = []string{paths.Config}
	}

	code := run(os.Args[1:], e)
	stop()
	os.Exit(code)
}
