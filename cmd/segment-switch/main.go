// Segment switch is a terminal settings screen for multi-segment business
// apps. It switches the active business segment, re-themes the interface and
// reconnects to the segment's backend, and exposes the same operations as
// plain subcommands for scripts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/litescript/ls-segment-switch/internal/config"
	"github.com/litescript/ls-segment-switch/internal/version"
)

const usage = `usage: segment-switch [flags] [command]

commands:
  (none)                               open the settings screen
  status                               show the active segment, theme and connections
  segments                             list the catalog's segments
  modules [segment]                    list a segment's modules in layout order
  switch <segment>                     switch the active segment
  provision <segment> <url> <key>      store a segment's backend connection
  unprovision <segment>                remove a segment's backend connection

flags:
`

type options struct {
	configPath  string
	debug       bool
	checkUpdate bool
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("segment-switch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.checkUpdate, "check-update", false, "check for a newer release and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&opts.showVersion, "v", false, "print version and exit (short)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "segment-switch v%s\n", version.Version)
		return 0
	}
	if opts.checkUpdate {
		return printUpdate(ctx, stdout, stderr)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}

	rest := fs.Args()
	if len(rest) == 0 {
		if err := runTUI(ctx, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		fs.Usage()
		return 2
	}
	if len(rest)-1 < cmd.minArgs || len(rest)-1 > cmd.maxArgs {
		fmt.Fprintf(stderr, "usage: segment-switch %s\n", cmd.usage)
		return 2
	}

	a, err := newApp(ctx, cfg, appOptions{stderr: stderr, notify: stderrNotifier(stderr)})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, rest[1:], stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func printUpdate(ctx context.Context, stdout, stderr io.Writer) int {
	info := version.CheckForUpdate(ctx)
	if info.Error != nil {
		fmt.Fprintf(stderr, "Error: %v\n", info.Error)
		return 1
	}
	if info.UpdateAvailable {
		fmt.Fprintf(stdout, "Update available: %s -> %s\n  %s\n", info.CurrentVersion, info.LatestVersion, version.InstallCommand())
		return 0
	}
	fmt.Fprintf(stdout, "segment-switch v%s is up to date\n", info.CurrentVersion)
	return 0
}
