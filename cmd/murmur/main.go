// Murmur is a voice assistant core.
//
// It connects an OpenAI-compatible chat model to a set of local tools:
// Spotify playback, timers, news, internet search, device volume, and
// conversation history. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	murmur init [dir]          Initialize a working directory with defaults
//	murmur ask <text>          Process a single request and print the answer
//	murmur repl                Interactive conversation loop
//	murmur tool <name> [args]  Invoke a single tool directly
//	murmur auth spotify        Link a Spotify account
//	murmur version             Print version and build information
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/murmur-assistant/murmur/internal/assistant"
	"github.com/murmur-assistant/murmur/internal/buildinfo"
	"github.com/murmur-assistant/murmur/internal/config"
	"github.com/murmur-assistant/murmur/internal/history"
	"github.com/murmur-assistant/murmur/internal/llm"
	"github.com/murmur-assistant/murmur/internal/news"
	"github.com/murmur-assistant/murmur/internal/search"
	"github.com/murmur-assistant/murmur/internal/spotify"
	"github.com/murmur-assistant/murmur/internal/timer"
	"github.com/murmur-assistant/murmur/internal/tools"
	"github.com/murmur-assistant/murmur/internal/volume"
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run]. This keeps os.Exit, os.Stdout, and
// os.Args out of the application logic so the command lifecycle can be
// driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the murmur command. All OS-level
// dependencies are injected as parameters. It returns nil on clean
// shutdown and a non-nil error for any failure; the caller is
// responsible for printing the error and exiting.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: murmur ask <text>")
		}
		return runAsk(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "repl":
		return runRepl(ctx, stdin, stdout, configPath)
	case "tool":
		return runTool(ctx, stdout, configPath, cmdArgs)
	case "auth":
		if len(cmdArgs) == 0 || cmdArgs[0] != "spotify" {
			return fmt.Errorf("usage: murmur auth spotify")
		}
		return runAuth(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// printUsage writes the top-level help text to w. It is called when
// murmur is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Murmur - Voice Assistant Core")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: murmur [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  init [dir]          Initialize a working directory (default: .)")
	fmt.Fprintln(w, "  ask <text>          Process a single request and print the answer")
	fmt.Fprintln(w, "  repl                Interactive conversation loop")
	fmt.Fprintln(w, "  tool <name> [args]  Invoke a single tool directly")
	fmt.Fprintln(w, "  auth spotify        Link a Spotify account")
	fmt.Fprintln(w, "  version             Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./murmur.yaml, ~/.config/murmur/murmur.yaml, /etc/murmur/murmur.yaml")
	return nil
}

// runVersion prints build metadata.
func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// app bundles everything a subcommand needs: parsed config, logger,
// the tool registry with all tools registered, and the stores behind
// them. Close releases the stores.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *tools.Registry
	loop     *assistant.Loop
	history  *history.Store
	timers   *timer.Store
	spotify  *spotify.Session
}

func (a *app) Close() error {
	return errors.Join(a.history.Close(), a.timers.Close())
}

// newApp loads configuration and wires the full tool registry. Logs go
// to logw as structured text at the configured level.
func newApp(logw io.Writer, configPath string) (*app, error) {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, err = config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}
	logger := newLogger(logw, level)
	logger.Debug("config loaded", "path", cfgPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	registry := tools.NewRegistry(logger)
	if err := tools.RegisterBuiltins(registry); err != nil {
		return nil, err
	}

	session := spotify.NewSession(cfg.Spotify, spotify.NewFileTokenStore(cfg.Spotify.TokenFile), logger)
	if err := spotify.RegisterTools(registry, session); err != nil {
		return nil, err
	}

	historyStore, err := history.NewStore(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	if err := history.RegisterTool(registry, historyStore); err != nil {
		return nil, err
	}

	timerStore, err := timer.NewStore(filepath.Join(cfg.DataDir, "timers.db"))
	if err != nil {
		return nil, fmt.Errorf("open timer store: %w", err)
	}
	if err := timer.RegisterTools(registry, timerStore); err != nil {
		return nil, err
	}

	if err := news.RegisterTool(registry, news.NewClient(cfg.News.FeedURL, logger)); err != nil {
		return nil, err
	}
	if err := search.RegisterTool(registry, search.NewClient(cfg.Search.PerplexityAPIKey, logger)); err != nil {
		return nil, err
	}
	if err := volume.RegisterTools(registry, volume.NewController(nil, logger)); err != nil {
		return nil, err
	}

	llmClient := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, logger)
	loop := assistant.New(llmClient, registry, cfg.LLM.Model, cfg.Assistant.MaxToolIterations, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		loop:     loop,
		history:  historyStore,
		timers:   timerStore,
		spotify:  session,
	}, nil
}

// runAsk handles "murmur ask <text>": one interaction, answer to stdout.
func runAsk(ctx context.Context, stdout io.Writer, configPath, text string) error {
	a, err := newApp(stdout, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.loop.Run(ctx, text)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	if err := a.history.Save(result); err != nil {
		a.logger.Warn("failed to save interaction history", "error", err)
	}

	fmt.Fprintln(stdout, result.FinalResponse)
	return nil
}

// runRepl handles "murmur repl": a line-oriented conversation loop with
// the timer watcher running in the background so expired timers are
// announced between prompts.
func runRepl(ctx context.Context, stdin io.Reader, stdout io.Writer, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(stdout, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher := timer.NewWatcher(a.timers, func(t timer.Timer) {
		fmt.Fprintln(stdout, timer.Announcement(t))
	}, a.logger)
	go watcher.Run(ctx)

	fmt.Fprintln(stdout, "Murmur ready. Type a request, or 'exit' to quit.")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result, err := a.loop.Run(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(stdout, "error: %s\n", err)
			continue
		}
		if err := a.history.Save(result); err != nil {
			a.logger.Warn("failed to save interaction history", "error", err)
		}
		fmt.Fprintln(stdout, result.FinalResponse)
	}
	fmt.Fprintln(stdout, "Goodbye.")
	return scanner.Err()
}

// runTool handles "murmur tool <name> [args]": direct tool invocation
// without involving the model. Useful for scripting and debugging.
func runTool(ctx context.Context, stdout io.Writer, configPath string, cmdArgs []string) error {
	a, err := newApp(stdout, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(cmdArgs) == 0 {
		fmt.Fprintln(stdout, "usage: murmur tool <name> [args]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Available tools:")
		for _, name := range a.registry.Names() {
			fmt.Fprintf(stdout, "  %s\n", name)
		}
		return nil
	}

	result, err := a.registry.ExecuteCLI(ctx, cmdArgs[0], cmdArgs[1:])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, result)
	return nil
}

// runAuth handles "murmur auth spotify": the one-time OAuth linking
// flow. It opens the authorization page in a browser and waits for the
// redirect on the configured callback address.
func runAuth(ctx context.Context, stdout io.Writer, configPath string) error {
	a, err := newApp(stdout, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.spotify.Configured() {
		return fmt.Errorf("spotify client_id and client_secret must be set in the config file")
	}

	return a.spotify.Authorize(ctx, openBrowser, stdout)
}

// openBrowser opens url in the default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// newLogger creates a structured text logger writing to w at the given
// level. All log output in Murmur goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
// Otherwise, [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
