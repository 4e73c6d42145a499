package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/commitgen/pkg/config"
)

const version = "1.0.0"

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			runCmd := flag.NewFlagSet("run", flag.ExitOnError)
			runCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen run [flags] [repo-path]\n\nRun the configured external generator and deliver its result.\n\nFlags:\n")
				runCmd.PrintDefaults()
			}
			opts := bindGenerateFlags(runCmd)
			_ = runCmd.Parse(os.Args[2:])
			opts.repoPath = repoArg(runCmd.Args())

			os.Exit(withSignals(func(ctx context.Context) int {
				return runController(ctx, *opts, os.Stdout, os.Stderr)
			}))
		case "hook":
			hookCmd := flag.NewFlagSet("hook", flag.ExitOnError)
			hookCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen hook <message-file> [source [sha]]\n\nprepare-commit-msg entry point. Seeds the commit editor with a generated message.\n\nFlags:\n")
				hookCmd.PrintDefaults()
			}
			opts := bindGenerateFlags(hookCmd)
			_ = hookCmd.Parse(os.Args[2:])

			// Git runs hooks from the top of the working tree.
			opts.repoPath = "."

			if hookCmd.NArg() < 1 {
				hookCmd.Usage()
				os.Exit(2)
			}

			os.Exit(withSignals(func(ctx context.Context) int {
				return runHook(ctx, hookCmd.Args(), *opts, os.Stderr)
			}))
		case "install-hook", "uninstall-hook":
			install := os.Args[1] == "install-hook"
			hookCmd := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
			hookCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen %s [repo-path]\n\nManage the prepare-commit-msg hook of a repository.\n\nFlags:\n", os.Args[1])
				hookCmd.PrintDefaults()
			}
			_ = hookCmd.Parse(os.Args[2:])

			os.Exit(withSignals(func(ctx context.Context) int {
				return runManageHook(ctx, install, repoArg(hookCmd.Args()), os.Stdout, os.Stderr)
			}))
		case "doctor":
			doctorCmd := flag.NewFlagSet("doctor", flag.ExitOnError)
			doctorCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen doctor [flags] [repo-path]\n\nProbe the external generator's interpreter and dependencies.\n\nFlags:\n")
				doctorCmd.PrintDefaults()
			}
			configPath := doctorCmd.String("config", "", "path to configuration file")
			install := doctorCmd.Bool("install", false, "install missing dependencies with pip")
			_ = doctorCmd.Parse(os.Args[2:])

			os.Exit(withSignals(func(ctx context.Context) int {
				return runDoctor(ctx, *configPath, repoArg(doctorCmd.Args()), *install, os.Stdout, os.Stderr)
			}))
		case "init":
			initCmd := flag.NewFlagSet("init", flag.ExitOnError)
			initCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen init [repo-path]\n\nCreate a %s through an interactive wizard.\n\nFlags:\n", config.DefaultName)
				initCmd.PrintDefaults()
			}
			_ = initCmd.Parse(os.Args[2:])

			if err := runInit(repoArg(initCmd.Args())); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}

			return
		case "mcp":
			mcpCmd := flag.NewFlagSet("mcp", flag.ExitOnError)
			mcpCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: commitgen mcp [flags]\n\nServe the generate_commit_message tool over MCP stdio.\n\nFlags:\n")
				mcpCmd.PrintDefaults()
			}
			configPath := mcpCmd.String("config", "", "path to configuration file")
			envFile := mcpCmd.String("env", ".env", "path to .env file (ignored if missing)")
			_ = mcpCmd.Parse(os.Args[2:])

			os.Exit(withSignals(func(ctx context.Context) int {
				if err := runMCP(ctx, *configPath, *envFile); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					return 1
				}
				return 0
			}))
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: commitgen [flags] [repo-path]\n       commitgen <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  run             Run the configured external generator and deliver its result\n  hook            prepare-commit-msg entry point\n  install-hook    Install the prepare-commit-msg hook\n  uninstall-hook  Remove the prepare-commit-msg hook\n  doctor          Probe the external generator's interpreter and dependencies\n  init            Create a %s through an interactive wizard\n  mcp             Serve commit message generation over MCP stdio\n", config.DefaultName)
	}

	opts := bindGenerateFlags(flag.CommandLine)
	flag.Parse()
	opts.repoPath = repoArg(flag.Args())

	os.Exit(withSignals(func(ctx context.Context) int {
		return runGenerate(ctx, *opts, os.Stdout, os.Stderr)
	}))
}

// withSignals runs fn under a context cancelled by SIGINT or SIGTERM.
func withSignals(fn func(ctx context.Context) int) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fn(ctx)
}

// bindGenerateFlags registers the generation flags shared by the default
// command, run, and hook on fs and returns their destination.
func bindGenerateFlags(fs *flag.FlagSet) *generateOptions {
	opts := &generateOptions{}

	fs.StringVar(&opts.apiKey, "api-key", "", "API key (default: config or environment)")
	fs.StringVar(&opts.model, "model", "", "model to use (default: provider default)")
	fs.Float64Var(&opts.temperature, "temperature", -1, "generation temperature (default 0.3)")
	fs.IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens (default 100)")
	fs.BoolVar(&opts.jsonOut, "json", false, "output as JSON")
	fs.BoolVar(&opts.copyOut, "copy", false, "copy the generated message to the clipboard")
	fs.StringVar(&opts.configPath, "config", "", "path to configuration file")
	fs.StringVar(&opts.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.BoolVar(&opts.verbose, "verbose", false, "show analysis details and token usage")

	return opts
}

// repoArg returns the positional repository path, defaulting to ".".
func repoArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}

	return "."
}
