package main

import (
	"context"
	"os"

	"github.com/germanamz/commitgen/pkg/mcptool"
)

// runMCP serves the commit message generator as a Model Context Protocol
// tool over stdio.
func runMCP(ctx context.Context, configPath, envFile string) error {
	if err := loadDotEnv(envFile); err != nil {
		return err
	}

	opts := generateOptions{configPath: configPath, repoPath: "."}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	srv := mcptool.New("commitgen", version)
	srv.Register(mcptool.GenerateTool(func(ctx context.Context, path string) (string, error) {
		callOpts := opts
		callOpts.repoPath = path

		gen, _, err := buildGenerator(cfg, callOpts, true)
		if err != nil {
			return "", err
		}

		res, err := gen.Run(ctx)
		if err != nil {
			return "", err
		}

		return res.Message, nil
	}))

	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
