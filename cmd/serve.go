package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"unichat-router/internal/config"
	"unichat-router/internal/provider"
	providerfactory "unichat-router/internal/provider/factory"
	"unichat-router/internal/router"
	"unichat-router/internal/server"
)

const serveUsage = `Usage:
  unichat-router serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to YAML configuration file (optional; environment
                    variables are always applied on top)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	rt, cfg, err := buildRouter(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	srv, err := server.New(cfg, rt)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// buildRouter assembles the registry and failover router shared by the serve
// and chat commands. Credentials come from .env, the process environment, or
// the optional config file.
func buildRouter(cfgPath string) (*router.Router, config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	registry := provider.NewRegistry(cfg.ProviderOrder())
	if err := providerfactory.RegisterConfiguredProviders(cfg, registry); err != nil {
		return nil, config.Config{}, err
	}

	return router.New(registry), cfg, nil
}
