package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `unichat-router is a multi-provider AI chat router with automatic failover.

Usage:
  unichat-router serve [flags]
  unichat-router chat  [flags]

Commands:
  serve    Start the HTTP server
  chat     Start an interactive chat session on the terminal

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "chat":
		return chatSession(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
