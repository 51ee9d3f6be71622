package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"unichat-router/internal/chat"
	"unichat-router/internal/models"
)

const chatUsage = `Usage:
  unichat-router chat [--config <path>] [--provider <id>] [--system <text>]

Flags:
  --config   string   Path to YAML configuration file (optional)
  --provider string   Preferred provider to try first (ollama|gemini|openai)
  --system   string   System instruction for the session

Session commands:
  /clear    Drop the transcript and start over
  /quit     Exit`

func chatSession(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, chatUsage)
	}

	var cfgPath, preferred, system string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&preferred, "provider", "", "preferred provider")
	fs.StringVar(&system, "system", "", "system instruction")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse chat flags: %w", err)
	}

	rt, _, err := buildRouter(cfgPath)
	if err != nil {
		return err
	}

	conv := chat.NewConversation(rt, models.GenerationParams{PreferredProvider: preferred})
	if system != "" {
		conv.SetSystemInstruction(system)
	}

	fmt.Println("unichat-router interactive session (/quit to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/clear":
			conv.Clear()
			fmt.Println("transcript cleared")
			continue
		}

		reply, err := conv.Send(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		if p := conv.CurrentProvider(); p != "" {
			fmt.Printf("[%s] %s\n", p, reply)
		} else {
			fmt.Println(reply)
		}
	}
}
