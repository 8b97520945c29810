package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/gptutor/internal/config"
)

// cmdInit creates ~/.gptutor with a default configuration
func cmdInit(in *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "GPTutor - First-Time Setup")
	fmt.Fprintln(out, "==========================")
	fmt.Fprintln(out)

	fmt.Fprint(out, "Creating ~/.gptutor directory structure... ")
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Fprintln(out, "✓")

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprint(out, "Creating default configuration... ")
		if err := config.Save(config.Default(), path); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(out, "✓")
	} else {
		fmt.Fprintln(out, "Configuration already exists ✓")
	}

	fmt.Fprintln(out)
	key, err := prompt(in, out, "Enter OpenAI API key (or press Enter to skip): ")
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	if key != "" {
		if err := config.SaveSecrets(map[string]string{config.ProviderOpenAI: key}); err != nil {
			fmt.Fprintf(out, "  ⚠ Failed to save: %v\n", err)
		} else {
			fmt.Fprintln(out, "  ✓ Saved")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set session.secret in", path)
	fmt.Fprintln(out, "  2. gptutor migrate")
	fmt.Fprintln(out, "  3. gptutord")
	return nil
}

// cmdConfig prints the effective configuration with secrets masked
func cmdConfig(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(ctx, configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// cmdProvider manages completion provider API keys
func cmdProvider(ctx context.Context, args []string, in *bufio.Reader, out io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(out, `Provider management commands:

  gptutor provider list [file]     List configured providers
  gptutor provider set-key <name>  Set API key for a provider`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdProviderList(ctx, args[1:], out)
	case "set-key":
		if len(args) < 2 {
			return errors.New("provider name required")
		}
		return cmdProviderSetKey(args[1], in, out)
	default:
		return fmt.Errorf("unknown provider command: %s", args[0])
	}
}

func cmdProviderList(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(ctx, configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Fprintln(out, "Configured completion providers:")
	for _, name := range []string{config.ProviderOpenAI, config.ProviderClaude, config.ProviderOllama} {
		provider, ok := cfg.LLM.Providers[name]
		if !ok || provider == nil {
			continue
		}

		status := "disabled"
		if provider.Enabled {
			if provider.APIKey != "" || name == config.ProviderOllama {
				status = "ready"
			} else {
				status = "needs API key"
			}
		}

		isDefault := ""
		if name == cfg.LLM.DefaultProvider {
			isDefault = " (default)"
		}

		fmt.Fprintf(out, "  %s%s\n", name, isDefault)
		fmt.Fprintf(out, "    status: %s\n", status)
		fmt.Fprintf(out, "    model:  %s\n", provider.Model)
	}
	return nil
}

func cmdProviderSetKey(provider string, in *bufio.Reader, out io.Writer) error {
	switch provider {
	case config.ProviderOpenAI, config.ProviderClaude:
	case config.ProviderOllama:
		fmt.Fprintln(out, "Ollama doesn't require an API key.")
		return nil
	default:
		return fmt.Errorf("unknown provider: %s (valid: openai, claude, ollama)", provider)
	}

	key, err := prompt(in, out, fmt.Sprintf("Enter %s API key: ", provider))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	if err := config.SaveSecrets(map[string]string{provider: key}); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Fprintf(out, "✓ API key saved for %s\n", provider)
	fmt.Fprintln(out, "Restart gptutord for changes to take effect.")
	return nil
}
