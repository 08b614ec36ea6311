package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/john/chatbridge/internal/config"
	"github.com/john/chatbridge/internal/kick"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:     "resolve-kick-channels <channel> [channel...]",
		Short:   "Resolve Kick channel slugs to chatroom IDs for config.yaml",
		Example: "  resolve-kick-channels paymoneywubby xqc",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return run(ctx, cmd, args)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout for all lookups")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, slugs []string) error {
	out := cmd.OutOrStdout()
	resolver := kick.NewResolver()

	fmt.Fprintf(out, "Resolving %d Kick channel(s)...\n\n", len(slugs))

	var resolved []kick.ChannelConfig
	failed := 0
	for _, slug := range slugs {
		info, err := resolver.Resolve(ctx, slug)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", slug, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d\n", info.Slug, info.Chatroom.ID)
		resolved = append(resolved, kick.ChannelConfig{Slug: info.Slug, ChatroomID: info.Chatroom.ID})
	}

	if len(resolved) > 0 {
		fmt.Fprintln(out, "\nAdd this to your config.yaml:")
		fmt.Fprintln(out, "---")
		if err := writeSnippet(out, resolved); err != nil {
			return err
		}
	}

	if failed == len(slugs) {
		return fmt.Errorf("no channels could be resolved")
	}
	return nil
}

// writeSnippet renders the kick section exactly as config.Load parses it
func writeSnippet(w io.Writer, channels []kick.ChannelConfig) error {
	snippet := struct {
		Kick config.KickConfig `yaml:"kick"`
	}{
		Kick: config.KickConfig{Enabled: true, Channels: channels},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snippet); err != nil {
		return fmt.Errorf("encode config snippet: %w", err)
	}
	return enc.Close()
}
