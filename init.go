package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/jssuggest/internal/config"
)

const (
	sentinelStart = "# jssuggest:start"
	sentinelEnd   = "# jssuggest:end"
)

func (a *app) initCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [flags] [path]",
		Short: "Write a starter config block",
		Long: `Write a commented jssuggest config block to a TOML file. The block is wrapped
in sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist. Keys set
outside the block must not repeat keys inside it.

path defaults to ./` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInit(args, dryRun, a.stdout, a.stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// runInit implements `jssuggest init`.
func runInit(args []string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := config.FileName
	if len(args) > 0 {
		path = args[0]
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote jssuggest config to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped starter config.
func generateSection() string {
	return sentinelStart + "\n" + config.Starter + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}

	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
