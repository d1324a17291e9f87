package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/phobologic/jssuggest/internal/catalog"
	"github.com/phobologic/jssuggest/internal/config"
	"github.com/phobologic/jssuggest/internal/encode"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/suggest"
	"github.com/phobologic/jssuggest/internal/watch"
)

func (a *app) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <file|-> <query>",
		Short: "Complete a variable name or a name.method prefix",
		Long: `complete answers an autocomplete query against the suggestions of one
source. "items.fi" lists the methods of items starting with "fi" in catalog
order; a query without a dot lists the variable names starting with it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, query := args[0], args[1]
			cfg, err := a.settings(cmd, target)
			if err != nil {
				return err
			}

			var m model.SuggestionMap
			if target == "-" {
				m, err = a.suggestStdin(cmd.Context(), cfg)
			} else {
				m, err = suggestFile(cmd.Context(), cfg, target)
			}
			if err != nil {
				return err
			}

			for _, c := range suggest.Complete(m, query) {
				_, _ = fmt.Fprintln(a.stdout, c)
			}
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Rescan a directory whenever its sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			root, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
			if fi, err := os.Stat(root); err != nil {
				return fmt.Errorf("root path: %w", err)
			} else if !fi.IsDir() {
				return fmt.Errorf("%s: not a directory", root)
			}

			cfg, err := a.settings(cmd, root)
			if err != nil {
				return err
			}
			pred, err := a.predicate()
			if err != nil {
				return err
			}

			w, err := watch.New(root, watch.Options{
				Debounce:  cfg.Watch.DebounceOrDefault(),
				Languages: cfg.Languages,
			})
			if err != nil {
				return err
			}

			render := func(ctx context.Context) error {
				files, err := discoverFiles(root, cfg)
				if err == nil {
					var r *model.Report
					r, err = buildReport(ctx, root, files, cfg, pred)
					if err == nil {
						return encode.Report(a.stdout, r, a.encodeOptions(cfg))
					}
				}
				if errors.Is(err, errNoFiles) {
					log.Warn().Str("root", root).Msg(err.Error())
					return nil
				}
				return err
			}

			if err := render(cmd.Context()); err != nil {
				_ = w.Close()
				return err
			}
			log.Info().Str("root", root).Msg("watching for changes")

			return w.Run(cmd.Context(), func(ctx context.Context, changed []string) error {
				log.Info().Strs("files", changed).Msg("rescanning")
				return render(ctx)
			})
		},
	}
}

func (a *app) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [TYPE]",
		Short: "Print the built-in method catalogs",
		Long: `catalog prints every method catalog, or the one for TYPE (Array, String,
Object, Boolean or Number), with the ECMAScript edition that introduced each
method. --edition drops methods introduced later.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings(cmd, ".")
			if err != nil {
				return err
			}

			tags := model.Tags
			if len(args) > 0 {
				tag, err := model.ParseTypeTag(args[0])
				if err != nil {
					return err
				}
				tags = []model.TypeTag{tag}
			}

			entries := make([]encode.CatalogEntry, 0, len(tags))
			for _, tag := range tags {
				entries = append(entries, encode.CatalogEntry{
					Type:    tag,
					Methods: catalogFor(tag, cfg),
				})
			}
			return encode.Catalog(a.stdout, entries, a.encodeOptions(cfg))
		},
	}
}

// catalogFor lists tag's methods with the edition and inheritance settings
// of cfg applied.
func catalogFor(tag model.TypeTag, cfg *config.Config) []catalog.Method {
	methods := []catalog.Method{}
	have := make(map[string]struct{})
	add := func(entries []catalog.Method) {
		for _, m := range entries {
			if cfg.Edition != 0 && m.Since > cfg.Edition {
				continue
			}
			if _, ok := have[m.Name]; ok {
				continue
			}
			have[m.Name] = struct{}{}
			methods = append(methods, m)
		}
	}
	add(catalog.Entries(tag))
	if cfg.Inherited {
		add(catalog.Entries(model.Object))
	}
	return methods
}
