// jssuggest infers coarse types for JavaScript variable declarations and
// lists the built-in methods available on each.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/phobologic/jssuggest/internal/config"
	"github.com/phobologic/jssuggest/internal/discover"
	"github.com/phobologic/jssuggest/internal/encode"
	"github.com/phobologic/jssuggest/internal/filter"
	"github.com/phobologic/jssuggest/internal/lang"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/scan"
	"github.com/phobologic/jssuggest/internal/suggest"
)

var version = "dev"

var errNoFiles = errors.New("no parseable files found")

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runContext(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return runContext(context.Background(), args, os.Stdin, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// cliOptions holds flag values. Flags that mirror config keys only override
// the config when set explicitly.
type cliOptions struct {
	configPath  string
	verbose     bool
	format      string
	ecmaVersion string
	edition     int
	inherited   bool
	languages   []string
	maxFiles    int
	maxFileSize int64
	skipTests   bool
	workers     int
	prefix      string
	typeName    string
	cachePath   string
	showVersion bool
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	opts   cliOptions
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jssuggest [flags] [path|-]",
		Short: "Suggest built-in methods for JavaScript variables",
		Long: `jssuggest parses JavaScript or TypeScript sources, infers a coarse type
(Array, String, Object, Boolean or Number) for every variable initialized with
a literal, and lists the built-in methods available on that type.

path may be a file, a directory (scanned recursively) or - for stdin. It
defaults to the current directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runScan,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "TOML config file (default "+config.FileName+" in the scanned directory)")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "debug logging")
	pf.StringVarP(&a.opts.format, "format", "f", "json", "output format: json, yaml or toon")
	pf.StringVar(&a.opts.ecmaVersion, "ecma-version", "", "syntax profile: 3, 5, 6-16, 2015-2025 or latest (default 2020)")
	pf.IntVar(&a.opts.edition, "edition", 0, "restrict method catalogs to an ECMAScript edition")
	pf.BoolVar(&a.opts.inherited, "inherited", false, "append Object.prototype members to every suggestion")
	pf.StringSliceVarP(&a.opts.languages, "langs", "l", nil, "comma-separated languages to include")
	pf.IntVarP(&a.opts.maxFiles, "max-files", "n", 0, "maximum number of files to include")
	pf.Int64Var(&a.opts.maxFileSize, "max-file-size", config.DefaultMaxFileSize, "skip files larger than this many bytes")
	pf.BoolVar(&a.opts.skipTests, "skip-tests", false, "skip test files")
	pf.IntVar(&a.opts.workers, "workers", 0, "parse workers (default GOMAXPROCS)")
	pf.StringVarP(&a.opts.prefix, "prefix", "p", "", "keep variables whose name starts with this prefix")
	pf.StringVarP(&a.opts.typeName, "type", "t", "", "keep variables of this type")

	cmd.Flags().StringVar(&a.opts.cachePath, "cache", "", "cache file path")
	cmd.Flags().BoolVarP(&a.opts.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(a.completeCmd(), a.watchCmd(), a.catalogCmd(), a.initCmd())
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	if a.opts.showVersion {
		_, _ = fmt.Fprintf(a.stdout, "jssuggest %s\n", version)
		return nil
	}

	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := a.settings(cmd, target)
	if err != nil {
		return err
	}
	pred, err := a.predicate()
	if err != nil {
		return err
	}

	if target == "-" {
		m, err := a.suggestStdin(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return encode.Map(a.stdout, filter.Map(m, pred), a.encodeOptions(cfg))
	}

	root, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		m, err := suggestFile(cmd.Context(), cfg, root)
		if err != nil {
			return err
		}
		return encode.Map(a.stdout, filter.Map(m, pred), a.encodeOptions(cfg))
	}

	files, err := discoverFiles(root, cfg)
	if err != nil {
		return err
	}

	// Filtered output is never cached.
	useCache := a.opts.cachePath != "" && pred == nil
	var key []byte
	if useCache {
		key, err = a.cacheKey(root, cfg)
		if err != nil {
			return err
		}
	}

	// Check cache freshness
	if useCache && cacheIsFresh(a.opts.cachePath, key, root, files) {
		data, err := os.ReadFile(a.opts.cachePath)
		if err == nil {
			log.Debug().Str("cache", a.opts.cachePath).Msg("serving cached output")
			_, _ = a.stdout.Write(data)
			return nil
		}
	}

	r, err := buildReport(cmd.Context(), root, files, cfg, pred)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encode.Report(&buf, r, a.encodeOptions(cfg)); err != nil {
		return err
	}

	if useCache {
		if err := writeCache(a.opts.cachePath, key, buf.Bytes()); err != nil {
			log.Warn().Err(err).Str("cache", a.opts.cachePath).Msg("failed to write cache")
		}
	}

	_, err = a.stdout.Write(buf.Bytes())
	return err
}

// settings resolves the config file, environment and explicitly set flags,
// in increasing order of precedence.
func (a *app) settings(cmd *cobra.Command, target string) (*config.Config, error) {
	path := a.opts.configPath
	if path == "" {
		path = config.Find(configDir(target))
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Format = a.opts.format
	}
	if f.Changed("ecma-version") {
		cfg.ECMAVersion = config.Version(a.opts.ecmaVersion)
	}
	if f.Changed("edition") {
		cfg.Edition = a.opts.edition
	}
	if f.Changed("inherited") {
		cfg.Inherited = a.opts.inherited
	}
	if f.Changed("langs") {
		cfg.Languages = a.opts.languages
	}
	if f.Changed("max-files") {
		cfg.MaxFiles = a.opts.maxFiles
	}
	if f.Changed("max-file-size") {
		cfg.MaxFileSize = a.opts.maxFileSize
	}
	if f.Changed("skip-tests") {
		cfg.SkipTests = a.opts.skipTests
	}
	if f.Changed("workers") {
		cfg.Workers = a.opts.workers
	}
	if a.opts.verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if path != "" {
		log.Debug().Str("config", path).Msg("loaded config")
	}
	return cfg, nil
}

func configDir(target string) string {
	if target == "-" {
		return "."
	}
	if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
		return filepath.Dir(target)
	}
	return target
}

func (a *app) predicate() (filter.Predicate, error) {
	var preds []filter.Predicate
	if a.opts.prefix != "" {
		preds = append(preds, filter.ByPrefix(a.opts.prefix))
	}
	if a.opts.typeName != "" {
		tag, err := model.ParseTypeTag(a.opts.typeName)
		if err != nil {
			return nil, err
		}
		preds = append(preds, filter.ByType(tag))
	}
	return filter.All(preds...), nil
}

func (a *app) encodeOptions(cfg *config.Config) encode.Options {
	return encode.Options{Format: cfg.OutputFormat(), Pretty: isTerminal(a.stdout)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newEngine(cfg *config.Config, language string) (*suggest.Engine, error) {
	return suggest.New(suggest.Options{
		Language:    language,
		ECMAVersion: cfg.Version(),
		Edition:     cfg.Edition,
		Inherited:   cfg.Inherited,
	})
}

// stdinLanguage is the first configured language, javascript by default.
func stdinLanguage(cfg *config.Config) string {
	if len(cfg.Languages) > 0 {
		return cfg.Languages[0]
	}
	return lang.Default
}

func (a *app) suggestStdin(ctx context.Context, cfg *config.Config) (model.SuggestionMap, error) {
	source, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	engine, err := newEngine(cfg, stdinLanguage(cfg))
	if err != nil {
		return nil, err
	}
	m, err := engine.Suggest(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("<stdin>: %w", err)
	}
	return m, nil
}

func suggestFile(ctx context.Context, cfg *config.Config, path string) (model.SuggestionMap, error) {
	name := lang.ForExtension(filepath.Ext(path))
	if name == "" {
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg, name)
	if err != nil {
		return nil, err
	}
	m, err := engine.Suggest(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func discoverFiles(root string, cfg *config.Config) ([]discover.FileEntry, error) {
	files, err := discover.Files(root, discover.Options{Languages: cfg.Languages, SkipTests: cfg.SkipTests})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, errNoFiles
	}
	return files, nil
}

func buildReport(ctx context.Context, root string, files []discover.FileEntry, cfg *config.Config, pred filter.Predicate) (*model.Report, error) {
	files = scan.FilterBySize(root, files, cfg.MaxFileSize)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w (all exceeded size limit)", errNoFiles)
	}

	engine, err := newEngine(cfg, "")
	if err != nil {
		return nil, err
	}
	results, err := scan.Files(ctx, root, files, engine, cfg.Workers)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no files could be read")
	}

	r := &model.Report{
		Root:  filepath.Base(root),
		Files: results,
	}
	r = filter.SelectFiles(r, cfg.MaxFiles)
	return filter.Variables(r, pred), nil
}

// cacheKey identifies everything besides the sources that shapes a rendered
// report. It is stored next to the cache in a ".key" file.
func (a *app) cacheKey(root string, cfg *config.Config) ([]byte, error) {
	key, err := json.Marshal(struct {
		Version     string   `json:"version"`
		Root        string   `json:"root"`
		ECMAVersion int      `json:"ecma_version"`
		Format      string   `json:"format"`
		Pretty      bool     `json:"pretty"`
		Edition     int      `json:"edition"`
		Inherited   bool     `json:"inherited"`
		MaxFileSize int64    `json:"max_file_size"`
		MaxFiles    int      `json:"max_files"`
		Languages   []string `json:"languages"`
		SkipTests   bool     `json:"skip_tests"`
	}{
		Version:     version,
		Root:        root,
		ECMAVersion: int(cfg.Version()),
		Format:      string(cfg.OutputFormat()),
		Pretty:      a.encodeOptions(cfg).Pretty,
		Edition:     cfg.Edition,
		Inherited:   cfg.Inherited,
		MaxFileSize: cfg.MaxFileSize,
		MaxFiles:    cfg.MaxFiles,
		Languages:   cfg.Languages,
		SkipTests:   cfg.SkipTests,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding cache key: %w", err)
	}
	return key, nil
}

func cacheKeyPath(cachePath string) string {
	return cachePath + ".key"
}

func writeCache(cachePath string, key, data []byte) error {
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(cacheKeyPath(cachePath), key, 0o644)
}

// cacheIsFresh reports whether the cache at cachePath was rendered with key
// and is newer than every source file.
func cacheIsFresh(cachePath string, key []byte, root string, files []discover.FileEntry) bool {
	stored, err := os.ReadFile(cacheKeyPath(cachePath))
	if err != nil || !bytes.Equal(stored, key) {
		return false
	}

	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}
