// Package scan runs the suggestion engine over many files concurrently.
package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/jssuggest/internal/discover"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/suggest"
)

// FilterBySize drops files larger than maxSize bytes. Files that cannot be
// stat'ed are kept; reading them later reports the problem.
func FilterBySize(root string, files []discover.FileEntry, maxSize int64) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > maxSize {
			log.Warn().Str("file", f.Path).Int64("limit", maxSize).Msg("scan: skipped oversized file")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// Files runs engine over every file under root using up to workers
// goroutines (GOMAXPROCS when workers <= 0). Results keep the order of files.
// A file that fails to parse is reported through its Err field; a file that
// cannot be read is dropped with a warning. Only cancellation of ctx aborts
// the scan.
func Files(ctx context.Context, root string, files []discover.FileEntry, engine *suggest.Engine, workers int) ([]model.FileSuggestions, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}

	work := make(chan int, len(files))
	for i := range files {
		work <- i
	}
	close(work)

	indexed := make([]model.FileSuggestions, len(files))
	valid := make([]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			// Each goroutine gets its own parsers
			parsers := make(map[string]*parserPair)

			for idx := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				f := files[idx]
				pp, ok := parsers[f.Language]
				if !ok {
					e, err := engine.ForLanguage(f.Language)
					if err != nil {
						log.Warn().Err(err).Str("file", f.Path).Msg("scan: no engine for language")
						continue
					}
					pp = &parserPair{engine: e, parser: e.Language().NewParser()}
					parsers[f.Language] = pp
				}

				source, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					log.Warn().Err(err).Str("file", f.Path).Msg("scan: failed to read")
					continue
				}

				fs, err := pp.run(ctx, f, source)
				if err != nil {
					return err
				}
				indexed[idx] = fs
				valid[idx] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.FileSuggestions
	for i, v := range valid {
		if v {
			out = append(out, indexed[i])
		}
	}
	return out, nil
}

type parserPair struct {
	engine *suggest.Engine
	parser *sitter.Parser
}

// run returns an error only when ctx is done.
func (pp *parserPair) run(ctx context.Context, f discover.FileEntry, source []byte) (model.FileSuggestions, error) {
	fs := model.FileSuggestions{Path: filepath.ToSlash(f.Path), Language: f.Language}
	m, err := pp.engine.SuggestWith(ctx, pp.parser, source)
	switch {
	case err == nil:
		fs.Suggestions = m
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return fs, err
	default:
		log.Warn().Err(err).Str("file", f.Path).Msg("scan: failed to parse")
		fs.Err = err.Error()
		fs.Suggestions = model.SuggestionMap{}
	}
	return fs, nil
}
