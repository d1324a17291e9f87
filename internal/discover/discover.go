// Package discover finds parseable source files under a directory.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/jssuggest/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to the scan root
	Language string
}

// Options narrows discovery.
type Options struct {
	// Languages restricts results to the listed languages when non-empty.
	Languages []string
	// SkipTests drops files that look like tests (see IsTestFile).
	SkipTests bool
}

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	"bower_components": {},
	"jspm_packages":    {},
	".git":             {},
	".hg":              {},
	".svn":             {},
	"build":            {},
	"dist":             {},
	"out":              {},
	"coverage":         {},
	".next":            {},
	".nuxt":            {},
	".cache":           {},
	".turbo":           {},
	"vendor":           {},
}

// SkipDir reports whether a directory of this name is never scanned.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".")
}

// Files discovers parseable source files under root.
func Files(root string, opts Options) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	} else {
		log.Debug().Int("files", len(gitFiles)).Msg("discover: using git ls-files")
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		// Minified bundles are generated output.
		if strings.Contains(name, ".min.") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		if opts.SkipTests && IsTestFile(rel) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// testDirs are directory names whose contents are test code.
var testDirs = map[string]struct{}{
	"__tests__": {},
	"__mocks__": {},
	"test":      {},
	"tests":     {},
	"spec":      {},
	"e2e":       {},
	"cypress":   {},
}

// IsTestFile reports whether a repo-relative path is test code, either by a
// test directory component or a .test./.spec. filename infix.
func IsTestFile(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if _, ok := testDirs[dir]; ok {
			return true
		}
	}
	name := parts[len(parts)-1]
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec")
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		log.Debug().Err(err).Str("root", root).Msg("discover: git ls-files failed")
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
