package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/jssuggest/internal/discover"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/suggest"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newEngine(t *testing.T) *suggest.Engine {
	t.Helper()
	e, err := suggest.New(suggest.Options{})
	require.NoError(t, err)
	return e
}

func TestFilesKeepsOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var entries []discover.FileEntry
	for i := range 20 {
		rel := fmt.Sprintf("f%02d.js", i)
		writeFile(t, dir, rel, fmt.Sprintf("const v%d = [];", i))
		entries = append(entries, discover.FileEntry{Path: rel, Language: "javascript"})
	}

	got, err := Files(context.Background(), dir, entries, newEngine(t), 4)
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, fs := range got {
		assert.Equal(t, entries[i].Path, fs.Path)
		name := fmt.Sprintf("v%d", i)
		require.Contains(t, fs.Suggestions, name)
		assert.Equal(t, model.Array, fs.Suggestions[name].Type)
	}
}

func TestFilesMixedLanguagesAndErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeFile(t, dir, "a.js", "const s = 'x';")
	writeFile(t, dir, "b.ts", "let n: number = 2;")
	writeFile(t, dir, "broken.js", "const x = {;")

	entries := []discover.FileEntry{
		{Path: "a.js", Language: "javascript"},
		{Path: "b.ts", Language: "typescript"},
		{Path: "broken.js", Language: "javascript"},
		{Path: "missing.js", Language: "javascript"},
	}

	got, err := Files(context.Background(), dir, entries, newEngine(t), 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "unreadable file should be dropped")

	assert.Equal(t, model.String, got[0].Suggestions["s"].Type)
	assert.Equal(t, "typescript", got[1].Language)
	assert.Equal(t, model.Number, got[1].Suggestions["n"].Type)
	assert.Empty(t, got[2].Suggestions)
	assert.NotEmpty(t, got[2].Err)
}

func TestFilesCanceled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "const a = 1;")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Files(ctx, dir, []discover.FileEntry{{Path: "a.js", Language: "javascript"}}, newEngine(t), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilesEmpty(t *testing.T) {
	t.Parallel()

	got, err := Files(context.Background(), t.TempDir(), nil, newEngine(t), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterBySize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeFile(t, dir, "small.js", "const a = 1;")
	writeFile(t, dir, "large.js", strings.Repeat("x", 200))

	entries := []discover.FileEntry{
		{Path: "large.js", Language: "javascript"},
		{Path: "small.js", Language: "javascript"},
		{Path: "gone.js", Language: "javascript"},
	}

	kept := FilterBySize(dir, entries, 100)
	require.Len(t, kept, 2)
	assert.Equal(t, "small.js", kept[0].Path)
	assert.Equal(t, "gone.js", kept[1].Path)

	assert.Len(t, FilterBySize(dir, entries, 0), 3)
}
