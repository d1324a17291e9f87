package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/phobologic/jssuggest/internal/config"
	"github.com/phobologic/jssuggest/internal/model"
	"github.com/phobologic/jssuggest/internal/parse"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "app.js", `const items = [1, 2, 3];
let title = "hello";
const handler = () => items.length;
`)
	writeTestFile(t, dir, "lib/config.js", `var settings = { debug: true };
var enabled = false;
var retries = 3;
`)
	return dir
}

type jsonReport struct {
	Root  string `json:"root"`
	Files []struct {
		Path        string              `json:"path"`
		Language    string              `json:"language"`
		Suggestions model.SuggestionMap `json:"suggestions"`
		Err         string              `json:"error"`
	} `json:"files"`
}

func decodeReport(t *testing.T, data []byte) jsonReport {
	t.Helper()
	var r jsonReport
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, data)
	}
	return r
}

func decodeMap(t *testing.T, data []byte) model.SuggestionMap {
	t.Helper()
	var m model.SuggestionMap
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decoding map: %v\n%s", err, data)
	}
	return m
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	r := decodeReport(t, stdout.Bytes())
	if r.Root != filepath.Base(dir) {
		t.Errorf("root = %q", r.Root)
	}
	if len(r.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(r.Files))
	}
	if r.Files[0].Path != "app.js" || r.Files[1].Path != "lib/config.js" {
		t.Errorf("unexpected file order: %s, %s", r.Files[0].Path, r.Files[1].Path)
	}

	app := r.Files[0].Suggestions
	if len(app) != 2 {
		t.Errorf("app.js: expected items and title, got %v", app.Names())
	}
	if app["items"].Type != model.Array {
		t.Errorf("items type = %v", app["items"].Type)
	}
	if app["title"].Type != model.String {
		t.Errorf("title type = %v", app["title"].Type)
	}

	cfg := r.Files[1].Suggestions
	want := map[string]model.TypeTag{"settings": model.Object, "enabled": model.Boolean, "retries": model.Number}
	for name, tag := range want {
		if cfg[name].Type != tag {
			t.Errorf("%s type = %v, want %v", name, cfg[name].Type, tag)
		}
	}
}

func TestRunSingleFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{filepath.Join(dir, "app.js")}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	m := decodeMap(t, stdout.Bytes())
	if len(m) != 2 {
		t.Fatalf("expected 2 variables, got %v", m.Names())
	}
	if m["items"].Methods[0] != "constructor" {
		t.Errorf("items methods should start with constructor, got %v", m["items"].Methods)
	}
}

func TestRunStdin(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	in := strings.NewReader("const a = [], s = 'x'; let n = 1;")
	if err := runContext(context.Background(), []string{"-"}, in, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	m := decodeMap(t, stdout.Bytes())
	if len(m) != 3 {
		t.Fatalf("expected 3 variables, got %v", m.Names())
	}
}

func TestRunStdinEmpty(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := runContext(context.Background(), []string{"-"}, strings.NewReader(""), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != "{}\n" {
		t.Errorf("expected empty object, got %q", got)
	}
}

func TestRunParseError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "broken.js", "const x = {;")

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "broken.js")}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *parse.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %T: %v", err, err)
	}
	if stdout.Len() != 0 {
		t.Errorf("no output expected on parse error, got %q", stdout.String())
	}
}

func TestRunParseErrorInTree(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "broken.js", "const x = {;")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	r := decodeReport(t, stdout.Bytes())
	if len(r.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(r.Files))
	}
	if r.Files[1].Path != "broken.js" || r.Files[1].Err == "" {
		t.Errorf("broken.js should carry an error: %+v", r.Files[1])
	}
}

func TestRunECMAVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	in := strings.NewReader("const a = [];")
	err := runContext(context.Background(), []string{"--ecma-version", "5", "-"}, in, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected version error")
	}
	if !strings.Contains(err.Error(), "requires ecmaVersion 2015") {
		t.Errorf("unexpected error: %v", err)
	}

	stdout.Reset()
	in = strings.NewReader("var a = [];")
	if err := runContext(context.Background(), []string{"--ecma-version", "es5", "-"}, in, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunFormats(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-f", "toon", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "files[2]{path,language,variables,error}:") {
		t.Errorf("expected toon files section, got:\n%s", out)
	}
	if !strings.Contains(out, "app.js,items,Array,") {
		t.Errorf("expected items row, got:\n%s", out)
	}

	stdout.Reset()
	if err := run([]string{"--format", "yaml", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "type: Array") {
		t.Errorf("expected yaml output, got:\n%s", stdout.String())
	}

	if err := run([]string{"-f", "xml", dir}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-n", "1", "-f", "toon", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "files[1]") {
		t.Errorf("expected 1 file, got:\n%s", out)
	}
}

func TestRunPrefixAndTypeFilters(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-t", "number", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	r := decodeReport(t, stdout.Bytes())
	if len(r.Files) != 1 || r.Files[0].Path != "lib/config.js" {
		t.Fatalf("expected only lib/config.js, got %+v", r.Files)
	}
	if names := r.Files[0].Suggestions.Names(); len(names) != 1 || names[0] != "retries" {
		t.Errorf("expected retries, got %v", names)
	}

	stdout.Reset()
	if err := run([]string{"-p", "ti", filepath.Join(dir, "app.js")}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	m := decodeMap(t, stdout.Bytes())
	if names := m.Names(); len(names) != 1 || names[0] != "title" {
		t.Errorf("expected title, got %v", names)
	}

	if err := run([]string{"-t", "Symbol", dir}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestRunEditionAndInherited(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	in := strings.NewReader("var b = true;")
	if err := runContext(context.Background(), []string{"--inherited", "-"}, in, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	methods := decodeMap(t, stdout.Bytes())["b"].Methods
	if !contains(methods, "hasOwnProperty") {
		t.Errorf("--inherited should add Object.prototype members, got %v", methods)
	}

	stdout.Reset()
	in = strings.NewReader("var a = [];")
	if err := runContext(context.Background(), []string{"--edition", "5", "-"}, in, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	methods = decodeMap(t, stdout.Bytes())["a"].Methods
	if contains(methods, "includes") || !contains(methods, "push") {
		t.Errorf("--edition 5 should drop ES2016 members, got %v", methods)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "jssuggest") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no parseable files")
	}
	if !strings.Contains(err.Error(), "no parseable files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-l", "rust", t.TempDir()}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedFileType(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "notes.txt", "x")

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "notes.txt")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunMissingPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(t.TempDir(), "nope")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "root path") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "small.js", "var a = 1;")
	writeTestFile(t, dir, "large.js", "var b = '"+strings.Repeat("x", 500)+"';")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--max-file-size", "100", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	r := decodeReport(t, stdout.Bytes())
	if len(r.Files) != 1 || r.Files[0].Path != "small.js" {
		t.Errorf("expected only small.js, got %+v", r.Files)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, config.FileName, "format = \"toon\"\nmax_files = 1\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "files[1]") {
		t.Errorf("config should select toon and one file, got:\n%s", stdout.String())
	}

	// Flags override the file.
	stdout.Reset()
	if err := run([]string{"-f", "json", "-n", "0", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r := decodeReport(t, stdout.Bytes()); len(r.Files) != 2 {
		t.Errorf("expected 2 files with flag overrides, got %d", len(r.Files))
	}
}

func TestRunExplicitConfigMissing(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), t.TempDir()}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cacheData, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("cache not created: %v", err)
	}
	if string(cacheData) != stdout1.String() {
		t.Error("cache should hold the rendered output")
	}

	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}
}

func TestRunFilterSkipsCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "cache.json")

	if err := run([]string{"--cache", cachePath, dir}, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	var stdout bytes.Buffer
	if err := run([]string{"-p", "items", "--cache", cachePath, dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("filtered run: %v", err)
	}
	r := decodeReport(t, stdout.Bytes())
	if len(r.Files) != 1 || len(r.Files[0].Suggestions) != 1 {
		t.Errorf("filter should work even when cache exists: %+v", r.Files)
	}
}

func TestCacheIsFresh(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	files, err := discoverFiles(dir, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	key := []byte(`{"format":"json"}`)

	if cacheIsFresh(filepath.Join(dir, "missing.cache"), key, dir, files) {
		t.Error("missing cache should not be fresh")
	}

	cachePath := filepath.Join(t.TempDir(), "new.cache")
	if err := writeCache(cachePath, key, []byte("x")); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(cachePath, future, future); err != nil {
		t.Fatal(err)
	}
	if !cacheIsFresh(cachePath, key, dir, files) {
		t.Error("cache newer than sources with a matching key should be fresh")
	}
	if cacheIsFresh(cachePath, []byte(`{"format":"yaml"}`), dir, files) {
		t.Error("cache rendered with other settings should be stale")
	}

	// A cache older than the sources is stale.
	past := mustStat(t, filepath.Join(dir, "app.js")).ModTime().Add(-time.Hour)
	if err := os.Chtimes(cachePath, past, past); err != nil {
		t.Fatal(err)
	}
	if cacheIsFresh(cachePath, key, dir, files) {
		t.Error("cache older than sources should be stale")
	}
}

func TestRunCacheSettingsChange(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	if err := run([]string{"--cache", cachePath, dir}, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(cachePath, []byte("cached\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(cachePath, future, future); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("cached run: %v", err)
	}
	if stdout.String() != "cached\n" {
		t.Fatalf("same settings should serve the cache, got %q", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"--cache", cachePath, "-f", "yaml", "--edition", "5", dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("changed run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "type: Array") || strings.Contains(out, "includes") {
		t.Errorf("changed settings should rebuild the report, got:\n%s", out)
	}
}

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return fi
}

func TestCompleteCommand(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	file := filepath.Join(dir, "app.js")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"complete", file, "items.fi"}, &stdout, &stderr); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got := strings.Fields(stdout.String())
	want := []string{"fill", "find", "findIndex", "findLast", "findLastIndex", "filter"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("complete items.fi = %v, want %v", got, want)
	}

	stdout.Reset()
	if err := run([]string{"complete", file, "t"}, &stdout, &stderr); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "title" {
		t.Errorf("complete t = %q", stdout.String())
	}

	stdout.Reset()
	in := strings.NewReader("var s = 'x';")
	if err := runContext(context.Background(), []string{"complete", "-", "s.toU"}, in, &stdout, &stderr); err != nil {
		t.Fatalf("complete stdin: %v", err)
	}
	if got := strings.Fields(stdout.String()); strings.Join(got, " ") != "toUpperCase" {
		t.Errorf("complete s.toU = %v", got)
	}

	if err := run([]string{"complete", file}, &stdout, &stderr); err == nil {
		t.Error("complete with one argument should fail")
	}
}

func TestCatalogCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"catalog", "boolean"}, &stdout, &stderr); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	want := `[{"type":"Boolean","methods":[{"name":"constructor","since":5},{"name":"toString","since":5},{"name":"valueOf","since":5}]}]` + "\n"
	if stdout.String() != want {
		t.Errorf("catalog boolean:\n%s\nwant:\n%s", stdout.String(), want)
	}

	stdout.Reset()
	if err := run([]string{"catalog", "-f", "toon", "--edition", "5", "Array"}, &stdout, &stderr); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "Array,push,5") || strings.Contains(out, "Array,at,") {
		t.Errorf("unexpected edition-filtered catalog:\n%s", out)
	}

	stdout.Reset()
	if err := run([]string{"catalog"}, &stdout, &stderr); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var all []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != len(model.Tags) {
		t.Errorf("expected %d catalogs, got %d", len(model.Tags), len(all))
	}

	if err := run([]string{"catalog", "Symbol"}, &stdout, &stderr); err == nil {
		t.Error("expected error for unknown type")
	}
}
