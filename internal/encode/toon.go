package encode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/jssuggest/internal/model"
)

// TOON (Token-Oriented Object Notation) renders each collection as a header
// naming its columns followed by one comma-separated row per record.

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

func encodeReport(r *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(r.Root)))

	var fileRows [][]string
	for i := range r.Files {
		f := &r.Files[i]
		fileRows = append(fileRows, []string{
			f.Path,
			f.Language,
			strconv.Itoa(len(f.Suggestions)),
			f.Err,
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "variables", "error"}, fileRows))

	var rows [][]string
	for i := range r.Files {
		f := &r.Files[i]
		for _, name := range f.Suggestions.Names() {
			s := f.Suggestions[name]
			rows = append(rows, []string{
				f.Path,
				name,
				s.Type.String(),
				strings.Join(s.Methods, " "),
			})
		}
	}
	parts = append(parts, formatTabular("suggestions", []string{"file", "name", "type", "methods"}, rows))

	return strings.Join(parts, "\n")
}

func encodeMap(m model.SuggestionMap) string {
	var rows [][]string
	for _, name := range m.Names() {
		s := m[name]
		rows = append(rows, []string{name, s.Type.String(), strings.Join(s.Methods, " ")})
	}
	return formatTabular("suggestions", []string{"name", "type", "methods"}, rows)
}

func encodeCatalog(entries []CatalogEntry) string {
	var rows [][]string
	for _, e := range entries {
		for _, m := range e.Methods {
			rows = append(rows, []string{e.Type.String(), m.Name, strconv.Itoa(m.Since)})
		}
	}
	return formatTabular("methods", []string{"type", "name", "since"}, rows)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
