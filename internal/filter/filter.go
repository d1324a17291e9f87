// Package filter narrows reports and suggestion maps for output.
package filter

import (
	"strings"

	"github.com/phobologic/jssuggest/internal/model"
)

// Predicate selects a variable's suggestion.
type Predicate func(name string, s model.Suggestion) bool

// ByPrefix matches variables whose name starts with prefix.
func ByPrefix(prefix string) Predicate {
	return func(name string, _ model.Suggestion) bool {
		return strings.HasPrefix(name, prefix)
	}
}

// ByType matches variables inferred as tag.
func ByType(tag model.TypeTag) Predicate {
	return func(_ string, s model.Suggestion) bool {
		return s.Type == tag
	}
}

// All combines predicates; a nil predicate is ignored.
func All(preds ...Predicate) Predicate {
	var active []Predicate
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(name string, s model.Suggestion) bool {
		for _, p := range active {
			if !p(name, s) {
				return false
			}
		}
		return true
	}
}

// Map returns the entries of m that match pred. A nil pred returns m itself.
func Map(m model.SuggestionMap, pred Predicate) model.SuggestionMap {
	if pred == nil {
		return m
	}
	out := make(model.SuggestionMap)
	for name, s := range m {
		if pred(name, s) {
			out[name] = s
		}
	}
	return out
}

// Variables returns a new Report whose files keep only matching variables.
// Files left without suggestions are dropped unless they carry a parse error.
// A nil pred returns r itself.
func Variables(r *model.Report, pred Predicate) *model.Report {
	if pred == nil {
		return r
	}
	out := &model.Report{Root: r.Root}
	for i := range r.Files {
		f := r.Files[i]
		f.Suggestions = Map(f.Suggestions, pred)
		if len(f.Suggestions) == 0 && f.Err == "" {
			continue
		}
		out.Files = append(out.Files, f)
	}
	return out
}

// SelectFiles returns a new Report with only the first maxFiles files.
// If maxFiles is <= 0 or >= len(files), r is returned unchanged.
func SelectFiles(r *model.Report, maxFiles int) *model.Report {
	if maxFiles <= 0 || maxFiles >= len(r.Files) {
		return r
	}
	return &model.Report{
		Root:  r.Root,
		Files: r.Files[:maxFiles],
	}
}
