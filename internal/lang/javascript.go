package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

func init() {
	// The javascript grammar also covers JSX.
	Languages["javascript"] = &Language{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		lang:       javascript.GetLanguage(),
	}
}
