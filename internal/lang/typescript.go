package lang

import (
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScript declarators share the javascript node shapes; type annotations
// surface as extra children that carry no inferable value.
func init() {
	Languages["typescript"] = &Language{
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		lang:       typescript.GetLanguage(),
	}
	Languages["tsx"] = &Language{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		lang:       tsx.GetLanguage(),
	}
}
