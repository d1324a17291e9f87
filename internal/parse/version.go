package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/jssuggest/internal/lang"
)

// ECMAVersion is the ECMAScript edition whose syntax a source must conform
// to. Editions from 2015 on are identified by year.
type ECMAVersion int

const (
	ES3    ECMAVersion = 3
	ES5    ECMAVersion = 5
	ES2015 ECMAVersion = 2015
	ES2016 ECMAVersion = 2016
	ES2017 ECMAVersion = 2017
	ES2018 ECMAVersion = 2018
	ES2019 ECMAVersion = 2019
	ES2020 ECMAVersion = 2020
	ES2021 ECMAVersion = 2021
	ES2022 ECMAVersion = 2022
	ES2023 ECMAVersion = 2023
	ES2024 ECMAVersion = 2024

	LatestECMAVersion  ECMAVersion = 2025
	DefaultECMAVersion             = ES2020
)

// ErrUnsupportedVersion is returned for an ecmaVersion outside the known editions.
var ErrUnsupportedVersion = errors.New("unsupported ecmaVersion")

// NormalizeECMAVersion maps edition numbers (6 through 16) onto years and
// validates the result. Zero selects DefaultECMAVersion.
func NormalizeECMAVersion(v int) (ECMAVersion, error) {
	switch {
	case v == 0:
		return DefaultECMAVersion, nil
	case v == 3 || v == 5:
		return ECMAVersion(v), nil
	case v >= 6 && v <= int(LatestECMAVersion-2009):
		return ECMAVersion(v + 2009), nil
	case v >= int(ES2015) && v <= int(LatestECMAVersion):
		return ECMAVersion(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
}

// ParseECMAVersion parses "2020", "11", "es2020" or "latest".
func ParseECMAVersion(s string) (ECMAVersion, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return DefaultECMAVersion, nil
	case "latest":
		return LatestECMAVersion, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "es"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
	return NormalizeECMAVersion(n)
}

func (v ECMAVersion) String() string {
	return strconv.Itoa(int(v))
}

type feature struct {
	since ECMAVersion
	what  string
}

// features maps grammar node types (named rules and anonymous tokens) to the
// edition that introduced them.
var features = map[string]feature{
	"lexical_declaration":            {ES2015, "let and const declarations"},
	"arrow_function":                 {ES2015, "arrow functions"},
	"class_declaration":              {ES2015, "classes"},
	"class":                          {ES2015, "classes"},
	"template_string":                {ES2015, "template literals"},
	"object_pattern":                 {ES2015, "destructuring"},
	"array_pattern":                  {ES2015, "destructuring"},
	"rest_pattern":                   {ES2015, "rest elements"},
	"spread_element":                 {ES2015, "spread syntax"},
	"generator_function_declaration": {ES2015, "generators"},
	"generator_function":             {ES2015, "generators"},
	"yield_expression":               {ES2015, "generators"},
	"import_statement":               {ES2015, "modules"},
	"export_statement":               {ES2015, "modules"},
	"of":                             {ES2015, "for-of loops"},
	"**":                             {ES2016, "the exponentiation operator"},
	"**=":                            {ES2016, "the exponentiation operator"},
	"async":                          {ES2017, "async functions"},
	"await_expression":               {ES2017, "async functions"},
	"optional_chain":                 {ES2020, "optional chaining"},
	"?.":                             {ES2020, "optional chaining"},
	"??":                             {ES2020, "nullish coalescing"},
	"??=":                            {ES2021, "logical assignment"},
	"&&=":                            {ES2021, "logical assignment"},
	"||=":                            {ES2021, "logical assignment"},
	"field_definition":               {ES2022, "class fields"},
	"private_property_identifier":    {ES2022, "private names"},
	"class_static_block":             {ES2022, "class static blocks"},
	"hash_bang_line":                 {ES2023, "hashbang comments"},
}

// regexFlags maps regular expression flags to the edition that introduced
// them. Flags missing here (g, i, m) are ES3.
var regexFlags = map[rune]feature{
	'y': {ES2015, "the regexp sticky flag"},
	'u': {ES2015, "the regexp unicode flag"},
	's': {ES2018, "the regexp dotAll flag"},
	'd': {ES2022, "the regexp indices flag"},
	'v': {ES2024, "the regexp unicodeSets flag"},
}

// checkVersion reports the first construct in the tree that is newer than
// version.
func checkVersion(root *sitter.Node, source []byte, version ECMAVersion) error {
	if version >= LatestECMAVersion {
		return nil
	}

	type frame struct {
		node   *sitter.Node
		parent string
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node

		if feat, ok := nodeFeature(n, f.parent, source); ok && feat.since > version {
			p := n.StartPoint()
			return &ParseError{
				Line:   int(p.Row) + 1,
				Column: int(p.Column),
				Msg:    fmt.Sprintf("%s: requires ecmaVersion %d or later", feat.what, feat.since),
			}
		}

		// Push in reverse so children are checked in source order.
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, frame{node: child, parent: n.Type()})
			}
		}
	}
	return nil
}

func nodeFeature(n *sitter.Node, parent string, source []byte) (feature, bool) {
	typ := n.Type()
	switch typ {
	case "spread_element":
		if parent == "object" {
			return feature{ES2018, "object spread properties"}, true
		}
	case "catch_clause":
		if n.ChildByFieldName("parameter") == nil {
			return feature{ES2019, "optional catch binding"}, true
		}
		return feature{}, false
	case "await":
		if parent == "for_in_statement" {
			return feature{ES2018, "for-await-of loops"}, true
		}
		return feature{}, false
	case "import":
		// The named node is the callee of import(); the keyword of an import
		// statement is an anonymous token of the same name.
		if n.IsNamed() && parent == "call_expression" {
			return feature{ES2020, "dynamic import"}, true
		}
		return feature{}, false
	case "regex_flags":
		var newest feature
		for _, r := range lang.NodeText(n, source) {
			if f, ok := regexFlags[r]; ok && f.since > newest.since {
				newest = f
			}
		}
		return newest, newest.since != 0
	case "number":
		text := lang.NodeText(n, source)
		if strings.HasSuffix(text, "n") {
			return feature{ES2020, "bigint literals"}, true
		}
		if strings.Contains(text, "_") {
			return feature{ES2021, "numeric separators"}, true
		}
		return feature{}, false
	}
	feat, ok := features[typ]
	return feat, ok
}
