// Package model defines core data structures for jssuggest.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// TypeTag is the coarse type inferred for a variable's initializer.
type TypeTag int

const (
	Unknown TypeTag = iota
	Array
	String
	Object
	Boolean
	Number
)

var typeNames = [...]string{
	Unknown: "Unknown",
	Array:   "Array",
	String:  "String",
	Object:  "Object",
	Boolean: "Boolean",
	Number:  "Number",
}

// Tags lists the inferable type tags in catalog order.
var Tags = []TypeTag{Array, String, Object, Boolean, Number}

func (t TypeTag) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[Unknown]
	}
	return typeNames[t]
}

// ParseTypeTag maps a tag name ("Array", "string", ...) back to its TypeTag.
// Case is ignored.
func ParseTypeTag(name string) (TypeTag, error) {
	for i, n := range typeNames {
		if strings.EqualFold(n, name) {
			return TypeTag(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown type %q", name)
}

// MarshalText encodes the tag by name for JSON and YAML output.
func (t TypeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tag name.
func (t *TypeTag) UnmarshalText(text []byte) error {
	tag, err := ParseTypeTag(string(text))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// Suggestion is the inferred type of one variable and the methods its
// values support.
type Suggestion struct {
	Type    TypeTag  `json:"type" yaml:"type"`
	Methods []string `json:"methods" yaml:"methods"`
}

// SuggestionMap maps variable names to their suggestions.
type SuggestionMap map[string]Suggestion

// Names returns the variable names in sorted order.
func (m SuggestionMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileSuggestions holds the suggestions computed for a single source file.
// Err is set when the file could not be parsed.
type FileSuggestions struct {
	Path        string        `json:"path" yaml:"path"`
	Language    string        `json:"language" yaml:"language"`
	Suggestions SuggestionMap `json:"suggestions" yaml:"suggestions"`
	Err         string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the result of scanning a tree, ready for serialization.
type Report struct {
	Root  string            `json:"root" yaml:"root"`
	Files []FileSuggestions `json:"files" yaml:"files"`
}
