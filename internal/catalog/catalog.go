// Package catalog holds the built-in instance methods available on each
// inferable JavaScript type.
//
// The tables mirror Object.getOwnPropertyNames(X.prototype) filtered to
// function-valued members, in V8 enumeration order. constructor is a
// function and is therefore listed; accessors such as length and __proto__
// are not.
package catalog

import (
	"github.com/phobologic/jssuggest/internal/model"
)

// Method is one built-in prototype member.
type Method struct {
	Name string `json:"name" yaml:"name"`
	// Since is the first ECMAScript edition that standardized the member,
	// Annex B included. 5 covers everything up to and including ES5.
	Since int `json:"since" yaml:"since"`
}

var (
	arrayMethods = []Method{
		{"constructor", 5},
		{"at", 2022},
		{"concat", 5},
		{"copyWithin", 2015},
		{"fill", 2015},
		{"find", 2015},
		{"findIndex", 2015},
		{"findLast", 2023},
		{"findLastIndex", 2023},
		{"lastIndexOf", 5},
		{"pop", 5},
		{"push", 5},
		{"reverse", 5},
		{"shift", 5},
		{"unshift", 5},
		{"slice", 5},
		{"sort", 5},
		{"splice", 5},
		{"includes", 2016},
		{"indexOf", 5},
		{"join", 5},
		{"keys", 2015},
		{"entries", 2015},
		{"values", 2015},
		{"forEach", 5},
		{"filter", 5},
		{"flat", 2019},
		{"flatMap", 2019},
		{"map", 5},
		{"every", 5},
		{"some", 5},
		{"reduce", 5},
		{"reduceRight", 5},
		{"toLocaleString", 5},
		{"toString", 5},
		{"toReversed", 2023},
		{"toSorted", 2023},
		{"toSpliced", 2023},
		{"with", 2023},
	}

	stringMethods = []Method{
		{"constructor", 5},
		{"anchor", 2015},
		{"at", 2022},
		{"big", 2015},
		{"blink", 2015},
		{"bold", 2015},
		{"charAt", 5},
		{"charCodeAt", 5},
		{"codePointAt", 2015},
		{"concat", 5},
		{"endsWith", 2015},
		{"fontcolor", 2015},
		{"fontsize", 2015},
		{"fixed", 2015},
		{"includes", 2015},
		{"indexOf", 5},
		{"isWellFormed", 2024},
		{"italics", 2015},
		{"lastIndexOf", 5},
		{"link", 2015},
		{"localeCompare", 5},
		{"match", 5},
		{"matchAll", 2020},
		{"normalize", 2015},
		{"padEnd", 2017},
		{"padStart", 2017},
		{"repeat", 2015},
		{"replace", 5},
		{"replaceAll", 2021},
		{"search", 5},
		{"slice", 5},
		{"small", 2015},
		{"split", 5},
		{"strike", 2015},
		{"sub", 2015},
		{"substr", 5},
		{"substring", 5},
		{"sup", 2015},
		{"startsWith", 2015},
		{"toString", 5},
		{"toWellFormed", 2024},
		{"trim", 5},
		{"trimStart", 2019},
		{"trimLeft", 2019},
		{"trimEnd", 2019},
		{"trimRight", 2019},
		{"toLocaleLowerCase", 5},
		{"toLocaleUpperCase", 5},
		{"toLowerCase", 5},
		{"toUpperCase", 5},
		{"valueOf", 5},
	}

	objectMethods = []Method{
		{"constructor", 5},
		{"__defineGetter__", 2017},
		{"__defineSetter__", 2017},
		{"hasOwnProperty", 5},
		{"__lookupGetter__", 2017},
		{"__lookupSetter__", 2017},
		{"isPrototypeOf", 5},
		{"propertyIsEnumerable", 5},
		{"toString", 5},
		{"valueOf", 5},
		{"toLocaleString", 5},
	}

	booleanMethods = []Method{
		{"constructor", 5},
		{"toString", 5},
		{"valueOf", 5},
	}

	numberMethods = []Method{
		{"constructor", 5},
		{"toExponential", 5},
		{"toFixed", 5},
		{"toPrecision", 5},
		{"toString", 5},
		{"valueOf", 5},
		{"toLocaleString", 5},
	}
)

var tables = map[model.TypeTag][]Method{
	model.Array:   arrayMethods,
	model.String:  stringMethods,
	model.Object:  objectMethods,
	model.Boolean: booleanMethods,
	model.Number:  numberMethods,
}

// Entries returns a copy of the catalog entries for tag, or nil for a tag
// without a catalog.
func Entries(tag model.TypeTag) []Method {
	t := tables[tag]
	if t == nil {
		return nil
	}
	return append([]Method(nil), t...)
}

// Methods returns the names of every built-in method on values of tag.
// Unknown tags yield an empty, non-nil slice.
func Methods(tag model.TypeTag) []string {
	return MethodsFor(tag, 0)
}

// MethodsFor returns the method names available in the given ECMAScript
// edition. An edition of zero means no restriction.
func MethodsFor(tag model.TypeTag, edition int) []string {
	t := tables[tag]
	names := make([]string, 0, len(t))
	for _, m := range t {
		if edition == 0 || m.Since <= edition {
			names = append(names, m.Name)
		}
	}
	return names
}

// WithInherited appends the Object.prototype members that methods does not
// already list, as a prototype chain lookup would find them.
func WithInherited(methods []string, edition int) []string {
	have := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		have[m] = struct{}{}
	}
	out := append([]string(nil), methods...)
	for _, m := range MethodsFor(model.Object, edition) {
		if _, ok := have[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}
