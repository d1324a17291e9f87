// Package encode renders suggestion reports as JSON, YAML or TOON.
package encode

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/jssuggest/internal/catalog"
	"github.com/phobologic/jssuggest/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOON Format = "toon"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, YAML, TOON}

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, YAML, TOON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, yaml or toon)", s)
	}
}

// Options controls rendering.
type Options struct {
	Format Format
	// Pretty indents JSON output. YAML and TOON are always indented.
	Pretty bool
}

// Report writes a multi-file report.
func Report(w io.Writer, r *model.Report, opts Options) error {
	switch opts.Format {
	case TOON:
		return writeString(w, encodeReport(r))
	default:
		return value(w, r, opts)
	}
}

// Map writes the suggestions of a single source.
func Map(w io.Writer, m model.SuggestionMap, opts Options) error {
	if m == nil {
		m = model.SuggestionMap{}
	}
	switch opts.Format {
	case TOON:
		return writeString(w, encodeMap(m))
	default:
		return value(w, m, opts)
	}
}

// CatalogEntry is the catalog of one type tag.
type CatalogEntry struct {
	Type    model.TypeTag    `json:"type" yaml:"type"`
	Methods []catalog.Method `json:"methods" yaml:"methods"`
}

// Catalog writes catalog entries in the given order.
func Catalog(w io.Writer, entries []CatalogEntry, opts Options) error {
	if entries == nil {
		entries = []CatalogEntry{}
	}
	switch opts.Format {
	case TOON:
		return writeString(w, encodeCatalog(entries))
	default:
		return value(w, entries, opts)
	}
}

func value(w io.Writer, v any, opts Options) error {
	switch opts.Format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return nil
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if opts.Pretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\n")
	return err
}
