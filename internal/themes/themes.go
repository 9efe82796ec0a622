// Package themes holds the keyword-defined topic table used to tag temporal
// chunks and to drive the thematic extractor.
package themes

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme is a label plus the case-insensitive pattern that identifies it.
type Theme struct {
	Label   string
	Pattern *regexp.Regexp
}

// Table is an ordered list of themes. Order decides the order thematic chunks
// are produced in.
type Table []Theme

// New builds a theme whose pattern matches any of the keywords, ignoring case.
func New(label string, keywords ...string) Theme {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return Theme{
		Label:   label,
		Pattern: regexp.MustCompile("(?i)" + strings.Join(quoted, "|")),
	}
}

// Default returns the built-in table.
func Default() Table {
	return Table{
		New("model", "modèle", "model"),
		New("swiss", "suisse", "swiss"),
		New("institutions", "epfl", "ethz"),
		New("podcast", "podcast"),
		New("NotebookLM", "notebooklm"),
	}
}

// Match returns the labels of every theme whose pattern occurs in line, in
// table order.
func (t Table) Match(line string) []string {
	var labels []string
	for _, th := range t {
		if th.Pattern.MatchString(line) {
			labels = append(labels, th.Label)
		}
	}
	return labels
}

// Labels returns the theme labels in table order.
func (t Table) Labels() []string {
	out := make([]string, len(t))
	for i, th := range t {
		out[i] = th.Label
	}
	return out
}

type fileTheme struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Pattern  string   `yaml:"pattern"`
}

type fileTable struct {
	Themes []fileTheme `yaml:"themes"`
}

// Parse reads a YAML theme table:
//
//	themes:
//	  - label: swiss
//	    keywords: [suisse, swiss]
//	  - label: dates
//	    pattern: '\b20(24|25)\b'
//
// A raw pattern is compiled case-insensitively.
func Parse(data []byte) (Table, error) {
	var ft fileTable
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}

	seen := make(map[string]bool, len(ft.Themes))
	table := make(Table, 0, len(ft.Themes))
	for i, th := range ft.Themes {
		label := strings.TrimSpace(th.Label)
		if label == "" {
			return nil, fmt.Errorf("theme %d: label is required", i)
		}
		if seen[label] {
			return nil, fmt.Errorf("theme %q: duplicate label", label)
		}
		seen[label] = true

		switch {
		case th.Pattern != "":
			re, err := regexp.Compile("(?i)" + th.Pattern)
			if err != nil {
				return nil, fmt.Errorf("theme %q: %w", label, err)
			}
			table = append(table, Theme{Label: label, Pattern: re})
		case len(th.Keywords) > 0:
			table = append(table, New(label, th.Keywords...))
		default:
			return nil, fmt.Errorf("theme %q: keywords or pattern required", label)
		}
	}
	return table, nil
}

// LoadFile reads a YAML theme table from disk.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes: %w", err)
	}
	return Parse(data)
}
