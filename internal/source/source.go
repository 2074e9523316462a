// Package source describes the three blocklist publishers and the table
// layout each of them uses.
package source

import "strings"

type Source string

const (
	CZ Source = "cz"
	SK Source = "sk"
	BG Source = "bg"
)

// Placeholder is replaced in URL templates with the source specific value.
// PrintfPlaceholder is accepted as well.
const (
	Placeholder       = "{}"
	PrintfPlaceholder = "%d"
)

// Layout tells the extractor where domain text lives in a source table.
// When the first column of a table is entirely empty the column right after
// Column is used instead.
type Layout struct {
	Column int
}

var layouts = map[Source]Layout{
	CZ: {Column: 0},
	SK: {Column: 1},
	BG: {Column: 1},
}

// remote upload names use the publisher's own country abbreviation
var remoteNames = map[Source]string{
	CZ: "cr",
	SK: "sk",
	BG: "bg",
}

// All returns sources in processing order.
func All() []Source {
	return []Source{CZ, SK, BG}
}

func (s Source) Valid() bool {
	_, ok := layouts[s]
	return ok
}

func (s Source) Layout() Layout {
	return layouts[s]
}

// Label is the identifier used in logs and error reports, e.g. "mfcz".
func (s Source) Label() string {
	return "mf" + string(s)
}

// ArtifactName is the local export file name.
func (s Source) ArtifactName() string {
	return s.Label() + ".csv"
}

// RemoteName is the file name on the upload server.
func (s Source) RemoteName() string {
	return "mf" + remoteNames[s] + ".csv"
}

func (s Source) String() string {
	return string(s)
}

// Expand substitutes value into the first placeholder of template. "{}" wins
// over the printf style "%d"; a template with neither gets value appended.
func Expand(template, value string) string {
	switch {
	case strings.Contains(template, Placeholder):
		return strings.Replace(template, Placeholder, value, 1)
	case strings.Contains(template, PrintfPlaceholder):
		return strings.Replace(template, PrintfPlaceholder, value, 1)
	default:
		return template + value
	}
}
