// Package domain turns free text table cells into hostnames.
package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"mvdan.cc/xurls/v2"

	"github.com/blocklist-crawler/crawler/internal/table"
)

const maxHostnameLen = 253

var hostnameRegex = regexp.MustCompile(`^[a-z0-9-]{1,63}(\.[a-z0-9-]{1,63})*$`)

type Normalizer struct {
	strict bool
	urls   *regexp.Regexp
}

// NewNormalizer returns a normalizer. With strict set, hostnames that do not
// match the hostname grammar are dropped instead of passed through.
func NewNormalizer(strict bool) *Normalizer {
	return &Normalizer{
		strict: strict,
		urls:   xurls.Relaxed(),
	}
}

// Normalize extracts hostnames from a text cell in order of appearance.
// Non-text cells yield nothing.
func (n *Normalizer) Normalize(c table.Cell) []string {
	if c.Kind != table.KindText {
		return nil
	}

	var out []string
	for _, match := range n.urls.FindAllString(strings.ToLower(c.Text), -1) {
		host, ok := n.hostname(match)
		if ok {
			out = append(out, host)
		}
	}
	return out
}

func (n *Normalizer) hostname(raw string) (string, bool) {
	if !strings.Contains(raw, "//") {
		raw = "//" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return "", false
	}

	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err == nil {
			host = ascii
		} else if n.strict {
			return "", false
		}
	}

	if n.strict && !ValidHostname(host) {
		return "", false
	}
	return host, true
}

// ValidHostname reports whether host matches the strict hostname grammar:
// dot separated labels of 1-63 lowercase letters, digits or hyphens.
func ValidHostname(host string) bool {
	return len(host) <= maxHostnameLen && hostnameRegex.MatchString(host)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// List accumulates hostnames in encounter order, optionally dropping
// duplicates.
type List struct {
	dedupe bool
	seen   map[string]struct{}
	items  []string
}

func NewList(dedupe bool) *List {
	return &List{
		dedupe: dedupe,
		seen:   make(map[string]struct{}),
	}
}

func (l *List) Add(hosts ...string) {
	for _, h := range hosts {
		if l.dedupe {
			if _, ok := l.seen[h]; ok {
				continue
			}
			l.seen[h] = struct{}{}
		}
		l.items = append(l.items, h)
	}
}

func (l *List) Items() []string {
	return l.items
}

func (l *List) Len() int {
	return len(l.items)
}
