package source

import "testing"

func TestNames(t *testing.T) {
	tests := []struct {
		src      Source
		artifact string
		remote   string
		column   int
	}{
		{CZ, "mfcz.csv", "mfcr.csv", 0},
		{SK, "mfsk.csv", "mfsk.csv", 1},
		{BG, "mfbg.csv", "mfbg.csv", 1},
	}

	for _, tt := range tests {
		t.Run(tt.src.String(), func(t *testing.T) {
			if got := tt.src.ArtifactName(); got != tt.artifact {
				t.Errorf("ArtifactName() = %q, want %q", got, tt.artifact)
			}
			if got := tt.src.RemoteName(); got != tt.remote {
				t.Errorf("RemoteName() = %q, want %q", got, tt.remote)
			}
			if got := tt.src.Layout().Column; got != tt.column {
				t.Errorf("Layout().Column = %d, want %d", got, tt.column)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if !CZ.Valid() || !SK.Valid() || !BG.Valid() {
		t.Fatal("known sources must be valid")
	}
	if Source("pl").Valid() {
		t.Fatal("unknown source must not be valid")
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		value    string
		want     string
	}{
		{"placeholder", "https://x.cz/list-{}.pdf", "7", "https://x.cz/list-7.pdf"},
		{"first placeholder only", "https://x.sk/{}/{}", "a", "https://x.sk/a/{}"},
		{"append", "https://x.bg", "/docs/1.pdf", "https://x.bg/docs/1.pdf"},
		{"printf placeholder", "https://x.cz/blacklist-%d.pdf", "7", "https://x.cz/blacklist-7.pdf"},
		{"printf placeholder first only", "https://x.cz/%d/%d.pdf", "7", "https://x.cz/7/%d.pdf"},
		{"braces win over printf", "https://x.cz/%d/{}.pdf", "7", "https://x.cz/%d/7.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.template, tt.value); got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
