package aliases

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"team-matcher/pkg/logging"
)

const sample = `Manchester United:
  - Man Utd
  - Man. United
Paris Saint-Germain: [PSG, Paris SG]
`

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l := logging.NewWithWriter(logging.LogConfig{Level: logging.LevelError}, io.Discard)
	t.Cleanup(func() { l.Close() })
	return l
}

func writeBook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	return path
}

func TestBook_Variants(t *testing.T) {
	b := Open(writeBook(t, sample), quietLogger(t))
	if !b.IsLoaded() || b.Len() != 2 {
		t.Fatalf("loaded=%v len=%d", b.IsLoaded(), b.Len())
	}

	tests := []struct {
		name string
		want []string
	}{
		{"Man Utd", []string{"Man Utd", "Manchester United", "Man. United"}},
		{"MAN UTD", []string{"MAN UTD", "Manchester United", "Man. United"}},
		{"Manchester United", []string{"Manchester United", "Man Utd", "Man. United"}},
		{"psg", []string{"psg", "Paris Saint-Germain", "Paris SG"}},
		{"Ajax", []string{"Ajax"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Variants(tt.name); !slices.Equal(got, tt.want) {
				t.Errorf("Variants(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestBook_Canonical(t *testing.T) {
	b := FromMap(map[string][]string{"Paris Saint-Germain": {"PSG"}})
	if got := b.Canonical("p.s.g."); got != "Paris Saint-Germain" {
		t.Fatalf("Canonical = %q", got)
	}
	if got := b.Canonical("Lyon"); got != "Lyon" {
		t.Fatalf("unknown Canonical = %q", got)
	}
}

func TestBook_ConflictingNamesResolveStably(t *testing.T) {
	m := map[string][]string{
		"Athletic Club":   {"Bilbao"},
		"Athletic Bilbao": {"Athletic Club", "Athletic"},
		"Inter Milan":     {"Inter"},
		"Internazionale":  {"Inter", "Inter Milan"},
	}
	tests := []struct {
		name, want string
	}{
		{"Athletic Club", "Athletic Bilbao"},
		{"Bilbao", "Athletic Club"},
		{"Athletic", "Athletic Bilbao"},
		{"Inter", "Inter Milan"},
		{"Inter Milan", "Inter Milan"},
		{"Internazionale", "Internazionale"},
	}
	// map iteration order differs between builds of the index
	for i := 0; i < 20; i++ {
		b := FromMap(m)
		if b.Len() != 4 {
			t.Fatalf("Len = %d, want 4", b.Len())
		}
		for _, tt := range tests {
			if got := b.Canonical(tt.name); got != tt.want {
				t.Fatalf("build %d: Canonical(%q) = %q, want %q", i, tt.name, got, tt.want)
			}
		}
	}
}

func TestOpen_MissingFile(t *testing.T) {
	b := Open(filepath.Join(t.TempDir(), "nope.yaml"), quietLogger(t))
	if b.IsLoaded() || b.Len() != 0 {
		t.Fatalf("missing file must leave the book empty")
	}
	if got := b.Variants("Ajax"); !slices.Equal(got, []string{"Ajax"}) {
		t.Fatalf("Variants on empty book = %v", got)
	}
}

func TestBook_ReloadKeepsOldOnError(t *testing.T) {
	path := writeBook(t, sample)
	b := Open(path, quietLogger(t))

	if err := os.WriteFile(path, []byte("Manchester United: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.Reload(); err == nil {
		t.Fatalf("expected parse error")
	}
	if b.Len() != 2 {
		t.Fatalf("broken reload must keep the previous book, len=%d", b.Len())
	}

	if err := os.WriteFile(path, []byte("Ajax: [Ajax Amsterdam]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if b.Len() != 1 || b.Canonical("ajax amsterdam") != "Ajax" {
		t.Fatalf("reload did not swap contents")
	}
}

func TestBook_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.toml")
	content := `"Manchester United" = ["Man Utd", "Man. United"]
"Paris Saint-Germain" = ["PSG"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	b := Open(path, quietLogger(t))
	if !b.IsLoaded() || b.Len() != 2 {
		t.Fatalf("loaded=%v len=%d", b.IsLoaded(), b.Len())
	}
	if got := b.Canonical("psg"); got != "Paris Saint-Germain" {
		t.Fatalf("Canonical(psg) = %q", got)
	}
}

func TestBook_TOMLParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.toml")
	if err := os.WriteFile(path, []byte("not = [toml"), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	if b := Open(path, quietLogger(t)); b.IsLoaded() {
		t.Fatalf("broken TOML must leave the book unloaded")
	}
}
