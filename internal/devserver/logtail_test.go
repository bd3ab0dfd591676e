package devserver

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestTailLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vite_dev_server.log")
	lines := []string{
		"VITE v5.4.0  ready in 312 ms",
		"",
		"  ➜  Local:   http://localhost:5173/vite/",
		"hmr update /src/app.ts",
		"page reload index.html",
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{2, lines[3:]},
		{5, lines},
		{50, lines},
	}
	for _, tc := range tests {
		got, err := TailLog(path, tc.n)
		if err != nil {
			t.Fatalf("TailLog(%d): %v", tc.n, err)
		}
		if !slices.Equal(got, tc.want) {
			t.Errorf("TailLog(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestTailLogMissingFile(t *testing.T) {
	_, err := TailLog(filepath.Join(t.TempDir(), "missing.log"), 10)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
