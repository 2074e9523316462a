package artifact

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blocklist-crawler/crawler/internal/source"
)

// Writer stores one domain per line under a fixed export directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Path(src source.Source) string {
	return filepath.Join(w.dir, src.ArtifactName())
}

// Write replaces the artifact of src with domains and returns its path. The
// previous artifact stays intact if writing fails.
func (w *Writer) Write(src source.Source, domains []string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+src.ArtifactName()+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	for _, d := range domains {
		if _, err := buf.WriteString(d + "\n"); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write artifact: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod artifact: %w", err)
	}

	path := w.Path(src)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace artifact: %w", err)
	}
	return path, nil
}
