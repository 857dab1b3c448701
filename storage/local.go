package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes objects into a directory served under PublicPrefix.
type Local struct {
	dir          string
	PublicPrefix string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, PublicPrefix: "/files/"}, nil
}

func (l *Local) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	path, err := l.Path(name)
	if err != nil {
		return "", err
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return l.PublicPrefix + name, nil
}

// Path resolves name inside the upload directory, rejecting anything that
// would escape it.
func (l *Local) Path(name string) (string, error) {
	clean := filepath.Clean(name)
	if clean != filepath.Base(clean) || clean == "." || clean == ".." {
		return "", ErrInvalidName
	}

	absDir, err := filepath.Abs(l.dir)
	if err != nil {
		return "", fmt.Errorf("resolve upload dir: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(l.dir, clean))
	if err != nil {
		return "", ErrInvalidName
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", ErrInvalidName
	}
	return absPath, nil
}
