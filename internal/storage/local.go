package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidName = errors.New("invalid file name")

// Local writes files into one directory on the local filesystem. Names
// collide by design: a second write under the same name replaces the first.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) ensureDir() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", l.dir, err)
	}
	return nil
}

// Save writes r under name and returns the stored base name and full path.
// Directory components in name are discarded.
func (l *Local) Save(name string, r io.Reader) (string, string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", "", err
	}

	if err := l.ensureDir(); err != nil {
		return "", "", err
	}

	path := filepath.Join(l.dir, base)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return "", "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return "", "", fmt.Errorf("close %s: %w", path, err)
	}

	return base, path, nil
}

// BaseName strips any directory part from a client-supplied file name,
// treating both slash styles as separators.
func BaseName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.FromSlash(name))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}
