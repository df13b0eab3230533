package ctm

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source is a named, openable byte stream.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Locator resolves a resource name into a Source.
type Locator interface {
	Locate(name string) (Source, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(name string) (Source, error)

func (f LocatorFunc) Locate(name string) (Source, error) {
	return f(name)
}

// BytesSource serves an in memory container.
type BytesSource struct {
	name string
	data []byte
}

func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

func (s *BytesSource) Name() string {
	return s.name
}

func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// FileSource serves a file from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string {
	return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
}

func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// DirLocator looks a name up in each directory in turn. Names without an
// extension are also tried with CTMEXT appended.
type DirLocator struct {
	Paths []string
}

func NewDirLocator(paths ...string) *DirLocator {
	return &DirLocator{Paths: paths}
}

func (l *DirLocator) Locate(name string) (Source, error) {
	if name == "" {
		return nil, &ResourceNotFoundError{Name: name}
	}
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, name+CTMEXT)
	}
	roots := l.Paths
	if len(roots) == 0 {
		roots = []string{"."}
	}
	var lastErr error
	for _, root := range roots {
		for _, c := range candidates {
			p := c
			if !filepath.IsAbs(c) {
				p = filepath.Join(root, c)
			}
			st, err := os.Stat(p)
			if err == nil && !st.IsDir() {
				return &FileSource{Path: p}, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				lastErr = err
			}
		}
	}
	return nil, &ResourceNotFoundError{Name: name, Cause: lastErr}
}
