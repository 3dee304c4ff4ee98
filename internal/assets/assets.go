// Package assets supplies the files the local redirect server shows the browser: the landing page and the
// stylesheet and image it references.
//
// The redirect flow only depends on the [FileReader] interface. [Dir] reads from a media directory on disk,
// [Embedded] serves the built-in copies compiled into the binary, and [Fallback] chains the two so a partial
// media directory still renders.
package assets

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/loopauth/internal/shared"
)

// Names of the files the redirect flow asks for.
const (
	LandingPage = "landing.html"
	Stylesheet  = "landing.css"
	SignInImage = "SignIn.svg"
)

//go:embed media
var media embed.FS

// FileReader reads a named media file.
type FileReader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// FileReaderFunc adapts a function to [FileReader].
type FileReaderFunc func(ctx context.Context, name string) ([]byte, error)

func (f FileReaderFunc) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

// Dir reads files from a directory on disk.
type Dir string

// ReadFile reads name from the directory. Names that would leave the directory are rejected.
func (d Dir) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, fmt.Errorf("%w: invalid name %q", shared.ErrAssetRead, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAssetRead, err)
	}
	return data, nil
}

type embedded struct{}

// Embedded returns a [FileReader] over the built-in landing page, stylesheet and image.
func Embedded() FileReader {
	return embedded{}
}

func (embedded) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid name %q", shared.ErrAssetRead, name)
	}
	data, err := media.ReadFile("media/" + name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAssetRead, err)
	}
	return data, nil
}

type fallback struct {
	primary, secondary FileReader
}

// Fallback reads from primary and, when the file is missing there, from secondary.
//
// Errors other than a missing file are returned as-is.
func Fallback(primary, secondary FileReader) FileReader {
	return fallback{primary: primary, secondary: secondary}
}

func (f fallback) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, err := f.primary.ReadFile(ctx, name)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return data, err
	}
	return f.secondary.ReadFile(ctx, name)
}

// ForDir returns the reader for a configured media directory: the built-in files when dir is empty, otherwise
// dir backed by the built-in files.
func ForDir(dir string) FileReader {
	if dir == "" {
		return Embedded()
	}
	return Fallback(Dir(dir), Embedded())
}
