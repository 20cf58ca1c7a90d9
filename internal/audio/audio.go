// Package audio lays out synthesized podcasts on disk under a publicly served root.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const extension = ".mp3"

var (
	// Whitespace includes the unicode space separators and BOM, so a title
	// with a no-break space still gets its hyphen
	nonWord    = regexp.MustCompile(`[^\w\s\p{Z}\x{FEFF}\v-]`)
	separators = regexp.MustCompile(`[\s\p{Z}\x{FEFF}\v_-]+`)
)

// Sanitize turns a title into a file name: lowercase, punctuation dropped, and
// runs of whitespace, underscores and hyphens collapsed to a single hyphen.
func Sanitize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func sanitizeOr(name, fallback string) string {
	if s := Sanitize(name); s != "" {
		return s
	}
	if s := Sanitize(fallback); s != "" {
		return s
	}
	return "untitled"
}

// Store owns the podcast files under Root, served publicly under PublicPrefix.
type Store struct {
	Root         string
	PublicPrefix string
}

func (s Store) prefix() string {
	return "/" + strings.Trim(s.PublicPrefix, "/")
}

// Path derives where a podcast for the item lives: the filesystem path and the
// root relative public path. Titles that sanitize to nothing use fallback.
func (s Store) Path(feedTitle, itemTitle, fallback string) (string, string) {
	dir := sanitizeOr(feedTitle, fallback)
	file := sanitizeOr(itemTitle, fallback) + extension

	return filepath.Join(s.Root, dir, file), path.Join(s.prefix(), dir, file)
}

// Write stores r at fsPath. An existing file is never overwritten: when the
// name is taken, suffix is appended to the base name. The written filesystem
// path and its public path are returned. A partially written file is removed.
func (s Store) Write(fsPath, suffix string, r io.Reader) (string, string, error) {
	if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
		return "", "", fmt.Errorf("error creating audio directory: %s", err)
	}

	f, err := os.OpenFile(fsPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) && suffix != "" {
		fsPath = strings.TrimSuffix(fsPath, extension) + "-" + Sanitize(suffix) + extension
		f, err = os.OpenFile(fsPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", "", fmt.Errorf("error creating audio file: %w", err)
	}

	if err := write(f, r); err != nil {
		os.Remove(fsPath)
		return "", "", err
	}

	public, err := s.public(fsPath)
	if err != nil {
		os.Remove(fsPath)
		return "", "", err
	}

	return fsPath, public, nil
}

func write(f *os.File, r io.Reader) error {
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("error writing audio: %s", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing audio file: %s", err)
	}

	return nil
}

func (s Store) public(fsPath string) (string, error) {
	rel, err := filepath.Rel(s.Root, fsPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("audio path %q is outside of %q", fsPath, s.Root)
	}

	return path.Join(s.prefix(), filepath.ToSlash(rel)), nil
}

// Open resolves a stored public path back to its file.
func (s Store) Open(publicPath string) (*os.File, error) {
	rel, ok := strings.CutPrefix(path.Clean(publicPath), s.prefix()+"/")
	if !ok {
		return nil, fmt.Errorf("audio path %q is not under %q", publicPath, s.prefix())
	}

	f, err := os.Open(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("error opening audio file: %w", err)
	}

	return f, nil
}

// Remove deletes the file behind a public path, used when its record couldn't
// be stored.
func (s Store) Remove(publicPath string) error {
	f, err := s.Open(publicPath)
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()

	return os.Remove(name)
}
