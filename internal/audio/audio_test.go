package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	for input, exp := range map[string]string{
		"Hello, World! --Test__2024":  "hello-world-test-2024",
		"  ...Quantum Leap!!!  ":      "quantum-leap",
		"--already-hyphenated--":      "already-hyphenated",
		"tabs\tand\nnewlines":         "tabs-and-newlines",
		"¿Qué?":                       "qu",
		"!!!":                         "",
		"Multiple   Spaces _ - Mixed": "multiple-spaces-mixed",
		"Hello\u00a0World":            "hello-world",
		"Quantum\u2003News\ufeff":     "quantum-news",
	} {
		assert.Equal(t, exp, Sanitize(input), input)
	}
}

func TestPath(t *testing.T) {
	s := Store{Root: "/srv/public/podcasts", PublicPrefix: "/podcasts"}

	fsPath, public := s.Path("Quantum Daily", "Qubits, Explained!", "abc-smry")
	assert.Equal(t, filepath.Join("/srv/public/podcasts", "quantum-daily", "qubits-explained.mp3"), fsPath)
	assert.Equal(t, "/podcasts/quantum-daily/qubits-explained.mp3", public)

	_, public = s.Path("???", "", "abc-smry")
	assert.Equal(t, "/podcasts/abc-smry/abc-smry.mp3", public)
}

func TestWrite(t *testing.T) {
	s := Store{Root: t.TempDir(), PublicPrefix: "podcasts/"}
	fsPath, _ := s.Path("Feed", "Item", "id1")

	written, public, err := s.Write(fsPath, "id1", strings.NewReader("mp3 bytes"))
	require.NoError(t, err)
	assert.Equal(t, fsPath, written)
	assert.Equal(t, "/podcasts/feed/item.mp3", public)

	f, err := s.Open(public)
	require.NoError(t, err)
	byts, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(byts))

	// Collisions get the suffix rather than clobbering
	_, public, err = s.Write(fsPath, "id2", strings.NewReader("other bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/podcasts/feed/item-id2.mp3", public)

	byts, err = os.ReadFile(fsPath)
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(byts))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream broke") }

func TestWriteRemovesPartial(t *testing.T) {
	s := Store{Root: t.TempDir(), PublicPrefix: "/podcasts"}
	fsPath, _ := s.Path("Feed", "Item", "id1")

	_, _, err := s.Write(fsPath, "id1", io.MultiReader(strings.NewReader("partial"), failingReader{}))
	assert.ErrorContains(t, err, "stream broke")

	_, err = os.Stat(fsPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenOutsidePrefix(t *testing.T) {
	s := Store{Root: t.TempDir(), PublicPrefix: "/podcasts"}

	_, err := s.Open("/elsewhere/file.mp3")
	assert.Error(t, err)
	_, err = s.Open("/podcasts/../../etc/passwd")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	s := Store{Root: t.TempDir(), PublicPrefix: "/podcasts"}
	fsPath, _ := s.Path("Feed", "Item", "id1")
	_, public, err := s.Write(fsPath, "id1", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(public))
	_, err = os.Stat(fsPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
