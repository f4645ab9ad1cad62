package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

// Минимальный PNG: сигнатура и начало IHDR.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

var pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

func TestSniff(t *testing.T) {
	kind, mime, err := Sniff(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeImage, kind)
	assert.Equal(t, "image/png", mime)

	kind, _, err = Sniff(pdfHeader)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeDocument, kind)

	_, _, err = Sniff([]byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestEvidenceStorage_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewEvidenceStorage(root, 1)
	require.NoError(t, err)

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 1024)...)
	stored, err := s.Save(context.Background(), 42, "../../photo.PNG", bytes.NewReader(content))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.URL, PublicPrefix+"42/"))
	assert.True(t, strings.HasSuffix(stored.URL, ".png"))
	assert.Equal(t, int64(len(content)), stored.Size)
	assert.Equal(t, models.EvidenceTypeImage, stored.EvidenceType)
	sum := blake2b.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.Checksum)

	path := filepath.Join(root, strings.TrimPrefix(stored.URL, PublicPrefix))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, saved)

	require.NoError(t, s.Remove(stored.URL))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove("https://cdn.example.com/x.png"))
	assert.Error(t, s.Remove(PublicPrefix+"../../etc/passwd"))
}

func TestEvidenceStorage_TooLarge(t *testing.T) {
	s, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 2*1024*1024)...)
	_, err = s.Save(context.Background(), 1, "big.png", bytes.NewReader(content))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestEvidenceStorage_Locate(t *testing.T) {
	s, err := NewEvidenceStorage(t.TempDir(), 1)
	require.NoError(t, err)

	content := append(append([]byte{}, pngHeader...), 0x01, 0x02)
	stored, err := s.Save(context.Background(), 42, "photo.png", bytes.NewReader(content))
	require.NoError(t, err)
	name := strings.TrimPrefix(stored.URL, PublicPrefix+"42/")

	path, err := s.Locate(42, name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	for _, tc := range []struct {
		disputeID int64
		name      string
	}{
		{43, name},
		{42, "missing.png"},
		{42, ""},
		{42, "../42/" + name},
		{42, name + ".tmp"},
	} {
		_, err := s.Locate(tc.disputeID, tc.name)
		assert.ErrorIs(t, err, ErrFileNotFound, "%d/%s", tc.disputeID, tc.name)
	}
}
