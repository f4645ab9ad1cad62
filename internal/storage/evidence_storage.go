package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

// PublicPrefix URL, под которым раздаются файлы доказательств.
const PublicPrefix = "/files/evidence/"

// ErrTooLarge возвращается, когда файл превышает лимит загрузки.
var ErrTooLarge = errors.New("storage: файл превышает лимит")

// ErrFileNotFound возвращается, когда файла спора нет в хранилище.
var ErrFileNotFound = errors.New("storage: файл не найден")

// ErrUnsupportedType возвращается для файлов, тип которых не удалось распознать.
var ErrUnsupportedType = errors.New("storage: неподдерживаемый тип файла")

// SniffSize сколько первых байт нужно для определения типа.
const SniffSize = 512

// StoredFile результат сохранения.
type StoredFile struct {
	URL          string
	Size         int64
	MIME         string
	EvidenceType models.EvidenceType
	// Checksum: BLAKE2b-256 содержимого в hex.
	Checksum string
}

// EvidenceStorage отвечает за файловое хранилище доказательств.
type EvidenceStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewEvidenceStorage создаёт файловое хранилище.
func NewEvidenceStorage(rootPath string, maxUploadMB int64) (*EvidenceStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &EvidenceStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Root возвращает каталог хранилища.
func (s *EvidenceStorage) Root() string {
	return s.rootPath
}

// MaxUploadBytes возвращает лимит размера файла.
func (s *EvidenceStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Sniff определяет тип доказательства по первым байтам файла.
func Sniff(head []byte) (models.EvidenceType, string, error) {
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", "", ErrUnsupportedType
	}

	switch {
	case filetype.IsImage(head):
		return models.EvidenceTypeImage, kind.MIME.Value, nil
	case filetype.IsVideo(head):
		return models.EvidenceTypeVideo, kind.MIME.Value, nil
	case filetype.IsDocument(head) || kind.MIME.Value == "application/pdf":
		return models.EvidenceTypeDocument, kind.MIME.Value, nil
	}
	return models.EvidenceTypeOther, kind.MIME.Value, nil
}

// Save сохраняет файл спора. Тип определяется по содержимому, а не по расширению.
func (s *EvidenceStorage) Save(ctx context.Context, disputeID int64, originalName string, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := make([]byte, SniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrUnsupportedType
	}

	evidenceType, mime, err := Sniff(head)
	if err != nil {
		return nil, err
	}

	dir := strconv.FormatInt(disputeID, 10)
	if err := os.MkdirAll(filepath.Join(s.rootPath, dir), 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог спора: %w", err)
	}

	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(sanitizeFilename(originalName)))
	targetPath := filepath.Join(s.rootPath, dir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	hasher, err := blake2b.New256(nil)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: %w", err)
	}

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(io.MultiWriter(f, hasher), &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, ErrTooLarge
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &StoredFile{
		URL:          PublicPrefix + dir + "/" + fileName,
		Size:         written,
		MIME:         mime,
		EvidenceType: evidenceType,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Locate возвращает путь к сохранённому файлу спора. Имя должно быть
// именем файла внутри каталога спора, недописанные файлы не отдаются.
func (s *EvidenceStorage) Locate(disputeID int64, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || strings.HasSuffix(name, ".tmp") {
		return "", ErrFileNotFound
	}

	path := filepath.Join(s.rootPath, strconv.FormatInt(disputeID, 10), name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrFileNotFound
	}
	return path, nil
}

// Remove удаляет файл по его URL. Чужие URL игнорируются.
func (s *EvidenceStorage) Remove(fileURL string) error {
	if !strings.HasPrefix(fileURL, PublicPrefix) {
		return nil
	}
	relative := filepath.Clean(strings.TrimPrefix(fileURL, PublicPrefix))
	if strings.HasPrefix(relative, "..") || filepath.IsAbs(relative) {
		return fmt.Errorf("storage: недопустимый путь %q", fileURL)
	}

	if err := os.Remove(filepath.Join(s.rootPath, relative)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "evidence"
	}
	return name
}
