// Package storage отвечает за файловое хранилище вложений: материалы заявок,
// результаты работ и доказательства по спорам.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// FileStorage сохраняет вложения на диске, раскладывая их по владельцам.
type FileStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// Расширения, которые допускаются без сниффинга: текстовые форматы
// filetype по magic-байтам не распознаёт.
var plainTextExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".csv": {}, ".json": {},
}

// NewFileStorage создаёт файловое хранилище вложений.
func NewFileStorage(rootPath string, maxUploadMB int64) (*FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &FileStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save сохраняет вложение и возвращает относительный путь и размер.
// Тип файла определяется по magic-байтам, исполняемые файлы отклоняются.
func (s *FileStorage) Save(ctx context.Context, ownerID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	safeName := sanitizeFilename(originalName)

	head := make([]byte, 262)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	if err := checkFileType(safeName, head); err != nil {
		return "", 0, err
	}

	fileName := fmt.Sprintf("%s_%d%s", ownerID.String(), time.Now().UnixNano(), filepath.Ext(safeName))

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог владельца: %w", err)
	}

	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(ownerID.String(), fileName)
	return relative, written, nil
}

// Delete удаляет вложение из хранилища.
func (s *FileStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, relativePath)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// checkFileType отклоняет исполняемые файлы и неизвестные бинарные форматы.
func checkFileType(name string, head []byte) error {
	kind, err := filetype.Match(head)
	if err != nil {
		return fmt.Errorf("storage: не удалось определить тип файла: %w", err)
	}

	if kind == types.Unknown {
		if _, ok := plainTextExtensions[strings.ToLower(filepath.Ext(name))]; ok {
			return nil
		}
		return fmt.Errorf("storage: формат файла %q не поддерживается", name)
	}

	switch kind.MIME.Type {
	case "image", "video", "audio":
		return nil
	case "application":
		switch kind.MIME.Subtype {
		case "pdf", "zip", "x-7z-compressed", "x-tar", "gzip", "x-rar-compressed", "msword",
			"vnd.openxmlformats-officedocument.wordprocessingml.document",
			"vnd.openxmlformats-officedocument.spreadsheetml.sheet":
			return nil
		}
	}
	return fmt.Errorf("storage: формат файла %s не поддерживается", kind.MIME.Value)
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}
