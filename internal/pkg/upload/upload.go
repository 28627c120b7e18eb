// Package upload holds the acceptance rules for task attachments and the
// naming scheme for staged temp files and stored objects.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const MaxFileSize = 5 * 1024 * 1024 // 5 MB

var (
	ErrFileTooLarge    = errors.New("file exceeds the 5 MB size limit")
	ErrInvalidType     = errors.New("invalid file type")
	ErrEmptyAttachment = errors.New("attachment is empty")
)

var allowedExtensions = map[string]struct{}{
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".pdf":  {},
	".docx": {},
}

// Validate checks an incoming attachment against the accepted types and the
// size cap before anything is staged to disk.
func Validate(filename string, size int64) error {
	if size <= 0 {
		return ErrEmptyAttachment
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return ErrInvalidType
	}
	return nil
}

// TempName builds a unique staging name that keeps the original extension.
func TempName(original string) string {
	return fmt.Sprintf("%d%s", time.Now().UnixNano(), strings.ToLower(filepath.Ext(original)))
}

// ObjectKey builds the storage key for an uploaded attachment. The key is
// persisted on the task so deletes never derive it from the URL.
func ObjectKey(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.ReplaceAll(base, " ", "-")
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), base, strings.ToLower(filepath.Ext(original)))
}
