// Package upload reads local files into handles the wizard can send to the
// remote parser, and reads tables out of them for local inspection.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kosarica/import-wizard/internal/types"
)

// MaxFileSize is the largest file accepted for upload
const MaxFileSize = 20 << 20

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds upload limit")
)

var zipMagic = []byte("PK\x03\x04")

// Open reads path into a FileHandle
func Open(path string) (*types.FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrUnsupportedType)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewHandle(filepath.Base(path), content)
}

// NewHandle wraps already-loaded content, detecting its type from the name
// and the leading bytes
func NewHandle(name string, content []byte) (*types.FileHandle, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if len(content) > MaxFileSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", name, len(content), ErrTooLarge)
	}
	fileType, err := DetectType(name, content)
	if err != nil {
		return nil, err
	}
	return &types.FileHandle{
		Name:    name,
		Type:    fileType,
		Size:    int64(len(content)),
		Content: content,
	}, nil
}

// DetectType classifies content as CSV or XLSX
func DetectType(name string, content []byte) (types.FileType, error) {
	isZip := bytes.HasPrefix(content, zipMagic)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		if !isZip {
			return "", fmt.Errorf("%s is not a valid xlsx workbook: %w", name, ErrUnsupportedType)
		}
		return types.FileTypeXLSX, nil
	case ".csv", ".txt":
		return types.FileTypeCSV, nil
	}
	if isZip {
		return types.FileTypeXLSX, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrUnsupportedType)
}
