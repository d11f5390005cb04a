package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"taskini/internal/common"
)

type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(root, Prefix), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// path resolves ref inside root and rejects anything that escapes it.
func (s *LocalStorage) path(ref string) (string, error) {
	clean := filepath.Clean("/" + ref)
	if !strings.HasPrefix(clean, "/"+Prefix) {
		return "", common.NewError(common.ErrNotFound, "File not found")
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStorage) Store(_ context.Context, name string, data []byte, _ string) (string, error) {
	ref := Prefix + filepath.Base(name)
	p, err := s.path(ref)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	return ref, nil
}

func (s *LocalStorage) Open(_ context.Context, ref string) ([]byte, string, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", common.NewError(common.ErrNotFound, "File not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", ref, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func (s *LocalStorage) Delete(_ context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

func (s *LocalStorage) Close() error { return nil }
