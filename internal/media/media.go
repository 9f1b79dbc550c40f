// Package media stores uploaded files on disk, one directory per chat.
package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
)

type Store struct {
	root string
	log  *logger.Logger
}

func NewStore(root string, baseLog *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir %s: %w", root, err)
	}
	return &Store{
		root: root,
		log:  baseLog.With("store", "MediaStore"),
	}, nil
}

// Root is the directory all chat media lives under.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(chatID, filename string) string {
	// Base() keeps uploads from escaping the media tree via ../ names.
	return filepath.Join(s.root, filepath.Base(chatID), filepath.Base(filename))
}

// Save writes the file, creating the chat directory on demand. An existing
// file with the same name is overwritten silently.
func (s *Store) Save(chatID, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.root, filepath.Base(chatID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("failed to create chat media dir", "chatID", chatID, "error", err)
		return "", err
	}
	path := s.path(chatID, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Error("failed to write media file", "path", path, "error", err)
		return "", err
	}
	return path, nil
}

func (s *Store) Read(chatID, filename string) ([]byte, error) {
	data, err := os.ReadFile(s.path(chatID, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("File not found")
		}
		return nil, err
	}
	return data, nil
}
