// Package storage manages the server's ephemeral on-disk files:
// downloaded media, processed crop results and scratch space for
// in-flight transforms. Every file is expendable and cleaned up on a
// timer once served.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// Category names a subdirectory with its own lifecycle
type Category string

const (
	// CategoryDownloads holds saved media awaiting pickup
	CategoryDownloads Category = "downloads"
	// CategoryProcessed holds crop results awaiting pickup
	CategoryProcessed Category = "processed"
	// CategoryWork holds in-flight transform inputs and outputs
	CategoryWork Category = "work"
)

// Manager hands out unique file paths under a base directory and
// deletes them when their lifetime ends
type Manager struct {
	baseDir string
	logger  logger.Logger
}

// NewManager creates the category directories under baseDir
func NewManager(baseDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	for _, cat := range []Category{CategoryDownloads, CategoryProcessed, CategoryWork} {
		dir := filepath.Join(baseDir, string(cat))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeStorage, fmt.Sprintf("could not create %s directory", cat), err)
		}
	}
	return &Manager{baseDir: baseDir, logger: log}, nil
}

// Dir returns the directory backing a category
func (m *Manager) Dir(cat Category) string {
	return filepath.Join(m.baseDir, string(cat))
}

// Reserve returns a fresh unique path under the category. Nothing is
// created on disk; the caller writes the file.
func (m *Manager) Reserve(cat Category, prefix, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", prefix, uuid.NewString(), strings.TrimPrefix(ext, "."))
	return filepath.Join(m.Dir(cat), name)
}

// Path resolves a client-supplied filename inside a category. Names
// carrying path separators or traversal segments are rejected.
func (m *Manager) Path(cat Category, filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) ||
		strings.HasPrefix(filename, ".") || strings.ContainsAny(filename, `/\`) {
		return "", errs.New(errs.ErrorTypeValidation, "invalid filename")
	}
	return filepath.Join(m.Dir(cat), filename), nil
}

// Exists reports whether path names a regular file on disk
func (m *Manager) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Release deletes a file. Releasing a missing file is not an error.
func (m *Manager) Release(path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		m.logger.WarnWithFields("could not remove file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	if err == nil {
		m.logger.DebugWithFields("removed file", map[string]interface{}{
			"path": path,
		})
	}
}

// ReleaseAfter schedules deletion of a file after delay
func (m *Manager) ReleaseAfter(path string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		m.Release(path)
	})
}
