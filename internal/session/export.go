package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/labels"
)

// DefaultExportName is the file name used when no export path is given.
const DefaultExportName = "flashcards-export.json"

// ExportEnvelope is the on-disk export shape: the full card dataset plus the
// label mapping, round-trippable through Import.
type ExportEnvelope struct {
	Dataset []card.Card             `json:"dataset"`
	Labels  map[string]labels.Label `json:"labels"`
}

// ExportOutput contains the result of an export.
type ExportOutput struct {
	Path       string `json:"path"`
	Cards      int    `json:"cards"`
	Labels     int    `json:"labels"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportJSON serializes the loaded dataset and label mapping.
func (s *Session) ExportJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, errors.NewNoDataset()
	}

	env := ExportEnvelope{
		Dataset: s.cards,
		Labels:  s.labels,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return append(data, '\n'), nil
}

// Export writes the dataset and labels to path, defaulting to
// flashcards-export.json under the exports directory. The write goes to a
// temp file first so a failure never clobbers an existing export.
func (s *Session) Export(path string) (*ExportOutput, error) {
	if path == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, DefaultExportName)
	}

	if err := ValidatePath(path, PathCheckWrite, s.cfg); err != nil {
		return nil, err
	}

	data, err := s.ExportJSON()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Remove the temp file on any failure; the original export is untouched.
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true

	s.mu.Lock()
	out := &ExportOutput{
		Path:       path,
		Cards:      len(s.cards),
		Labels:     len(s.labels),
		ExportedAt: time.Now().Unix(),
	}
	s.mu.Unlock()
	return out, nil
}
