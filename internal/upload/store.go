package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/common"
)

// Options bounds what the store accepts.
type Options struct {
	Dir       string
	MaxSizeMB int
}

// Store persists uploaded PDFs on disk as <uuid>_<cleanName> so a file id
// resolves back to its path without a database.
type Store struct {
	opts   Options
	logger *slog.Logger
}

func NewStore(opts Options, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, common.WrapError(err, "create upload dir")
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{opts: opts, logger: logger}, nil
}

// StoredFile describes one upload on disk.
type StoredFile struct {
	ID        string    `json:"file_id"`
	Name      string    `json:"filename"`
	Path      string    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	Uploaded  time.Time `json:"uploaded_at"`
}

// Save validates and writes one upload, returning its generated id.
func (s *Store) Save(filename string, size int64, r io.Reader) (StoredFile, error) {
	ext := filepath.Ext(filename)
	if !constants.IsAllowedExt(ext) {
		return StoredFile{}, common.NewAppError("BAD_FILE_TYPE",
			fmt.Sprintf("%s: only PDF files are supported", filename), common.ErrInvalidInput)
	}
	maxBytes := int64(s.opts.MaxSizeMB) << 20
	if size > maxBytes {
		return StoredFile{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("%s exceeds the %d MB limit", filename, s.opts.MaxSizeMB), common.ErrInvalidInput)
	}

	id := uuid.NewString()
	clean := cleanName(filename)
	path := filepath.Join(s.opts.Dir, id+"_"+clean)

	f, err := os.Create(path)
	if err != nil {
		return StoredFile{}, common.WrapError(err, "create upload file")
	}
	written, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return StoredFile{}, common.WrapError(err, "write upload file")
	}
	if written > maxBytes {
		os.Remove(path)
		return StoredFile{}, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("%s exceeds the %d MB limit", filename, s.opts.MaxSizeMB), common.ErrInvalidInput)
	}

	s.logger.Info("upload.saved", "file_id", id, "filename", clean, "size_bytes", written)
	return StoredFile{ID: id, Name: clean, Path: path, SizeBytes: written, Uploaded: time.Now()}, nil
}

// Resolve maps a file id back to its stored file.
func (s *Store) Resolve(fileID string) (StoredFile, error) {
	if fileID == "" || strings.ContainsAny(fileID, `/\`) {
		return StoredFile{}, common.NewAppError("BAD_FILE_ID", "malformed file id", common.ErrInvalidInput)
	}
	matches, err := filepath.Glob(filepath.Join(s.opts.Dir, fileID+"_*"))
	if err != nil || len(matches) == 0 {
		return StoredFile{}, common.NewAppError("FILE_NOT_FOUND",
			fmt.Sprintf("file %s not found", fileID), common.ErrNotFound)
	}
	sort.Strings(matches)
	path := matches[0]

	info, err := os.Stat(path)
	if err != nil {
		return StoredFile{}, common.WrapError(err, "stat upload")
	}
	return StoredFile{
		ID:        fileID,
		Name:      strings.TrimPrefix(filepath.Base(path), fileID+"_"),
		Path:      path,
		SizeBytes: info.Size(),
		Uploaded:  info.ModTime(),
	}, nil
}

// List enumerates stored uploads, newest first.
func (s *Store) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return nil, common.WrapError(err, "read upload dir")
	}

	var files []StoredFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, name, ok := splitStoredName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{
			ID:        id,
			Name:      name,
			Path:      filepath.Join(s.opts.Dir, e.Name()),
			SizeBytes: info.Size(),
			Uploaded:  info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Uploaded.After(files[j].Uploaded) })
	return files, nil
}

// Delete removes one upload by id.
func (s *Store) Delete(fileID string) error {
	f, err := s.Resolve(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(f.Path); err != nil {
		return common.WrapError(err, "remove upload")
	}
	s.logger.Info("upload.deleted", "file_id", fileID, "filename", f.Name)
	return nil
}

// cleanName strips any path components and neutralizes separators so the
// stored name is a single safe path segment.
func cleanName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return "upload.pdf"
	}
	return base
}

func splitStoredName(stored string) (id, name string, ok bool) {
	i := strings.Index(stored, "_")
	if i <= 0 || i == len(stored)-1 {
		return "", "", false
	}
	id = stored[:i]
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	return id, stored[i+1:], true
}
