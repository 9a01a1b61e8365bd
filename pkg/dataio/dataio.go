// pkg/dataio/dataio.go
package dataio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// LoadReason classifies why a dataset could not be loaded
type LoadReason string

const (
	ReasonNotFound          LoadReason = "not_found"
	ReasonUnreadable        LoadReason = "unreadable"
	ReasonUnsupportedFormat LoadReason = "unsupported_format"
)

// LoadError reports a failed load with its path and classified reason
type LoadError struct {
	Path   string
	Reason LoadReason
	Err    error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s (%s): %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load %s (%s)", e.Path, e.Reason)
}

// Unwrap exposes the underlying cause
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports a failed save with its path
type SaveError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause
func (e *SaveError) Unwrap() error { return e.Err }

// FileIO is the input/output collaborator consumed by the orchestrator.
// It supports delimited text (.csv, .tsv) and the Arrow IPC columnar
// binary format (.arrow, .feather), dispatched by file extension.
type FileIO struct {
	logger *zap.Logger
}

// NewFileIO creates the file-based I/O collaborator
func NewFileIO(logger *zap.Logger) (*FileIO, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &FileIO{logger: logger}, nil
}

// Load reads a dataset from path, classifying failures as LoadError
func (io *FileIO) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	io.logger.Info("Loading dataset", zap.String("path", path))

	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Reason: ReasonUnreadable, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: path, Reason: ReasonNotFound, Err: err}
		}
		return nil, &LoadError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: path, Reason: ReasonUnreadable, Err: errors.New("path is a directory")}
	}

	var ds *dataset.Dataset
	switch ext(path) {
	case ".csv":
		ds, err = readDelimited(path, ',')
	case ".tsv":
		ds, err = readDelimited(path, '\t')
	case ".arrow", ".feather":
		ds, err = readArrowFile(path)
	default:
		return nil, &LoadError{
			Path:   path,
			Reason: ReasonUnsupportedFormat,
			Err:    fmt.Errorf("unsupported file extension %q", ext(path)),
		}
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Reason: ReasonUnreadable, Err: err}
	}

	io.logger.Info("Loaded dataset",
		zap.String("path", path),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", ds.Cols()))
	return ds, nil
}

// Save writes a dataset to path, classifying failures as SaveError
func (io *FileIO) Save(ctx context.Context, ds *dataset.Dataset, path string) error {
	io.logger.Info("Saving dataset", zap.String("path", path))

	if err := ctx.Err(); err != nil {
		return &SaveError{Path: path, Err: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &SaveError{Path: path, Err: err}
		}
	}

	var err error
	switch ext(path) {
	case ".csv":
		err = writeDelimited(ds, path, ',')
	case ".tsv":
		err = writeDelimited(ds, path, '\t')
	case ".arrow", ".feather":
		err = writeArrowFile(ds, path)
	default:
		err = fmt.Errorf("unsupported file extension %q", ext(path))
	}
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}

	io.logger.Info("Saved dataset",
		zap.String("path", path),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", ds.Cols()))
	return nil
}

// ext returns the lower-cased file extension
func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
