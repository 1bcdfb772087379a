package api

import (
	"io"
	"time"
)

// Storer defines the contract for a storage backend that taps read from and
// write to.
//
// It abstracts away the details of the underlying file system (e.g., local
// disk, S3, HDFS). Paths are opaque to the caller: their meaning is defined
// by the implementation. Missing paths are reported with errors that wrap
// fs.ErrNotExist.
type Storer interface {
	// OpenRead opens a file for reading at a specific byte range.
	// This is used by taps to read whole source files or a single split.
	//
	// Parameters:
	//   path   - The file path or object key.
	//   offset - The byte offset to start reading from.
	//   length - The number of bytes to read, or -1 for the rest of the file.
	//
	// Returns:
	//   A ReadCloser containing the data for the requested range.
	OpenRead(path string, offset, length int64) (io.ReadCloser, error)

	// OpenWrite opens a file for writing, creating parent directories as
	// needed and truncating any existing file.
	//
	// Returns:
	//   A WriteCloser that must be closed to flush data and ensure persistence.
	OpenWrite(path string) (io.WriteCloser, error)

	// Stat describes the file or directory at path.
	Stat(path string) (FileInfo, error)

	// List returns the full paths of the direct children of a directory.
	List(path string) ([]string, error)

	// Delete removes path and, for directories, everything below it.
	// Deleting a missing path is not an error.
	Delete(path string) error
}

// FileInfo describes a path known to a Storer.
type FileInfo struct {
	Path    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}
