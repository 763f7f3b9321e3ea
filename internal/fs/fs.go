// Package fs abstracts the filesystem operations the sidecar store depends
// on: existence/mtime probes, durable writes, and directory maintenance.
//
// The main types are:
//   - [FS]: interface for filesystem operations
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using the [os] package
//
// Injecting an [FS] keeps the store testable without touching global state.
// Durability-sensitive callers use [File.Sync] after writes and [FS.SyncDir]
// after renames so a crash never leaves a half-visible generation.
package fs

import (
	"io"
	"os"
)

// File represents an open file descriptor.
//
// This interface is satisfied by [os.File] and can be used with standard
// library functions that accept [io.Reader], [io.Writer], or [io.Closer].
type File interface {
	io.ReadWriteCloser

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to the storage device. See [os.File.Sync].
	Sync() error
}

// FS defines the filesystem operations used for sidecar resolution,
// durable writes, and purging.
//
// All methods mirror their [os] package equivalents but can be intercepted
// for testing.
type FS interface {
	// --- File Operations ---

	// Create creates or truncates a file for writing. See [os.Create].
	Create(path string) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data to a file atomically.
	// Uses a temp file + rename to prevent partial writes on crash.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// --- Directory Operations ---

	// ReadDir reads a directory and returns its entries. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// SyncDir forces a directory's entries to the storage device.
	// Called after a rename so the new entry survives a crash.
	SyncDir(path string) error

	// --- Metadata ---

	// Stat returns file info. See [os.Stat].
	// Returns [os.ErrNotExist] if the file doesn't exist.
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a path exists as a regular file.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// --- Mutations ---

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// Rename moves/renames a file or directory. See [os.Rename].
	// Atomic on the same filesystem.
	Rename(oldpath, newpath string) error
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
