// Package storage contains the default [domain.Storage] implementation over
// the local file system.
//
// A datafile is rewritten by writing a temporary sibling named after it with
// a [TempSuffix], syncing it and renaming it over the original, so a crash
// leaves either the old or the new content on disk.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// TempSuffix is appended to a datafile name to get its temporary sibling.
const TempSuffix = "~"

var (
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		return o.MkdirAll(dir, mode)
	}
	osSpecificSync = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)

// Storage implements domain.Storage.
type Storage struct {
	os osOps
}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage() domain.Storage {
	return &Storage{os: &osImpl{}}
}

// AppendFile implements domain.Storage.
func (d *Storage) AppendFile(filename string, mode os.FileMode, data []byte) (int, error) {
	f, err := d.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	return n, err
}

// CrashSafeWriteFileLines implements domain.Storage.
func (d *Storage) CrashSafeWriteFileLines(filename string, lines [][]byte, dirMode os.FileMode, fileMode os.FileMode) error {
	tempFilename := filename + TempSuffix

	if err := d.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := d.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := d.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := d.writeFileLines(tempFilename, lines, fileMode); err != nil {
		return err
	}
	if err := d.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}
	if err := d.os.Rename(tempFilename, filename); err != nil {
		return err
	}
	return d.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements domain.Storage. A missing datafile is
// recovered from its temporary sibling or created empty.
func (d *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + TempSuffix

	filenameExists, err := d.Exists(filename)
	if err != nil {
		return err
	}
	if filenameExists {
		return nil
	}

	tempExists, err := d.Exists(tempFilename)
	if err != nil {
		return err
	}
	if !tempExists {
		return d.os.WriteFile(filename, nil, mode)
	}
	return d.os.Rename(tempFilename, filename)
}

// EnsureParentDirectoryExists implements domain.Storage.
func (d *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return err
	}
	return osSpecificEnsureDir(d.os, dir, mode)
}

// Exists implements domain.Storage.
func (d *Storage) Exists(filename string) (bool, error) {
	if _, err := d.os.Stat(filename); err != nil {
		if d.os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	fileHandle, err := d.os.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := osSpecificSync(fileHandle, isDir); err != nil {
		fileHandle.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}

// ReadFileStream implements domain.Storage.
func (d *Storage) ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error) {
	return d.os.OpenFile(filename, os.O_RDONLY, mode)
}

// ReadDir implements domain.Storage. Only regular files are listed, sorted
// by name. A missing directory has no files.
func (d *Storage) ReadDir(dir string) ([]string, error) {
	entries, err := d.os.ReadDir(dir)
	if err != nil {
		if d.os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *Storage) writeFileLines(filename string, lines [][]byte, mode os.FileMode) error {
	stream, err := d.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err = stream.Write(append(slices.Clip(line), '\n')); err != nil {
			stream.Close()
			return err
		}
	}
	return stream.Close()
}

// Remove implements domain.Storage.
func (d *Storage) Remove(filename string) error {
	return d.os.Remove(filename)
}
