package ioutils

import (
	"errors"
	"io/fs"
	"os"
)

// CreateExclusive creates path for writing and fails if it already exists.
//
// The file is created with mode 0644. The existence check and the creation
// are a single atomic operation (O_CREATE|O_EXCL), so two runs racing for
// the same artifact cannot both write it.
//
// Returns an error wrapping fs.ErrExist if the path is taken.
//
// Example:
//
//	f, err := CreateExclusive("/music/Label/2022-01-30 - Artist - Name.zip")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
func CreateExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

// WriteNew writes data to a new file at path.
//
// Unlike os.WriteFile it never truncates: if path exists, nothing is written
// and an error wrapping fs.ErrExist is returned. A partially written file is
// removed.
//
// Example:
//
//	err := WriteNew("/music/Label/2022-01-30 - Artist - Name.jpg", cover)
func WriteNew(path string, data []byte) (err error) {
	f, err := CreateExclusive(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	_, err = f.Write(data)
	return err
}

// RenameNoReplace renames src to dst unless dst already exists.
//
// It returns false without error when dst is taken or src does not exist,
// so it can be applied to every candidate of a folder without checking
// first.
//
// Example:
//
//	renamed, err := RenameNoReplace("/music/Label/Artist - Name", "/music/Label/2022-01-30 - Artist - Name")
func RenameNoReplace(src, dst string) (bool, error) {
	if _, err := os.Lstat(dst); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir("/music/Label")
//	// Creates /music and /music/Label if needed
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
