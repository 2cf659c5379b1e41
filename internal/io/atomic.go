// Package io reads and writes the pipeline's on-disk tables and matrices.
package io

import (
	"bufio"
	stdio "io"
	"os"
	"path/filepath"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Writer is what WriteAtomic hands to the caller's encoder
type Writer = stdio.Writer

// WriteAtomic writes to a temporary file next to path and renames it into
// place, so readers never observe a partial output.
func WriteAtomic(path string, write func(w Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.IOError("creating "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.IOError("creating temporary file for "+path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return errors.IOError("flushing "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.IOError("closing "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.IOError("renaming into "+path, err)
	}
	return nil
}

// Exists reports whether path names an existing file
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
