package io

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gonum/matrix/mat64"
	"github.com/kshedden/gonpy"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// WriteNpy writes a matrix to a numpy .npy file
func WriteNpy(path string, matrix mat64.Matrix) error {
	rows, cols := matrix.Dims()
	dense := mat64.DenseCopyOf(matrix)
	rawMat := dense.RawMatrix()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.IOError("creating "+filepath.Dir(path), err)
	}

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return errors.IOError("failed to open "+path, err)
	}
	w.Shape = []int{rows, cols}
	w.Version = 2
	if err := w.WriteFloat64(rawMat.Data); err != nil {
		return errors.IOError("failed to write "+path, err)
	}

	return nil
}

// ReadNpy reads a 2-D float64 numpy .npy file
func ReadNpy(path string) (*mat64.Dense, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.MissingInput(path, err)
	}

	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, errors.IOError("failed to open "+path, err)
	}
	if len(r.Shape) != 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s: expected a 2-D array, got shape %v", path, r.Shape))
	}

	rows := r.Shape[0]
	cols := r.Shape[1]
	data, err := r.GetFloat64()
	if err != nil {
		return nil, errors.IOError("failed to read "+path, err)
	}
	return mat64.NewDense(rows, cols, data), nil
}
