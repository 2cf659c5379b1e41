// Package matfile reads numeric 2-D arrays from MATLAB Level-5 .mat files.
package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	stdio "io"
	"math"
	"os"

	"github.com/gonum/matrix/mat64"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

const headerSize = 128

// data element types
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// numeric array classes; everything else (cell, struct, char, sparse) is skipped
var numericClass = map[byte]bool{
	6: true, 7: true, 8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true,
}

// Array is one named numeric variable
type Array struct {
	Name string
	Dims []int
	// Data is column-major
	Data []float64
}

// Matrix returns a 2-D array as a row-major dense matrix
func (a *Array) Matrix() (*mat64.Dense, error) {
	if len(a.Dims) != 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("variable %s has %d dimensions", a.Name, len(a.Dims)))
	}
	rows, cols := a.Dims[0], a.Dims[1]
	m := mat64.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			m.Set(i, j, a.Data[j*rows+i])
		}
	}
	return m, nil
}

// ReadVariable returns the named 2-D numeric variable of a .mat file
func ReadVariable(path, name string) (*mat64.Dense, error) {
	arrays, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, a := range arrays {
		if a.Name == name {
			return a.Matrix()
		}
	}
	return nil, errors.InvalidInput(fmt.Sprintf("%s: no numeric variable %q", path, name))
}

// ReadFile decodes every numeric variable of a .mat file
func ReadFile(path string) ([]*Array, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingInput(path, err)
		}
		return nil, errors.IOError("reading "+path, err)
	}
	arrays, err := Decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return arrays, nil
}

// Decode parses a complete Level-5 file image
func Decode(raw []byte) ([]*Array, error) {
	if len(raw) < headerSize {
		return nil, errors.InvalidInput("file shorter than a MAT-file header")
	}

	var order binary.ByteOrder
	switch string(raw[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, errors.InvalidInput("not a Level-5 MAT-file")
	}

	d := decoder{order: order}
	var arrays []*Array
	if err := d.elements(raw[headerSize:], &arrays); err != nil {
		return nil, err
	}
	return arrays, nil
}

type decoder struct {
	order binary.ByteOrder
}

// tag splits the next element into its type and payload and returns the rest
func (d decoder) tag(buf []byte) (uint32, []byte, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, nil, errors.InvalidInput("truncated data element tag")
	}
	first := d.order.Uint32(buf[0:4])

	// small data element: size and type share the first word
	if small := first >> 16; small != 0 {
		if small > 4 {
			return 0, nil, nil, errors.InvalidInput("malformed small data element")
		}
		return first & 0xffff, buf[4 : 4+small], buf[8:], nil
	}

	size := int(d.order.Uint32(buf[4:8]))
	if len(buf) < 8+size {
		return 0, nil, nil, errors.InvalidInput("truncated data element")
	}
	payload := buf[8 : 8+size]

	next := 8 + size
	if first != miCOMPRESSED {
		next = 8 + (size+7)/8*8
	}
	if next > len(buf) {
		next = len(buf)
	}
	return first, payload, buf[next:], nil
}

func (d decoder) elements(buf []byte, arrays *[]*Array) error {
	for len(buf) > 0 {
		typ, payload, rest, err := d.tag(buf)
		if err != nil {
			return err
		}
		buf = rest

		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return errors.InvalidInput(fmt.Sprintf("compressed element: %v", err))
			}
			inflated, err := stdio.ReadAll(zr)
			zr.Close()
			if err != nil {
				return errors.InvalidInput(fmt.Sprintf("compressed element: %v", err))
			}
			if err := d.elements(inflated, arrays); err != nil {
				return err
			}
		case miMATRIX:
			a, err := d.matrix(payload)
			if err != nil {
				return err
			}
			if a != nil {
				*arrays = append(*arrays, a)
			}
		}
	}
	return nil
}

// matrix decodes an miMATRIX payload; non-numeric classes yield nil
func (d decoder) matrix(buf []byte) (*Array, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	typ, flags, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, errors.InvalidInput("matrix without array flags")
	}
	word := d.order.Uint32(flags[0:4])
	class := byte(word & 0xff)
	complexFlag := word&0x0800 != 0
	if !numericClass[class] {
		return nil, nil
	}

	typ, dimsRaw, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	if typ != miINT32 {
		return nil, errors.InvalidInput("matrix without dimensions")
	}
	dims := make([]int, len(dimsRaw)/4)
	total := 1
	for i := range dims {
		dims[i] = int(int32(d.order.Uint32(dimsRaw[4*i:])))
		total *= dims[i]
	}

	_, nameRaw, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}

	typ, realPart, _, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	data, err := d.numbers(typ, realPart)
	if err != nil {
		return nil, err
	}
	if len(data) != total {
		return nil, errors.InvalidInput(fmt.Sprintf("variable %s: %d values for dims %v", nameRaw, len(data), dims))
	}
	if complexFlag {
		return nil, errors.InvalidInput(fmt.Sprintf("variable %s is complex", nameRaw))
	}

	return &Array{Name: string(nameRaw), Dims: dims, Data: data}, nil
}

func (d decoder) numbers(typ uint32, buf []byte) ([]float64, error) {
	var width int
	switch typ {
	case miINT8, miUINT8:
		width = 1
	case miINT16, miUINT16:
		width = 2
	case miINT32, miUINT32, miSINGLE:
		width = 4
	case miDOUBLE, miINT64, miUINT64:
		width = 8
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported numeric type %d", typ))
	}

	out := make([]float64, len(buf)/width)
	for i := range out {
		b := buf[i*width : (i+1)*width]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(b)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(b)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(b)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(b))
		}
	}
	return out, nil
}
