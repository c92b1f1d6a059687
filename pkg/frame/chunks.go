package frame

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/frameport/frameport/pkg/errors"
)

// Chunk is a borrowed view over one contiguous run of a column's primitive
// storage: a raw address and a logical element count. It is valid only
// while its owning frame is alive and un-rechunked; Frame.Valid checks
// that. For bool columns the address points at a bit-packed bitmap holding
// 8 logical elements per byte, and Len counts elements, not bytes.
type Chunk struct {
	Addr uintptr
	Len  int

	gen uint64
}

// Valid reports whether a chunk may still be dereferenced: the frame is
// open and has not been rechunked since the chunk was issued.
func (f *Frame) Valid(c Chunk) bool {
	return !f.closed && c.gen == f.gen
}

// Chunks returns zero-copy views over a column's storage. The requested tag
// must match the column's reported type exactly. String columns have no
// chunk form; use Strings. Unknown-typed columns are rejected the same way.
func (f *Frame) Chunks(name string, tag TypeTag) ([]Chunk, error) {
	if tag == TypeString {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q: string columns are materialized, not chunked", name)
	}

	chunked, err := f.typedColumn(name, tag)
	if err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(chunked.Chunks()))
	for _, arr := range chunked.Chunks() {
		if arr.Len() == 0 {
			continue
		}
		c, err := chunkOf(arr, tag, f.gen)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// chunkOf extracts the value buffer address of one array
func chunkOf(arr arrow.Array, tag TypeTag, gen uint64) (Chunk, error) {
	data := arr.Data()
	buf := data.Buffers()[1]
	if buf == nil || buf.Len() == 0 {
		return Chunk{}, errors.New(errors.ErrorTypeEngine, "column chunk has no value buffer")
	}
	base := uintptr(unsafe.Pointer(&buf.Bytes()[0]))

	if tag == TypeBool {
		// Bit-packed; the view can only start on a byte boundary.
		if data.Offset()%8 != 0 {
			return Chunk{}, errors.New(errors.ErrorTypeEngine,
				"bool column chunk is not byte aligned")
		}
		return Chunk{Addr: base + uintptr(data.Offset()/8), Len: arr.Len(), gen: gen}, nil
	}

	width := byteWidth(tag)
	return Chunk{Addr: base + uintptr(data.Offset()*width), Len: arr.Len(), gen: gen}, nil
}

// Strings materializes a string column. Absent values surface as "".
func (f *Frame) Strings(name string) ([]string, error) {
	chunked, err := f.typedColumn(name, TypeString)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, chunked.Len())
	for _, arr := range chunked.Chunks() {
		sa := arr.(*array.String)
		for i := 0; i < sa.Len(); i++ {
			if sa.IsNull(i) {
				out = append(out, "")
			} else {
				out = append(out, sa.Value(i))
			}
		}
	}
	return out, nil
}

// copyColumn materializes a fixed-width column into a Go slice, collapsing
// absent values into the zero value. One generic implementation serves
// every primitive type; the type dispatch happens through the tag check in
// typedColumn.
func copyColumn[T any, A interface {
	arrow.Array
	Value(int) T
}](f *Frame, name string, tag TypeTag) ([]T, error) {
	chunked, err := f.typedColumn(name, tag)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, chunked.Len())
	var zero T
	for _, arr := range chunked.Chunks() {
		ta := arr.(A)
		for i := 0; i < ta.Len(); i++ {
			if ta.IsNull(i) {
				out = append(out, zero)
			} else {
				out = append(out, ta.Value(i))
			}
		}
	}
	return out, nil
}

// Int64s copies an int64 column. Absent values surface as 0.
func (f *Frame) Int64s(name string) ([]int64, error) {
	return copyColumn[int64, *array.Int64](f, name, TypeInt64)
}

// Int32s copies an int32 column. Absent values surface as 0.
func (f *Frame) Int32s(name string) ([]int32, error) {
	return copyColumn[int32, *array.Int32](f, name, TypeInt32)
}

// Uint64s copies a uint64 column. Absent values surface as 0.
func (f *Frame) Uint64s(name string) ([]uint64, error) {
	return copyColumn[uint64, *array.Uint64](f, name, TypeUint64)
}

// Float64s copies a float64 column. Absent values surface as 0.
func (f *Frame) Float64s(name string) ([]float64, error) {
	return copyColumn[float64, *array.Float64](f, name, TypeFloat64)
}

// Float32s copies a float32 column. Absent values surface as 0.
func (f *Frame) Float32s(name string) ([]float32, error) {
	return copyColumn[float32, *array.Float32](f, name, TypeFloat32)
}

// Bools copies a bool column, unpacking the bitmap. Absent values surface
// as false.
func (f *Frame) Bools(name string) ([]bool, error) {
	return copyColumn[bool, *array.Boolean](f, name, TypeBool)
}

// DateTimes copies a datetime column as milliseconds since the Unix epoch.
// Absent values surface as 0.
func (f *Frame) DateTimes(name string) ([]int64, error) {
	ts, err := copyColumn[arrow.Timestamp, *array.Timestamp](f, name, TypeDateTime)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = int64(t)
	}
	return out, nil
}
