package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// TypeTag identifies a column's element type across the boundary.
// The numeric values are part of the C ABI and must not be reordered.
type TypeTag int32

const (
	// TypeInt64 is a 64-bit signed integer column
	TypeInt64 TypeTag = iota
	// TypeInt32 is a 32-bit signed integer column
	TypeInt32
	// TypeUint64 is a 64-bit unsigned integer column
	TypeUint64
	// TypeFloat64 is a 64-bit floating point column
	TypeFloat64
	// TypeFloat32 is a 32-bit floating point column
	TypeFloat32
	// TypeString is a variable-width UTF-8 column
	TypeString
	// TypeBool is a boolean column, stored bit-packed
	TypeBool
	// TypeDateTime is a timestamp column in milliseconds since the Unix epoch
	TypeDateTime
	// TypeUnknown is the fallback for source types outside the supported set.
	// Columns report it instead of failing; typed access to them is rejected.
	TypeUnknown
)

// String returns the tag's display name
func (t TypeTag) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeInt32:
		return "int32"
	case TypeUint64:
		return "uint64"
	case TypeFloat64:
		return "float64"
	case TypeFloat32:
		return "float32"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeDateTime:
		return "datetime[ms]"
	default:
		return "unknown"
	}
}

// ColumnInfo describes one column of a frame
type ColumnInfo struct {
	Name string
	Type TypeTag
}

// TagOf maps an arrow type to its boundary tag. Types outside the
// supported set map to TypeUnknown.
func TagOf(dt arrow.DataType) TypeTag {
	switch dt.ID() {
	case arrow.INT64:
		return TypeInt64
	case arrow.INT32:
		return TypeInt32
	case arrow.UINT64:
		return TypeUint64
	case arrow.FLOAT64:
		return TypeFloat64
	case arrow.FLOAT32:
		return TypeFloat32
	case arrow.STRING:
		return TypeString
	case arrow.BOOL:
		return TypeBool
	case arrow.TIMESTAMP:
		if ts, ok := dt.(*arrow.TimestampType); ok && ts.Unit == arrow.Millisecond {
			return TypeDateTime
		}
		return TypeUnknown
	default:
		return TypeUnknown
	}
}

// ArrowType returns the arrow type a tag maps to, or nil for TypeUnknown.
func ArrowType(t TypeTag) arrow.DataType {
	switch t {
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case TypeUint64:
		return arrow.PrimitiveTypes.Uint64
	case TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case TypeFloat32:
		return arrow.PrimitiveTypes.Float32
	case TypeString:
		return arrow.BinaryTypes.String
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeDateTime:
		return arrow.FixedWidthTypes.Timestamp_ms
	default:
		return nil
	}
}

// byteWidth returns the element width in bytes for fixed-width tags.
// Bool is bit-packed and handled separately; variable-width and unknown
// tags return 0.
func byteWidth(t TypeTag) int {
	switch t {
	case TypeInt64, TypeUint64, TypeFloat64, TypeDateTime:
		return 8
	case TypeInt32, TypeFloat32:
		return 4
	default:
		return 0
	}
}
