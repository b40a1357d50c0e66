package envi

import (
	"hsicube/pkg/numeric"
)

// dataTypes maps ENVI data type codes to element types. Codes 7, 8, 10 and
// 11 are not assigned.
var dataTypes = map[int]numeric.DType{
	1:  numeric.Uint8,
	2:  numeric.Int16,
	3:  numeric.Int32,
	4:  numeric.Float32,
	5:  numeric.Float64,
	6:  numeric.Complex64,
	9:  numeric.Complex128,
	12: numeric.Uint16,
	13: numeric.Uint32,
	14: numeric.Int64,
	15: numeric.Uint64,
}

// DataType returns the element type for an ENVI data type code.
func DataType(code int) (numeric.DType, error) {
	if d, ok := dataTypes[code]; ok {
		return d, nil
	}
	return numeric.Invalid, &DataTypeError{Code: code}
}

// DataTypeCode returns the ENVI code for an element type, or 0 when there
// is none.
func DataTypeCode(d numeric.DType) int {
	for code, dt := range dataTypes {
		if dt == d {
			return code
		}
	}
	return 0
}
