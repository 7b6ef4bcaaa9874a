package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PointID identifies a point in the vector index: an unsigned integer or a string (UUID).
type PointID struct {
	num     uint64
	str     string
	numeric bool
}

// NumericID creates an integer point identifier.
func NumericID(n uint64) PointID { return PointID{num: n, numeric: true} }

// StringID creates a string point identifier.
func StringID(s string) PointID { return PointID{str: s} }

// IsNumeric reports whether the identifier is an integer.
func (id PointID) IsNumeric() bool { return id.numeric }

// String renders the identifier for logs and text output.
func (id PointID) String() string {
	if id.numeric {
		return strconv.FormatUint(id.num, 10)
	}
	return id.str
}

// MarshalJSON keeps the shape the identifier arrived in.
func (id PointID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatUint(id.num, 10)), nil
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON accepts a JSON number or string.
func (id *PointID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("point id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("point id must be an unsigned integer or a string, got %s", data)
	}
	*id = NumericID(n)
	return nil
}
