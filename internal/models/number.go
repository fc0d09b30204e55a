package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NullFloat is a reps or weight value as logged by a client. Clients send
// numbers, numeric strings, null, or omit the field entirely; all of these are
// normalised once on decode so the analytics code only ever asks Valid.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat unless v is NaN or infinite.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// FloatPtr converts a nullable database column.
func FloatPtr(v *float64) NullFloat {
	if v == nil {
		return NullFloat{}
	}
	return Float(*v)
}

// Ptr returns nil for an invalid value.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
// Anything unparseable decodes to an invalid value rather than an error.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	*n = NullFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = Float(v)
	return nil
}

// MarshalJSON writes null for an invalid value.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}
