package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexBool is a bool that can be unmarshaled from a JSON bool or a
// JSON string ("true", "1", "on", ...). Checkbox forms post "on".
type FlexBool bool

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexBool) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexBool(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "on" {
			*f = true
			return nil
		}
		val, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("FlexBool: invalid bool string %q: %w", s, err)
		}
		*f = FlexBool(val)
		return nil
	}

	return fmt.Errorf("FlexBool: unexpected type, expected bool or string")
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// Bool converts FlexBool back to bool.
func (f FlexBool) Bool() bool {
	return bool(f)
}
