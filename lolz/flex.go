package lolz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString holds fields the API sends as either a string or a number.
// Objects and arrays are kept as their raw JSON text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
	default:
		*s = FlexString(data)
	}
	return nil
}

// String returns the value as text
func (s FlexString) String() string {
	return string(s)
}

// FlexInt holds integer fields the API sometimes quotes or sends as booleans
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch text {
	case "", "null", "false":
		*n = 0
		return nil
	case "true":
		*n = 1
		return nil
	}

	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		*n = FlexInt(v)
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("lolz: cannot decode %s as integer", data)
	}
	*n = FlexInt(v)
	return nil
}

// Int64 returns the plain integer
func (n FlexInt) Int64() int64 {
	return int64(n)
}
