package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"howett.net/plist"
)

// The modern record payloads (bwsp, icvp, lsvp/lsvP) are binary property
// lists. Decoding goes through a generic map; the helpers below coerce the
// loosely-typed values plist unmarshaling produces.

func decodePlist(data []byte) (map[string]interface{}, error) {
	var dict map[string]interface{}
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return nil, err
	}
	return dict, nil
}

func encodePlist(dict map[string]interface{}) ([]byte, error) {
	return plist.Marshal(dict, plist.BinaryFormat)
}

func plistInt(dict map[string]interface{}, key string) (int, bool) {
	switch v := dict[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

func plistFloat(dict map[string]interface{}, key string) (float64, bool) {
	switch v := dict[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func plistBool(dict map[string]interface{}, key string) (bool, bool) {
	v, ok := dict[key].(bool)
	return v, ok
}

func plistString(dict map[string]interface{}, key string) (string, bool) {
	v, ok := dict[key].(string)
	return v, ok
}

func plistData(dict map[string]interface{}, key string) ([]byte, bool) {
	v, ok := dict[key].([]byte)
	return v, ok
}

func plistDict(v interface{}) (map[string]interface{}, bool) {
	d, ok := v.(map[string]interface{})
	return d, ok
}

// parseWindowBounds parses the bwsp WindowBounds string "{{x, y}, {w, h}}".
func parseWindowBounds(s string) (x, y, w, h float64, err error) {
	clean := strings.NewReplacer("{", "", "}", "", " ", "").Replace(s)
	parts := strings.Split(clean, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("bad WindowBounds %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		vals[i], err = strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("bad WindowBounds %q", s)
		}
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}

// formatWindowBounds is the inverse of parseWindowBounds.
func formatWindowBounds(x, y, w, h float64) string {
	num := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "{{" + num(x) + ", " + num(y) + "}, {" + num(w) + ", " + num(h) + "}}"
}
