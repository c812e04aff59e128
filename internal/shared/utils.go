package shared

import (
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseIntQuery parses an integer query parameter, falling back to def on
// missing or malformed values.
func ParseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ParseBoolQuery parses a boolean query parameter and returns a pointer to
// bool or nil when absent/invalid.
func ParseBoolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		return &[]bool{true}[0]
	case "false":
		return &[]bool{false}[0]
	default:
		return nil
	}
}

var digits = regexp.MustCompile(`\d+`)

// CoerceInt extracts an integer from loosely typed API payload values:
// numbers pass through, strings yield their first digit run, anything
// else yields 0 with ok=false.
func CoerceInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		m := digits.FindString(t)
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
