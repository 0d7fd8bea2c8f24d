package common

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	cn "github.com/dogma-project/dogma/common/constant"
)

// Contains checks if an item is in a slice. This function uses type parameters to work with any slice type.
func Contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}

// CheckMetadataKeyAndValueLength checks the length of key and value against a shared limit.
func CheckMetadataKeyAndValueLength(limit int, metadata map[string]any) error {
	for k, v := range metadata {
		if len(k) > limit {
			return cn.ErrMetadataKeyTooLong
		}

		var value string

		switch t := v.(type) {
		case int:
			value = strconv.Itoa(t)
		case float64:
			value = strconv.FormatFloat(t, 'f', -1, 64)
		case string:
			value = t
		case bool:
			value = strconv.FormatBool(t)
		}

		if len(value) > limit {
			return cn.ErrMetadataValTooLong
		}
	}

	return nil
}

var pathPatternSegment = regexp.MustCompile(`^(\*\*|\*|[^/*]+)$`)

// ValidatePathPattern checks that a path pattern is well-formed: slash-separated
// segments where each segment is either a literal, a single "*" wildcard
// (matches exactly one segment), or a "**" wildcard (matches any number of
// trailing segments, only valid as the final segment).
func ValidatePathPattern(pattern string) error {
	if pattern == "" || pattern == "/" {
		return nil
	}

	trimmed := pattern
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}

	segments := splitPath(trimmed)

	for i, seg := range segments {
		if !pathPatternSegment.MatchString(seg) {
			return cn.ErrInvalidPathPattern
		}

		if seg == "**" && i != len(segments)-1 {
			return cn.ErrInvalidPathPattern
		}
	}

	return nil
}

func splitPath(p string) []string {
	var segments []string

	start := 0

	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			segments = append(segments, p[start:i])
			start = i + 1
		}
	}

	segments = append(segments, p[start:])

	return segments
}

// SafeIntToUint64 safely converts an int to uint64, flooring negative values to 1.
func SafeIntToUint64(val int) uint64 {
	if val < 0 {
		return uint64(1)
	}

	return uint64(val)
}

// IsUUID validates that the given string is an UUID.
func IsUUID(s string) bool {
	r := regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[1-5][a-fA-F0-9]{3}-[89abAB][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$")
	return r.MatchString(s)
}

// GenerateUUIDv7 generates a new UUIDv7 using google/uuid.
func GenerateUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// StructToJSONString converts a struct to a json string.
func StructToJSONString(s any) (string, error) {
	jsonByte, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(jsonByte), nil
}
