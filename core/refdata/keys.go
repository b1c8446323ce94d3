package refdata

import (
	"strings"
	"unicode"
)

// KeyMaxLen is the size of the key column.
const KeyMaxLen = 50

// GenerateKey derives an entry key from its display value:
// "New York" -> "new_york". The result only holds [a-z0-9_] and may be empty.
func GenerateKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	key := strings.Join(strings.Fields(b.String()), "_")
	if len(key) > KeyMaxLen {
		key = key[:KeyMaxLen]
	}
	return key
}

// ParseBulk splits raw text on commas and newlines into trimmed, non-empty values.
// Values repeated within the batch are dropped, the first occurrence wins.
func ParseBulk(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	seen := make(map[string]struct{}, len(parts))
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		values = append(values, val)
	}
	return values
}
