package parser

import "strings"

// HasMarker: регистронезависимый поиск подстроки-маркера.
func HasMarker(text, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(marker))
}
