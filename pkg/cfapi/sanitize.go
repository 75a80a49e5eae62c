package cfapi

import "strings"

// Sanitize removes every character outside [A-Za-z0-9_] from a field name.
func Sanitize(name string) string {
	clean := true
	for i := 0; i < len(name); i++ {
		if !validNameByte(name[i]) {
			clean = false
			break
		}
	}
	if clean {
		return name
	}
	return strings.Map(func(r rune) rune {
		if r < 0x80 && validNameByte(byte(r)) {
			return r
		}
		return -1
	}, name)
}

func validNameByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
