package jetdb

import "strings"

// Like reports whether s matches the SQL pattern, where '_' matches exactly
// one character and '%' any run of characters. Matching is byte-wise and
// case-sensitive. '%' tries every split point, so pathological patterns are
// exponential.
func Like(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '_':
		if s == "" {
			return false
		}
		return Like(s[1:], pattern[1:])
	case '%':
		for i := 0; i <= len(s); i++ {
			if Like(s[i:], pattern[1:]) {
				return true
			}
		}
		return false
	}
	i := strings.IndexAny(pattern, "_%")
	if i < 0 {
		i = len(pattern)
	}
	if !strings.HasPrefix(s, pattern[:i]) {
		return false
	}
	return Like(s[i:], pattern[i:])
}
