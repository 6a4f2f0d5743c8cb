package notifications

import (
	"fmt"
	"strings"
)

// escapeBraces doubles every brace so the text formats to itself.
func escapeBraces(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

// formatBraces replaces {name} with params[name] and collapses {{ and }}.
func formatBraces(s string, params map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("single '{' encountered in format string at %d", i)
			}
			name := s[i+1 : i+1+end]
			if strings.IndexByte(name, '{') >= 0 {
				return "", fmt.Errorf("unexpected '{' in field name at %d", i)
			}
			value, ok := params[name]
			if !ok {
				return "", fmt.Errorf("missing format parameter %q", name)
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' encountered in format string at %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
