package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchAny reports whether name matches at least one shell-style pattern.
// Matching is case-sensitive and anchored to the whole name. Every character
// is ordinary, so * and ? also match '/' and '.'.
func MatchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return false, err
		}
		if re.MatchString(name) {
			return true, nil
		}
	}
	return false, nil
}

// ValidatePattern reports a malformed pattern before it is used for filtering.
func ValidatePattern(p string) error {
	_, err := compilePattern(p)
	return err
}

func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(translatePattern(p))
	if err != nil {
		return nil, fmt.Errorf("invalid allow pattern %q: %w", p, err)
	}
	return re, nil
}

// translatePattern rewrites a glob into an anchored regular expression.
// * matches any run, ? any one character and [...] a class, negated by a
// leading '!'. A '[' without a closing ']' and a backslash are literal.
func translatePattern(p string) string {
	var b strings.Builder
	b.WriteString(`^(?s:`)

	runes := []rune(p)
	n := len(runes)
	for i := 0; i < n; {
		c := runes[i]
		i++
		switch c {
		case '*':
			for i < n && runes[i] == '*' {
				i++
			}
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i
			if j < n && runes[j] == '!' {
				j++
			}
			if j < n && runes[j] == ']' {
				j++
			}
			for j < n && runes[j] != ']' {
				j++
			}
			if j >= n {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(translateClass(runes[i:j]))
			i = j + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString(`)$`)
	return b.String()
}

// translateClass renders the body of a bracket expression.
func translateClass(body []rune) string {
	var b strings.Builder
	b.WriteByte('[')
	if len(body) > 0 && body[0] == '!' {
		b.WriteByte('^')
		body = body[1:]
	}
	for k, c := range body {
		switch {
		case c == '\\' || c == '[':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c == '^' && k == 0:
			b.WriteString(`\^`)
		case c == ']' && k == 0:
			b.WriteString(`\]`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte(']')
	return b.String()
}
