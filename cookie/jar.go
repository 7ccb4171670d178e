package cookie

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie is one name/value pair of a session.
type Cookie struct {
	Name  string
	Value string
}

// String renders the cookie as a persisted token line.
func (c Cookie) String() string {
	return c.Name + "=" + c.Value
}

// Jar is an ordered list of cookies as persisted. Names may repeat.
type Jar []Cookie

// ParseToken splits a "name=value" token on the first '='. Tokens without
// '=' or with an empty name are rejected.
func ParseToken(token string) (Cookie, bool) {
	token = strings.TrimRight(token, "\r")
	name, value, ok := strings.Cut(token, "=")
	if !ok || name == "" {
		return Cookie{}, false
	}
	return Cookie{Name: name, Value: value}, true
}

// ParseJar reads newline separated tokens, skipping empty and malformed lines.
func ParseJar(data string) Jar {
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	jar := make(Jar, 0, len(lines))
	for _, line := range lines {
		if c, ok := ParseToken(line); ok {
			jar = append(jar, c)
		}
	}
	return jar
}

// Encode renders the jar as newline terminated token lines.
func (j Jar) Encode() string {
	var b strings.Builder
	for _, c := range j {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Lines returns one token per cookie.
func (j Jar) Lines() []string {
	out := make([]string, len(j))
	for i, c := range j {
		out[i] = c.String()
	}
	return out
}

// Dedupe keeps one cookie per name: the last value, at the position the
// name first appeared.
func (j Jar) Dedupe() Jar {
	if len(j) == 0 {
		return nil
	}
	index := make(map[string]int, len(j))
	out := make(Jar, 0, len(j))
	for _, c := range j {
		if i, ok := index[c.Name]; ok {
			out[i].Value = c.Value
			continue
		}
		index[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

// Equal compares the deduplicated contents of two jars.
func (j Jar) Equal(other Jar) bool {
	a, b := j.Dedupe(), other.Dedupe()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StaleAt reports whether any cookie value is a JWT whose exp claim is at or
// before now. Signatures are not verified; the token is only inspected.
func (j Jar) StaleAt(now time.Time) bool {
	parser := jwt.NewParser()
	for _, c := range j.Dedupe() {
		if strings.Count(c.Value, ".") != 2 {
			continue
		}
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(c.Value, claims); err != nil {
			continue
		}
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			continue
		}
		if !now.Before(exp.Time) {
			return true
		}
	}
	return false
}
