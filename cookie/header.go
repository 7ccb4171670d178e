package cookie

import "strings"

const setCookieHeader = "Set-Cookie"

// ParseSetCookie extracts the cookie tokens from raw response header text.
// Lines may be separated by "\n" or "\r\n" and header names match
// case-insensitively. Only the token before the first space is kept, with a
// trailing ';' trimmed, so attributes such as Path are dropped.
func ParseSetCookie(headers string) Jar {
	jar, _ := ScanSetCookie(headers)
	return jar
}

// ScanSetCookie is ParseSetCookie that also returns the tokens it could not
// read as name=value, so callers can report them.
func ScanSetCookie(headers string) (jar Jar, rejected []string) {
	for _, line := range strings.Split(headers, "\n") {
		line = strings.TrimRight(line, "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), setCookieHeader) {
			continue
		}
		token := strings.TrimLeft(value, " \t")
		if i := strings.IndexByte(token, ' '); i >= 0 {
			token = token[:i]
		}
		token = strings.TrimSuffix(token, ";")
		if c, ok := ParseToken(token); ok {
			jar = append(jar, c)
		} else {
			rejected = append(rejected, token)
		}
	}
	return jar, rejected
}
