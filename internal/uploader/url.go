package uploader

import "strings"

// MaxURLLen bounds a stored URL, excluding any terminator.
const MaxURLLen = 255

// decodeBufSize is the scratch space for percent decoding. A decoded URL must
// leave room for a terminator, so it holds at most MaxURLLen bytes.
const decodeBufSize = MaxURLLen + 1

// NormalizeURL undoes form-style percent encoding. The decoded string is only
// used when it still looks like an http(s) URL and fits the bounded buffer;
// otherwise u is returned unchanged.
func NormalizeURL(u string) string {
	if u == "" || !strings.Contains(u, "%") {
		return u
	}
	decoded, ok := percentDecode(u, decodeBufSize)
	if !ok || !IsHTTP(decoded) {
		return u
	}
	return decoded
}

// IsHTTP reports whether u has an http or https scheme prefix.
func IsHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Truncate cuts u to MaxURLLen bytes.
func Truncate(u string) string {
	if len(u) > MaxURLLen {
		return u[:MaxURLLen]
	}
	return u
}

// percentDecode decodes %XX escapes. Malformed escapes are copied literally.
// It fails if the output would not fit in bufSize bytes with a terminator.
func percentDecode(src string, bufSize int) (string, bool) {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		if len(dst)+1 >= bufSize {
			return "", false
		}
		c := src[i]
		if c == '%' && i+2 < len(src) {
			hi, lo := unhex(src[i+1]), unhex(src[i+2])
			if hi >= 0 && lo >= 0 {
				dst = append(dst, byte(hi<<4|lo))
				i += 2
				continue
			}
		}
		dst = append(dst, c)
	}
	return string(dst), true
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
