package provision

import (
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/cam-uploader/internal/config"
)

// rawForm splits an application/x-www-form-urlencoded body without decoding
// the values. URL fields are stored as submitted and decoded later by
// normalization, which only accepts the decoded form if it is still a URL.
func rawForm(body string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if _, seen := out[key]; !seen {
			out[key] = value
		}
	}
	return out
}

// applyForm overlays the fields present in form onto cfg.
func applyForm(cfg config.Config, form map[string]string) config.Config {
	if v, ok := form["url"]; ok {
		cfg.URL = v
	}
	if v, ok := form["vurl"]; ok {
		cfg.VoltageURL = v
	}
	if v, ok := form["interval"]; ok {
		cfg.IntervalSec = atoi(v)
	}
	return cfg
}

// atoi parses a leading decimal integer the lenient C way: optional
// whitespace and sign, then digits up to the first non-digit. Anything
// unparsable is 0.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<31-1 {
			n = 1<<31 - 1
		}
	}
	if neg {
		return -n
	}
	return n
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
