package nginxconf

import "regexp"

// State tags the outcome of a cache key extraction.
type State string

const (
	StateFound    State = "found"
	StateNotFound State = "not_found"
	StateError    State = "error"
)

// Directives is the result of ExtractCacheKeyDirectives.
type Directives struct {
	State State    `json:"state"`
	Keys  []string `json:"keys,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Unsupported returns the keys IsSupportedKey rejects.
func (d Directives) Unsupported() []string {
	var out []string
	for _, key := range d.Keys {
		if !IsSupportedKey(key) {
			out = append(out, key)
		}
	}
	return out
}

var variablePattern = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)

var supportedVariables = map[string]bool{
	"scheme":         true,
	"request_method": true,
	"host":           true,
	"request_uri":    true,
}

// IsSupportedKey reports whether key can be mapped back to a URL: it must
// reference $host and $request_uri and no variables besides $scheme,
// $request_method, $host and $request_uri.
func IsSupportedKey(key string) bool {
	seen := map[string]bool{}
	for _, groups := range variablePattern.FindAllStringSubmatch(key, -1) {
		name := groups[1]
		if !supportedVariables[name] {
			return false
		}
		seen[name] = true
	}
	return seen["host"] && seen["request_uri"]
}
