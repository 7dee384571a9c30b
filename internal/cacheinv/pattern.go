package cacheinv

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultKeyPattern extracts the host and request URI from a cache entry KEY
// line. It accepts keys built from $scheme$request_method$host$request_uri
// as well as bare $host$request_uri keys. Scheme and method are stripped only
// as a pair so hosts such as httpbin.org or GETtyimages.com stay intact.
const DefaultKeyPattern = `(?m)^KEY:\s+(?:https?(?:GET|HEAD))?([^/\s]+)(/[^\s]*)`

var pcreDelimited = regexp.MustCompile(`^/(.*)/([a-zA-Z]*)$`)

// CompilePattern compiles a user supplied key pattern. raw may be base64
// encoded and may carry /…/flags delimiters; an empty raw selects
// DefaultKeyPattern.
func CompilePattern(raw string) (*regexp.Regexp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return regexp.Compile(DefaultKeyPattern)
	}
	if decoded, ok := decodeBase64(raw); ok {
		raw = decoded
	}
	if groups := pcreDelimited.FindStringSubmatch(raw); groups != nil {
		raw = groups[1]
		var flags strings.Builder
		for _, flag := range groups[2] {
			switch flag {
			case 'i', 'm', 's', 'U':
				flags.WriteRune(flag)
			}
		}
		if flags.Len() > 0 {
			raw = "(?" + flags.String() + ")" + raw
		}
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile cache key pattern: %w", err)
	}
	return re, nil
}

func decodeBase64(raw string) (string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) == 0 || !utf8.Valid(decoded) {
		return "", false
	}
	text := string(decoded)
	for _, r := range text {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return "", false
		}
	}
	return text, true
}
