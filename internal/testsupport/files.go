package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// CacheEntry describes a synthetic nginx FastCGI cache file.
type CacheEntry struct {
	// Key is the text after "KEY: ", e.g. "httpsGETexample.com/page".
	Key string
	// Status is the upstream status line, e.g. "200 OK" or "301 Moved Permanently".
	Status string
	Body   string
}

// WriteCacheEntry writes entry to dir/name in the on-disk layout nginx uses:
// a binary header, the KEY line, then the upstream response.
func WriteCacheEntry(t testing.TB, dir, name string, entry CacheEntry) string {
	t.Helper()

	status := entry.Status
	if status == "" {
		status = "200 OK"
	}
	body := entry.Body
	if body == "" {
		body = "<html><body>cached</body></html>"
	}

	header := make([]byte, 32)
	for i := range header {
		header[i] = byte(i)
	}
	content := string(header) +
		"\nKEY: " + entry.Key + "\n" +
		"Status: " + status + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		body

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
