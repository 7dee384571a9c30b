package cacheinv

import (
	"encoding/base64"
	"testing"
)

func TestCompilePatternDefault(t *testing.T) {
	re, err := CompilePattern("  ")
	if err != nil {
		t.Fatal(err)
	}
	if re.String() != DefaultKeyPattern {
		t.Fatalf("expected default pattern, got %q", re.String())
	}
}

func TestDefaultKeyPatternFormats(t *testing.T) {
	re, _ := CompilePattern("")
	cases := map[string][2]string{
		"\nKEY: httpsGETexample.com/page\n":     {"example.com", "/page"},
		"\nKEY: httpGETwww.example.org/a?b=c\n": {"www.example.org", "/a?b=c"},
		"\nKEY: httpsHEADexample.com/\n":        {"example.com", "/"},
		"\nKEY: example.com/page GET\n":         {"example.com", "/page"},
		"\nKEY: httpbin.org/page GET\n":         {"httpbin.org", "/page"},
		"\nKEY: GETtyimages.com/x GET\n":        {"GETtyimages.com", "/x"},
	}
	for content, want := range cases {
		entry, ok := extract(re, content)
		if !ok {
			t.Fatalf("expected match for %q", content)
		}
		if entry.Host != want[0] || entry.RequestURI != want[1] {
			t.Fatalf("%q: got %q %q", content, entry.Host, entry.RequestURI)
		}
	}
}

func TestCompilePatternBase64AndDelimiters(t *testing.T) {
	raw := `/^KEY:\s+https?GET(.+?)(\/.*)$/m`
	re, err := CompilePattern(base64.StdEncoding.EncodeToString([]byte(raw)))
	if err != nil {
		t.Fatalf("CompilePattern: %v", err)
	}
	entry, ok := extract(re, "hdr\nKEY: httpsGETexample.com/blog/\nStatus: 200 OK")
	if !ok || entry.Host != "example.com" || entry.RequestURI != "/blog/" {
		t.Fatalf("unexpected extraction %+v, %v", entry, ok)
	}

	plain, err := CompilePattern(`KEY:\s+(\S+?)(/\S*)`)
	if err != nil {
		t.Fatalf("CompilePattern(plain): %v", err)
	}
	if plain.NumSubexp() != 2 {
		t.Fatalf("unexpected group count %d", plain.NumSubexp())
	}

	if _, err := CompilePattern("(unclosed"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestEligible(t *testing.T) {
	if !eligible("KEY: httpsGETexample.com/") {
		t.Fatal("expected GET entry to be eligible")
	}
	if eligible("KEY: httpsPOSTexample.com/") {
		t.Fatal("expected POST entry to be skipped")
	}
	if eligible("KEY: httpsGETexample.com/\nStatus: 302 Found") {
		t.Fatal("expected redirect to be skipped")
	}
}
