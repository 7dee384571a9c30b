package status

import (
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/cacheinv"
)

func TestCodeLabels(t *testing.T) {
	tests := map[Code]string{
		True:          "True",
		False:         "False",
		Progress:      "In Progress",
		NotFound:      "Not Found",
		RegexError:    "Regex Error",
		NeedAction:    "Need Action (Check Help)",
		NotDetermined: "Not Determined",
		Ok:            "Ok",
	}
	for code, want := range tests {
		if got := code.Label(); got != want {
			t.Fatalf("%q.Label() = %q, want %q", code, got, want)
		}
	}
}

func TestCodeWireValues(t *testing.T) {
	if NotFound.String() != "Not Found" || Progress.String() != "progress" || True.String() != "true" {
		t.Fatal("wire values changed")
	}
	for _, code := range Codes {
		if !code.Valid() {
			t.Fatalf("code %q not valid", code)
		}
	}
	if Code("maybe").Valid() {
		t.Fatal("unknown code reported valid")
	}
}

func TestCodeTone(t *testing.T) {
	if Granted.Tone() != ToneGood || NotInstalled.Tone() != ToneBad || NotIsolated.Tone() != ToneWarn {
		t.Fatal("unexpected tone mapping")
	}
}

func TestFromOutcome(t *testing.T) {
	if code, ok := FromOutcome(cacheinv.RegexError); !ok || code != RegexError {
		t.Fatalf("unexpected mapping for regex error: %q", code)
	}
	if _, ok := FromOutcome(cacheinv.Counted); ok {
		t.Fatal("counted outcome must not map to a code")
	}
}

func TestPermissionLabel(t *testing.T) {
	tests := []struct {
		permission Code
		want       string
	}{
		{True, "Granted (deploy)"},
		{NotFound, "Not Determined (deploy)"},
		{Undetermined, "Not Determined (deploy)"},
		{False, "Need Action (Check Help) (deploy)"},
	}
	for _, tt := range tests {
		if got := PermissionLabel(tt.permission, "deploy"); got != tt.want {
			t.Fatalf("PermissionLabel(%q) = %q, want %q", tt.permission, got, tt.want)
		}
	}
}
