package status

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/cacheinv"
)

// Code is a status value. The string form is the stable wire value.
type Code string

const (
	Found         Code = "Found"
	NotFound      Code = "Not Found"
	True          Code = "true"
	False         Code = "false"
	Progress      Code = "progress"
	Undetermined  Code = "Undetermined"
	RegexError    Code = "RegexError"
	NotDetermined Code = "Not Determined"
	Installed     Code = "Installed"
	NotInstalled  Code = "Not Installed"
	Isolated      Code = "Isolated"
	NotIsolated   Code = "Not Isolated"
	Granted       Code = "Granted"
	NeedAction    Code = "Need Action"
	Ok            Code = "Ok"
	NotOk         Code = "Not Ok"
)

// Codes lists every status code.
var Codes = []Code{
	Found, NotFound, True, False, Progress, Undetermined, RegexError,
	NotDetermined, Installed, NotInstalled, Isolated, NotIsolated,
	Granted, NeedAction, Ok, NotOk,
}

// Tone classifies a code for presentation.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneWarn
	ToneBad
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// Valid reports whether c belongs to the closed set.
func (c Code) Valid() bool {
	for _, known := range Codes {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the wire value.
func (c Code) String() string {
	return string(c)
}

// Label returns the display label.
func (c Code) Label() string {
	switch c {
	case RegexError:
		return "Regex Error"
	case NeedAction:
		return "Need Action (Check Help)"
	case Progress:
		return "In Progress"
	default:
		return titleCaser.String(string(c))
	}
}

// Tone returns the presentation class of c.
func (c Code) Tone() Tone {
	switch c {
	case Found, True, Installed, Isolated, Granted, Ok:
		return ToneGood
	case Progress:
		return ToneNeutral
	case Undetermined, NotDetermined, NotIsolated, NeedAction:
		return ToneWarn
	case NotFound, False, RegexError, NotInstalled, NotOk:
		return ToneBad
	default:
		return ToneNeutral
	}
}

// FromBool maps a flag onto True or False.
func FromBool(v bool) Code {
	if v {
		return True
	}
	return False
}

// FromOutcome maps a non-counted inventory outcome onto a code.
func FromOutcome(outcome cacheinv.Outcome) (Code, bool) {
	switch outcome {
	case cacheinv.NotFound:
		return NotFound, true
	case cacheinv.Undetermined:
		return Undetermined, true
	case cacheinv.RegexError:
		return RegexError, true
	default:
		return "", false
	}
}
