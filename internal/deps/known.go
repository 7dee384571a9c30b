package deps

var descriptions = map[string]string{
	"wget":     "Required for cache preloading",
	"cpulimit": "Caps CPU usage of the preload process",
	"nginx":    "Front-end server owning the cache",
	"ps":       "Used to discover the web server user",
}

// NewRequirement builds a requirement for command, using the known
// description when there is one.
func NewRequirement(command string, optional bool) Requirement {
	return Requirement{
		Name:        command,
		Command:     command,
		Description: descriptions[command],
		Optional:    optional,
	}
}

// Requirements builds the requirement list for the required and optional
// commands, required first.
func Requirements(required, optional []string) []Requirement {
	out := make([]Requirement, 0, len(required)+len(optional))
	for _, cmd := range required {
		out = append(out, NewRequirement(cmd, false))
	}
	for _, cmd := range optional {
		out = append(out, NewRequirement(cmd, true))
	}
	return out
}
