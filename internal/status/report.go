package status

import (
	"time"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
)

// Severity orders report messages.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is an operator-facing note attached to a report.
type Message struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"text" yaml:"text"`
}

// CommandStatus is the availability of one external command.
type CommandStatus struct {
	Name     string `json:"name" yaml:"name"`
	Status   Code   `json:"status" yaml:"status"`
	Optional bool   `json:"optional" yaml:"optional"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// PageCount is the pages-in-cache row: either a count or a code.
type PageCount struct {
	Status Code `json:"status,omitempty" yaml:"status,omitempty"`
	Count  int  `json:"count" yaml:"count"`
}

// Counted reports whether Count is meaningful.
func (p PageCount) Counted() bool {
	return p.Status == ""
}

// Report is one rendering of the status page.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	ConfigPaths  []string `json:"config_paths" yaml:"config_paths"`
	ConfigStatus Code     `json:"config_status" yaml:"config_status"`

	CacheKeys       nginxconf.Directives `json:"cache_keys" yaml:"cache_keys"`
	CacheKeyStatus  Code                 `json:"cache_key_status" yaml:"cache_key_status"`
	UnsupportedKeys []string             `json:"unsupported_keys,omitempty" yaml:"unsupported_keys,omitempty"`
	NginxCachePaths []string             `json:"nginx_cache_paths,omitempty" yaml:"nginx_cache_paths,omitempty"`

	CacheDir        string `json:"cache_dir" yaml:"cache_dir"`
	CachePath       Code   `json:"cache_path" yaml:"cache_path"`
	Permission      Code   `json:"permission" yaml:"permission"`
	PermissionLabel string `json:"permission_label" yaml:"permission_label"`
	ServerAction    Code   `json:"server_action" yaml:"server_action"`
	PurgeStatus     Code   `json:"purge_status" yaml:"purge_status"`
	PreloadStatus   Code   `json:"preload_status" yaml:"preload_status"`
	PreloadPID      int    `json:"preload_pid,omitempty" yaml:"preload_pid,omitempty"`
	ShellExec       Code   `json:"shell_exec" yaml:"shell_exec"`

	RuntimeUser string `json:"runtime_user" yaml:"runtime_user"`
	ServerUser  string `json:"server_user" yaml:"server_user"`
	Isolation   Code   `json:"isolation" yaml:"isolation"`

	Commands     []CommandStatus `json:"commands" yaml:"commands"`
	PagesInCache PageCount       `json:"pages_in_cache" yaml:"pages_in_cache"`

	Messages []Message `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Command returns the status row for name.
func (r Report) Command(name string) (CommandStatus, bool) {
	for _, cmd := range r.Commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return CommandStatus{}, false
}

func (r *Report) addMessage(severity Severity, text string) {
	r.Messages = append(r.Messages, Message{Severity: severity, Text: text})
}
