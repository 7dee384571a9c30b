package nginxconf

import (
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
)

// DefaultCandidates lists conventional nginx.conf locations, most common first.
func DefaultCandidates() []string {
	out := make([]string, len(config.DefaultConfigCandidates))
	copy(out, config.DefaultConfigCandidates)
	return out
}

// Locator finds nginx configuration files.
type Locator struct {
	FS         fileutil.FS
	Candidates []string
}

// NewLocator returns a locator over candidates, falling back to
// DefaultCandidates when none are given.
func NewLocator(fsys fileutil.FS, candidates []string) *Locator {
	if fsys == nil {
		fsys = fileutil.OS{}
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	return &Locator{FS: fsys, Candidates: candidates}
}

// LocateConfig returns every candidate that is an existing readable file, in
// probe order. An empty result means no configuration was found.
func (l *Locator) LocateConfig() []string {
	var found []string
	for _, candidate := range l.Candidates {
		if l.FS.IsFile(candidate) && l.FS.IsReadable(candidate) {
			found = append(found, candidate)
		}
	}
	return found
}

// Preferred returns the first located configuration file.
func (l *Locator) Preferred() (string, bool) {
	found := l.LocateConfig()
	if len(found) == 0 {
		return "", false
	}
	return found[0], true
}
