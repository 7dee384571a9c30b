package nginxconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// MaxIncludeDepth bounds nested include expansion.
const MaxIncludeDepth = 16

// ErrIncludeDepth reports include nesting beyond MaxIncludeDepth.
var ErrIncludeDepth = errors.New("nginx include depth exceeded")

// Parser extracts directives from nginx configuration files.
type Parser struct {
	FS     fileutil.FS
	Logger *slog.Logger
}

// NewParser returns a parser reading through fsys.
func NewParser(fsys fileutil.FS, logger *slog.Logger) *Parser {
	if fsys == nil {
		fsys = fileutil.OS{}
	}
	return &Parser{FS: fsys, Logger: logging.NewComponentLogger(logger, "nginxconf")}
}

// Statement is one simple directive: its name and raw argument text.
type Statement struct {
	Name string
	Args string
	File string
}

// Statements returns the directives of path in order, with comments
// stripped and include directives replaced by the statements of the files
// they match.
func (p *Parser) Statements(ctx context.Context, path string) ([]Statement, error) {
	return p.load(ctx, path, filepath.Dir(path), 0, map[string]bool{})
}

func (p *Parser) load(ctx context.Context, path, baseDir string, depth int, stack map[string]bool) ([]Statement, error) {
	if depth > MaxIncludeDepth {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if stack[abs] {
		p.logger().Debug("skipping recursive include", logging.String("path", abs))
		return nil, nil
	}
	stack[abs] = true
	defer delete(stack, abs)

	raw, err := p.FS.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("read nginx config %q: %w", path, err)
	}

	var out []Statement
	for _, stmt := range splitStatements(StripComments(string(raw))) {
		stmt.File = path
		if stmt.Name != "include" {
			out = append(out, stmt)
			continue
		}
		target := unquote(stmt.Args)
		if !filepath.IsAbs(target) {
			target = filepath.Join(baseDir, target)
		}
		matches, globErr := p.FS.Glob(target)
		if globErr != nil {
			p.logger().Debug("invalid include pattern", logging.String("pattern", target), logging.Error(globErr))
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			if !p.FS.IsFile(match) {
				continue
			}
			included, err := p.load(ctx, match, baseDir, depth+1, stack)
			if err != nil {
				if errors.Is(err, ErrIncludeDepth) || ctx.Err() != nil {
					return nil, err
				}
				p.logger().Debug("skipping unreadable include", logging.String("path", match), logging.Error(err))
				continue
			}
			out = append(out, included...)
		}
	}
	return out, nil
}

// ExtractCacheKeyDirectives returns every fastcgi_cache_key and
// proxy_cache_key value in path, includes expanded.
func (p *Parser) ExtractCacheKeyDirectives(ctx context.Context, path string) Directives {
	stmts, err := p.Statements(ctx, path)
	if err != nil {
		p.logger().Debug("cache key extraction failed", logging.String("path", path), logging.Error(err))
		return Directives{State: StateError, Error: err.Error()}
	}
	var keys []string
	for _, stmt := range stmts {
		if stmt.Name == "fastcgi_cache_key" || stmt.Name == "proxy_cache_key" {
			if value := unquote(stmt.Args); value != "" {
				keys = append(keys, value)
			}
		}
	}
	if len(keys) == 0 {
		return Directives{State: StateNotFound}
	}
	return Directives{State: StateFound, Keys: keys}
}

// ExtractCachePaths returns the directory argument of every
// fastcgi_cache_path and proxy_cache_path directive.
func (p *Parser) ExtractCachePaths(ctx context.Context, path string) ([]string, error) {
	stmts, err := p.Statements(ctx, path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, stmt := range stmts {
		if stmt.Name != "fastcgi_cache_path" && stmt.Name != "proxy_cache_path" {
			continue
		}
		if fields := strings.Fields(stmt.Args); len(fields) > 0 {
			paths = append(paths, unquote(fields[0]))
		}
	}
	return paths, nil
}

// ExtractUser returns the user named by the first user directive, or an
// empty string when none is declared.
func (p *Parser) ExtractUser(ctx context.Context, path string) (string, error) {
	stmts, err := p.Statements(ctx, path)
	if err != nil {
		return "", err
	}
	for _, stmt := range stmts {
		if stmt.Name != "user" {
			continue
		}
		if fields := strings.Fields(stmt.Args); len(fields) > 0 {
			return unquote(fields[0]), nil
		}
	}
	return "", nil
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger == nil {
		return logging.NewNop()
	}
	return p.Logger
}

// splitStatements breaks content at ';', '{' and '}' outside quotes. Block
// openers become statements too; callers match on Name.
func splitStatements(content string) []Statement {
	var (
		out     []Statement
		current strings.Builder
		quote   rune
		escaped bool
	)
	emit := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		name, args := text, ""
		if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
			name, args = text[:i], text[i+1:]
		}
		out = append(out, Statement{Name: name, Args: strings.TrimSpace(args)})
	}
	for _, r := range content {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ';' || r == '{' || r == '}':
			emit()
			continue
		}
		current.WriteRune(r)
	}
	emit()
	return out
}

// StripComments removes # comments that are not inside quotes.
func StripComments(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	var quote rune
	inComment := false
	escaped := false
	for _, r := range content {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				b.WriteRune(r)
			}
			continue
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#':
			inComment = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unquote(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
