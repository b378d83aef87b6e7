package ares

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/valyala/fasttemplate"
	"golang.org/x/sync/singleflight"

	"github.com/spance/webos-driver-go/constants"
	"github.com/spance/webos-driver-go/webos/definitions"
)

var (
	// Files with an extension (ares.cmd, ares-install.js) are helpers, only
	// the extensionless launcher is invoked. Matched against the base name so
	// dotted directories (node/v20.11.1/bin) do not count.
	extensionRe = regexp.MustCompile(`\.[^.]{1,10}$`)

	notFoundTemplate = fasttemplate.New(
		"Could not find {{binary}}. Please set the {{env}} environment variable "+
			"with the Ares root directory path, or add its bin directory to PATH.",
		"{{", "}}")
)

// Locator resolves toolchain binaries through the OS path search and caches
// the result per binary name. Concurrent first lookups share one search.
type Locator struct {
	executor definitions.Executor
	aresRoot string

	goos      string
	group     singleflight.Group
	mu        sync.RWMutex
	lookupCmd string
	cache     map[string]string
}

func NewLocator(executor definitions.Executor, aresRoot string) *Locator {
	return &Locator{
		executor: executor,
		aresRoot: aresRoot,
		goos:     runtime.GOOS,
		cache:    make(map[string]string),
	}
}

// LookupCommand returns the path-search utility for the host OS.
func (l *Locator) LookupCommand() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lookupCmd == "" {
		l.lookupCmd = "which"
		if l.goos == "windows" {
			l.lookupCmd = "where"
		}
	}
	return l.lookupCmd
}

// Resolve returns the absolute path of binaryName.
func (l *Locator) Resolve(ctx context.Context, binaryName string) (string, error) {
	l.mu.RLock()
	path, ok := l.cache[binaryName]
	l.mu.RUnlock()
	if ok {
		return path, nil
	}

	v, err, _ := l.group.Do(binaryName, func() (any, error) {
		l.mu.RLock()
		path, ok := l.cache[binaryName]
		l.mu.RUnlock()
		if ok {
			return path, nil
		}

		path, err := l.search(ctx, binaryName)
		if err != nil {
			return "", err
		}

		l.mu.Lock()
		l.cache[binaryName] = path
		l.mu.Unlock()
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Reset forgets every cached path and the OS lookup choice.
func (l *Locator) Reset() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.lookupCmd = ""
	l.mu.Unlock()
}

func (l *Locator) search(ctx context.Context, binaryName string) (string, error) {
	cmd := l.LookupCommand()
	result, err := l.executor.Execute(ctx, cmd, []string{binaryName})
	if err == nil {
		log.Debug().Str("binary", binaryName).Str("stdout", result.Stdout).Msg("[Resolve] path search output")
		if path, ok := firstLauncher(result.Stdout); ok {
			log.Debug().Str("binary", binaryName).Str("path", path).Msg("[Resolve] using binary")
			return path, nil
		}
	}

	if path, ok := l.fromRoot(binaryName); ok {
		log.Debug().Str("binary", binaryName).Str("path", path).Msg("[Resolve] using binary from ares root")
		return path, nil
	}

	return "", &definitions.ToolchainNotFoundError{
		Binary: binaryName,
		Message: notFoundTemplate.ExecuteString(map[string]any{
			"binary": binaryName,
			"env":    constants.EnvAresHome,
		}),
		Err: err,
	}
}

func (l *Locator) fromRoot(binaryName string) (string, bool) {
	if l.aresRoot == "" {
		return "", false
	}
	candidate := filepath.Join(l.aresRoot, "bin", binaryName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

func firstLauncher(stdout string) (string, bool) {
	lines := lo.Map(strings.Split(strings.TrimSpace(stdout), "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return lo.Find(lines, func(line string) bool {
		return line != "" && !extensionRe.MatchString(filepath.Base(line))
	})
}
