package router

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mount is a static file mount point: requests whose path begins with
// Prefix are served from BaseDir, with DefaultHeaders applied before
// any response-composition defaults.
type Mount struct {
	Prefix          string
	BaseDir         string
	DefaultHeaders  map[string]string
	IndexNames      []string // tried in order for a directory request, e.g. index.html, index.htm
	AllowDirListing bool
}

// AddMount registers a mount point and keeps the list sorted by
// descending prefix length so the longest match wins.
func (r *Router) AddMount(m *Mount) error {
	if !strings.HasPrefix(m.Prefix, "/") {
		return fmt.Errorf("router: mount prefix %q must begin with /", m.Prefix)
	}
	r.mounts = append(r.mounts, m)
	sort.SliceStable(r.mounts, func(i, j int) bool {
		return len(r.mounts[i].Prefix) > len(r.mounts[j].Prefix)
	})
	return nil
}

// RemoveMount unregisters the mount point with the given prefix,
// reporting whether one was found. Safe to call only while no request
// is in flight against this router.
func (r *Router) RemoveMount(prefix string) bool {
	for i, m := range r.mounts {
		if m.Prefix == prefix {
			r.mounts = append(r.mounts[:i], r.mounts[i+1:]...)
			return true
		}
	}
	return false
}

// MountMatch is the outcome of resolving a request path against the
// mount-point list: the owning mount, the safety-checked absolute
// filesystem path, and whether that path is a directory.
type MountMatch struct {
	Mount   *Mount
	AbsPath string
	IsDir   bool
	// TrailingSlashMissing is set when path names an existing
	// directory but the request path lacks a trailing slash; the
	// caller should redirect rather than serve.
	TrailingSlashMissing bool
}

// ErrPathEscape is returned when the request path would resolve
// outside BaseDir (directory traversal) or contains a NUL/backslash.
var ErrPathEscape = fmt.Errorf("router: request path escapes mount base directory")

// MatchMount walks mounts in descending prefix-length order (only
// meaningful for GET/HEAD per the session state machine, which is the
// caller's concern, not this function's) and resolves the first
// matching prefix to a safety-checked filesystem path.
func (r *Router) MatchMount(path string) (*MountMatch, bool, error) {
	for _, m := range r.mounts {
		if !strings.HasPrefix(path, m.Prefix) {
			continue
		}
		rel := strings.TrimPrefix(path, m.Prefix)
		abs, err := safeJoin(m.BaseDir, rel)
		if err != nil {
			return nil, true, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, true, nil
			}
			return nil, true, err
		}
		if info.IsDir() {
			return &MountMatch{
				Mount:                m,
				AbsPath:              abs,
				IsDir:                true,
				TrailingSlashMissing: !strings.HasSuffix(path, "/"),
			}, true, nil
		}
		return &MountMatch{Mount: m, AbsPath: abs}, true, nil
	}
	return nil, false, nil
}

// safeJoin joins base and rel, rejecting embedded NUL or backslash
// bytes and any resulting path that escapes base via ".." traversal.
func safeJoin(base, rel string) (string, error) {
	if strings.ContainsAny(rel, "\x00\\") {
		return "", ErrPathEscape
	}
	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(cleanBase, rel)
	if joined != cleanBase && !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return joined, nil
}
