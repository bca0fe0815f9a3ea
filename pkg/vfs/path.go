package vfs

import "strings"

// Path is a normalised, mount-relative byte sequence using '/' as the
// sole separator (spec.md §3's Path glossary entry). Split/iter
// operations are pure — they never touch the node cache or any
// filesystem driver.
type Path string

// Normalise collapses repeated separators, drops "." components, and
// resolves ".." against the components seen so far (a ".." at the
// root is simply dropped rather than erroring, matching the original
// kernel's path walker). The result always starts with "/" and never
// ends with one unless it is the root itself.
//
// ErrMalformedPath is returned for an empty input or one containing a
// NUL byte.
func Normalise(s string) (Path, error) {
	if s == "" {
		return "", ErrMalformedPath
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return "", ErrMalformedPath
		}
	}

	var out []string
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return Path("/" + strings.Join(out, "/")), nil
}

// Iter returns the path's non-empty components in order, e.g.
// "/b/c".Iter() == []string{"b", "c"}. The root path "/" iterates to
// an empty slice.
func (p Path) Iter() []string {
	trimmed := strings.Trim(string(p), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Join appends a single component to p and re-normalises. Path walking
// does not use it: symlink targets are normalised and walked from the
// root.
func (p Path) Join(component string) (Path, error) {
	return Normalise(string(p) + "/" + component)
}

// IsRoot reports whether p is the filesystem root within its mount.
func (p Path) IsRoot() bool {
	return p == "/"
}

func (p Path) String() string { return string(p) }
