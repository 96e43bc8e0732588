package child

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBase returns the directory of the current process as a file URL.
func DefaultBase() *url.URL {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return fileURL(wd)
}

// ParseBase turns a base location (URL or filesystem directory) into a URL
// usable by ResolveLocation. Directories get a trailing slash so relative
// references resolve inside them.
func ParseBase(base string) (*url.URL, error) {
	if base == "" {
		return DefaultBase(), nil
	}
	if strings.Contains(base, "://") {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base location %q: %w", base, err)
		}
		return u, nil
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base location %q: %w", base, err)
	}
	return fileURL(abs), nil
}

func fileURL(dir string) *url.URL {
	p := filepath.ToSlash(dir)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}

// ResolveLocation returns the canonical absolute form of location.
//
// A bare relative location ("child.html?a") is made explicit ("./child.html?a")
// before resolution so that its first segment is never read as a host or scheme.
// Locations carrying a scheme ("exec:", "redis:", "http://") are kept as they are.
func ResolveLocation(base *url.URL, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty location")
	}
	if base == nil {
		base = DefaultBase()
	}
	if !strings.HasPrefix(location, ".") && !strings.HasPrefix(location, "/") && !strings.Contains(location, ":") {
		location = "./" + location
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", location, err)
	}
	if ref.Scheme != "" {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
