// Package uri maps absolute filesystem paths to package: or virtual
// filesystem URIs, mirroring the canonicalization the frontend server
// expects on its wire protocol.
//
// Construction walks the package map in file order and keeps the first
// match, per the reference compiler's prefix-shadowing behavior — see
// DESIGN.md's grounding notes. Iteration order is behaviorally significant,
// so Mapping is a slice, not a map.
package uri

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/flutter-tools/fsd/internal/packagemap"
)

// Mapper maps filesystem paths to package:/vfs URIs. Immutable after
// construction; the zero value is a valid "empty" mapper that never maps.
type Mapper struct {
	packageName string
	prefixes    []string // file-URI prefixes, in preference order
}

// New builds a Mapper from a script path, a package map, and an optional
// virtual filesystem scheme/roots pair.
//
// Rules (must match verbatim):
//  1. Render scriptPath as a file URI.
//  2. Walk mappings in order; if both vfsScheme and vfsRoots are set, the
//     first mapping whose prefix URI contains vfsScheme wins and the
//     mapper's prefixes become the file-URI form of each vfs root.
//  3. Otherwise the first mapping whose prefix is a string-prefix of the
//     rendered script URI wins and the mapper's prefixes become [prefix].
//  4. If nothing matches, the mapper is empty.
func New(scriptPath string, mappings []packagemap.Mapping, vfsScheme string, vfsRoots []string) *Mapper {
	scriptURI := FileURI(scriptPath)

	if vfsScheme != "" && len(vfsRoots) > 0 {
		for _, m := range mappings {
			if strings.Contains(m.PrefixURI, vfsScheme) {
				prefixes := make([]string, len(vfsRoots))
				for i, r := range vfsRoots {
					prefixes[i] = FileURI(r) + "/"
				}
				return &Mapper{packageName: m.Name, prefixes: prefixes}
			}
		}
	}

	for _, m := range mappings {
		if strings.HasPrefix(scriptURI, m.PrefixURI) {
			return &Mapper{packageName: m.Name, prefixes: []string{m.PrefixURI}}
		}
	}

	return &Mapper{}
}

// Map renders path as a file URI and, if it falls under one of the mapper's
// prefixes, rewrites it to a package: URI. Returns ("", false) when not
// mappable.
func (m *Mapper) Map(path string) (string, bool) {
	if m == nil || m.packageName == "" {
		return "", false
	}
	pathURI := FileURI(path)
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(pathURI, prefix) {
			remainder := strings.TrimPrefix(pathURI, prefix)
			return "package:" + m.packageName + "/" + remainder, true
		}
	}
	return "", false
}

// FileURI renders an absolute filesystem path as a file: URI, always using
// forward slashes even on Windows (the wire protocol's --sdk-root and
// similar URI-valued flags require this regardless of host filesystem
// conventions; keep this conversion distinct from ordinary filepath use).
func FileURI(path string) string {
	p := filepath.ToSlash(path)
	if runtime.GOOS == "windows" {
		// Windows absolute paths ("C:\foo") become file:///C:/foo.
		if len(p) >= 2 && p[1] == ':' {
			p = "/" + p
		}
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
