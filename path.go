package mfs

import (
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Namespace is a (scheme, authority) pair naming one of the filesystems the
// adapter speaks to.
type Namespace struct {
	Scheme    string
	Authority string
}

// Reparent returns p moved under ns. Only the path component of p is kept.
func (ns Namespace) Reparent(p Path) Path {
	return Path{Scheme: ns.Scheme, Authority: ns.Authority, Path: p.Path}
}

// URI returns the root URI of the namespace, e.g. "mfs://sz-cluster/".
func (ns Namespace) URI() *url.URL {
	return &url.URL{Scheme: ns.Scheme, Host: ns.Authority, Path: "/"}
}

// String returns the root URI of the namespace.
func (ns Namespace) String() string {
	return ns.URI().String()
}

// namespaceOf extracts the scheme and authority of u.
func namespaceOf(u *url.URL) Namespace {
	return Namespace{Scheme: u.Scheme, Authority: u.Host}
}

// Path is a filesystem path qualified by scheme and authority. Paths are
// values: two paths are equal when all three components are equal.
type Path struct {
	Scheme    string
	Authority string
	Path      string
}

// ParsePath parses "scheme://authority/a/b" or a bare "/a/b" or "a/b".
// The path component is cleaned; a trailing slash is dropped.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, errors.New("can not create a path from an empty string")
	}
	if !strings.Contains(s, "://") {
		return NewPath(s), nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Path{}, errors.Wrapf(err, "parse path %q", s)
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	return Path{Scheme: u.Scheme, Authority: u.Host, Path: cleanPath(p)}, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPath returns an unqualified path.
func NewPath(p string) Path {
	return Path{Path: cleanPath(p)}
}

// cleanPath normalizes a path component, keeping relative paths relative.
func cleanPath(p string) string {
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// String returns the fully qualified path.
func (p Path) String() string {
	if p.Scheme == "" && p.Authority == "" {
		return p.Path
	}
	u := url.URL{Scheme: p.Scheme, Host: p.Authority, Path: p.Path}
	return u.String()
}

// Namespace returns the scheme and authority of p.
func (p Path) Namespace() Namespace {
	return Namespace{Scheme: p.Scheme, Authority: p.Authority}
}

// Name returns the final element of the path.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	return path.Base(p.Path)
}

// IsAbs reports whether the path component is absolute.
func (p Path) IsAbs() bool {
	return path.IsAbs(p.Path)
}

// IsRoot reports whether p is the root of its namespace.
func (p Path) IsRoot() bool {
	return p.Path == "/"
}

// Parent returns the directory containing p in the same namespace. The parent
// of the root is the root.
func (p Path) Parent() Path {
	p.Path = path.Dir(p.Path)
	return p
}

// Child returns name resolved under p.
func (p Path) Child(name string) Path {
	p.Path = path.Join(p.Path, name)
	return p
}

// Translator rewrites paths between the public namespace and the namespaces
// of the two backends. Every rewrite preserves the path component bit for bit.
type Translator struct {
	Pub Namespace
	H   Namespace
	J   Namespace
}

// ToH returns p in the primary backend's namespace.
func (t Translator) ToH(p Path) Path { return t.H.Reparent(p) }

// ToJ returns p in the secondary backend's namespace.
func (t Translator) ToJ(p Path) Path { return t.J.Reparent(p) }

// ToPub returns p in the public namespace.
func (t Translator) ToPub(p Path) Path { return t.Pub.Reparent(p) }

// Status returns a copy of st whose path is moved under ns. All other
// attributes are left untouched.
func (t Translator) Status(st *FileStatus, ns Namespace) *FileStatus {
	if st == nil {
		return nil
	}
	out := *st
	out.Path = ns.Reparent(st.Path)
	return &out
}

// PubStatus is Status into the public namespace.
func (t Translator) PubStatus(st *FileStatus) *FileStatus {
	return t.Status(st, t.Pub)
}
