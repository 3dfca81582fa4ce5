package scene

import (
	"strings"
)

// Path is an absolute prim path such as "/World/materials/Wood".
type Path string

const AbsoluteRootPath Path = "/"

func (p Path) String() string {
	return string(p)
}

func (p Path) IsValid() bool {
	if p == AbsoluteRootPath {
		return true
	}
	if len(p) < 2 || p[0] != '/' || p[len(p)-1] == '/' {
		return false
	}
	for _, e := range strings.Split(string(p[1:]), "/") {
		if !ValidName(e) {
			return false
		}
	}
	return true
}

func (p Path) IsRoot() bool {
	return p == AbsoluteRootPath
}

// Name returns the terminal element of the path.
func (p Path) Name() string {
	if p.IsRoot() {
		return ""
	}
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return AbsoluteRootPath
	}
	return p[:i]
}

func (p Path) AppendChild(name string) Path {
	if p.IsRoot() {
		return Path("/" + name)
	}
	return Path(string(p) + "/" + name)
}

func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() || p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}

// ReplacePrefix re-roots p from oldPrefix to newPrefix. Paths outside
// oldPrefix are returned unchanged.
func (p Path) ReplacePrefix(oldPrefix, newPrefix Path) Path {
	if !p.HasPrefix(oldPrefix) {
		return p
	}
	rest := strings.TrimPrefix(string(p), string(oldPrefix))
	if oldPrefix.IsRoot() {
		rest = "/" + rest
	}
	if rest == "" {
		return newPrefix
	}
	if newPrefix.IsRoot() {
		return Path(rest)
	}
	return Path(string(newPrefix) + rest)
}

// Elements returns the path elements from the root down.
func (p Path) Elements() []string {
	if p.IsRoot() || p == "" {
		return nil
	}
	return strings.Split(string(p[1:]), "/")
}

func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}

// MakeValidName replaces characters that are not allowed in prim names.
// "crispix.001" becomes "crispix_001".
func MakeValidName(name string) string {
	if name == "" {
		return "_"
	}
	var sb strings.Builder
	for i, c := range name {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			sb.WriteRune(c)
		} else if i == 0 && c >= '0' && c <= '9' {
			sb.WriteRune('_')
			sb.WriteRune(c)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
