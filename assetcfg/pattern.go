package assetcfg

import (
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is an asset name pattern in the configuration syntax: fnmatch
// style, where every "." is a wildcard and the pattern matches any name it
// is a prefix of.
type Pattern struct {
	Source string
	g      glob.Glob
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)

// GlobExpr converts a configuration pattern to a glob expression.
func GlobExpr(pattern string) string {
	return escapeUnclosed(globEscaper.Replace(strings.ReplaceAll(pattern, ".", "*"))) + "*"
}

// escapeUnclosed escapes a "[" that does not start a character class. Like
// fnmatch, such a bracket matches itself.
func escapeUnclosed(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\\' && i+1 < len(expr) {
			b.WriteString(expr[i : i+2])
			i++
			continue
		}
		if c == '[' {
			end := strings.IndexByte(expr[i+1:], ']')
			if end <= 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(expr[i : i+end+2])
			i += end + 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func CompilePattern(pattern string) (*Pattern, error) {
	g, err := glob.Compile(GlobExpr(pattern))
	if err != nil {
		return nil, err
	}
	return &Pattern{Source: pattern, g: g}, nil
}

func (p *Pattern) Match(name string) bool {
	return p.g.Match(name)
}

func (p *Pattern) String() string {
	return p.Source
}
