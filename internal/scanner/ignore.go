package scanner

import (
	"path"
	"strings"
)

// Pattern is a single gitignore-style ignore rule.
type Pattern struct {
	raw     string
	negate  bool
	dirOnly bool
	rooted  bool
	segs    []string
}

// ParsePattern parses one line of an ignore file.
func ParsePattern(line string) Pattern {
	p := Pattern{raw: line}

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.rooted = true
		line = line[1:]
	}

	p.segs = strings.Split(line, "/")
	return p
}

// Negate reports whether this rule un-ignores matching paths.
func (p Pattern) Negate() bool {
	return p.negate
}

// String returns the original pattern text.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the slash-separated relative path matches this
// rule. Directory rules ("build/") match every path below a matching
// directory. Rooted rules ("/build") anchor at the scan root, others
// may start at any path segment.
func (p Pattern) Match(rel string) bool {
	parts := strings.Split(rel, "/")

	if p.dirOnly {
		return p.matchBelowDir(parts)
	}

	if p.rooted {
		return matchAll(p.segs, parts)
	}
	for i := range parts {
		if matchAll(p.segs, parts[i:]) {
			return true
		}
	}
	return false
}

// matchBelowDir reports whether some directory run in parts matches the
// pattern with at least one trailing segment left over.
func (p Pattern) matchBelowDir(parts []string) bool {
	if p.rooted {
		n, ok := matchRun(p.segs, parts)
		return ok && n < len(parts)
	}
	for i := range parts {
		if n, ok := matchRun(p.segs, parts[i:]); ok && i+n < len(parts) {
			return true
		}
	}
	return false
}

// matchAll matches pattern segments against path segments, consuming
// both completely. "**" may swallow any number of path segments.
func matchAll(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		if len(pat) == 1 {
			return true
		}
		for i := 0; i <= len(parts); i++ {
			if matchAll(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if !matchSeg(pat[0], parts[0]) {
		return false
	}
	return matchAll(pat[1:], parts[1:])
}

// matchRun matches pattern segments against a leading run of parts and
// reports how many path segments the run consumed.
func matchRun(pat, parts []string) (int, bool) {
	if len(pat) == 0 {
		return 0, true
	}
	if pat[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if n, ok := matchRun(pat[1:], parts[i:]); ok {
				return i + n, true
			}
		}
		return 0, false
	}
	if len(parts) == 0 {
		return 0, false
	}
	if !matchSeg(pat[0], parts[0]) {
		return 0, false
	}
	n, ok := matchRun(pat[1:], parts[1:])
	return n + 1, ok
}

// matchSeg matches a single pattern segment against a single path
// segment, with glob support for *, ? and character classes.
func matchSeg(pat, seg string) bool {
	if !strings.ContainsAny(pat, "*?[") {
		return pat == seg
	}
	ok, err := path.Match(pat, seg)
	return err == nil && ok
}
