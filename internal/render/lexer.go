package render

import (
	"regexp"
	"strings"
)

type segKind int

const (
	segText segKind = iota
	segExpr
	segStmt
	// segMarker stands in for comments and raw tags. It carries whitespace
	// control flags and produces no output.
	segMarker
)

type segment struct {
	kind      segKind
	body      string
	offset    int
	trimLeft  bool
	trimRight bool
}

const whitespace = " \t\r\n"

var endRawPattern = regexp.MustCompile(`\{%(-?)\s*endraw\s*(-?)%\}`)

// HasTemplate reports whether s contains any template tag. Strings without
// tags are never translated.
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%") || strings.Contains(s, "{#")
}

// scan splits src into text, expression and statement segments and applies
// whitespace control.
func scan(src string) ([]segment, error) {
	var segs []segment
	i := 0
	for i < len(src) {
		j := nextTag(src, i)
		if j < 0 {
			segs = append(segs, segment{kind: segText, body: src[i:], offset: i})
			break
		}
		if j > i {
			segs = append(segs, segment{kind: segText, body: src[i:j], offset: i})
		}

		seg := segment{offset: j}
		var closer string
		switch src[j+1] {
		case '{':
			seg.kind, closer = segExpr, "}}"
		case '%':
			seg.kind, closer = segStmt, "%}"
		default:
			seg.kind, closer = segMarker, "#}"
		}
		k := j + 2
		if k < len(src) && src[k] == '-' {
			seg.trimLeft = true
			k++
		}

		var end int
		if seg.kind == segMarker {
			end = strings.Index(src[k:], closer)
			if end >= 0 {
				end += k
			}
		} else {
			end = findClose(src, k, closer)
		}
		if end < 0 {
			return nil, syntaxErrorf(j, "unclosed %q tag", src[j:j+2])
		}

		body := src[k:end]
		if strings.HasSuffix(body, "-") {
			seg.trimRight = true
			body = body[:len(body)-1]
		}
		i = end + len(closer)
		if seg.kind == segMarker {
			segs = append(segs, seg)
			continue
		}
		seg.body = strings.TrimSpace(body)
		if seg.body == "" {
			return nil, syntaxErrorf(j, "empty %q tag", src[j:j+2])
		}

		if seg.kind == segStmt && seg.body == "raw" {
			loc := endRawPattern.FindStringSubmatchIndex(src[i:])
			if loc == nil {
				return nil, syntaxErrorf(j, "unclosed raw block")
			}
			segs = append(segs,
				segment{kind: segMarker, offset: j, trimLeft: seg.trimLeft, trimRight: seg.trimRight},
				segment{kind: segText, body: src[i : i+loc[0]], offset: i},
				segment{kind: segMarker, offset: i + loc[0], trimLeft: loc[3] > loc[2], trimRight: loc[5] > loc[4]},
			)
			i += loc[1]
			continue
		}
		segs = append(segs, seg)
	}
	applyTrims(segs)
	return segs, nil
}

func nextTag(src string, from int) int {
	for i := from; i+1 < len(src); i++ {
		if src[i] != '{' {
			continue
		}
		switch src[i+1] {
		case '{', '%', '#':
			return i
		}
	}
	return -1
}

// findClose returns the index of closer at or after from, ignoring
// occurrences inside quoted string literals.
func findClose(src string, from int, closer string) int {
	var quote byte
	for i := from; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(src[i:], closer):
			return i
		}
	}
	return -1
}

func applyTrims(segs []segment) {
	for i := range segs {
		s := segs[i]
		if s.kind == segText {
			continue
		}
		if s.trimLeft && i > 0 && segs[i-1].kind == segText {
			segs[i-1].body = strings.TrimRight(segs[i-1].body, whitespace)
		}
		if s.trimRight && i+1 < len(segs) && segs[i+1].kind == segText {
			segs[i+1].body = strings.TrimLeft(segs[i+1].body, whitespace)
		}
	}
}

// soleExpression returns the only segment of a template that consists of
// exactly one {{ expr }} tag, ignoring comments.
func soleExpression(segs []segment) *segment {
	var found *segment
	for i := range segs {
		switch segs[i].kind {
		case segMarker:
			continue
		case segText:
			if segs[i].body == "" {
				continue
			}
			return nil
		case segExpr:
			if found != nil {
				return nil
			}
			found = &segs[i]
		default:
			return nil
		}
	}
	return found
}
