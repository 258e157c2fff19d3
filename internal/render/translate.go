package render

import (
	"fmt"
	"maps"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// translation is a template rewritten as HCL source. A sole translation is a
// single expression evaluated with its native type; otherwise src is an HCL
// template that always yields a string.
type translation struct {
	src  string
	sole bool
}

type openBlock struct {
	tag     string
	offset  int
	elifs   int
	hasElse bool
	binds   map[string]string
}

// scopeOf merges the loop bindings of every open block, innermost last.
func scopeOf(stack []*openBlock) map[string]string {
	var scope map[string]string
	for _, b := range stack {
		if len(b.binds) == 0 {
			continue
		}
		if scope == nil {
			scope = make(map[string]string)
		}
		maps.Copy(scope, b.binds)
	}
	return scope
}

func translate(template string) (*translation, error) {
	segs, err := scan(template)
	if err != nil {
		return nil, err
	}
	if sole := soleExpression(segs); sole != nil {
		op, err := parseExpression(sole.body, sole.offset, nil)
		if err != nil {
			return nil, err
		}
		return &translation{src: op.src, sole: true}, nil
	}

	var b strings.Builder
	var stack []*openBlock
	for _, s := range segs {
		switch s.kind {
		case segText:
			writeLiteral(&b, s.body)
		case segExpr:
			op, err := parseExpression(s.body, s.offset, scopeOf(stack))
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "${tostr(%s)}", op.src)
		case segStmt:
			if stack, err = translateStatement(&b, s, stack); err != nil {
				return nil, err
			}
		}
	}
	if n := len(stack); n > 0 {
		return nil, syntaxErrorf(stack[n-1].offset, "unclosed {%% %s %%} block", stack[n-1].tag)
	}
	return &translation{src: b.String()}, nil
}

func translateStatement(b *strings.Builder, s segment, stack []*openBlock) ([]*openBlock, error) {
	p, err := newParser(s.body, s.offset+2, scopeOf(stack))
	if err != nil {
		return nil, err
	}
	head := p.next()
	if head.kind != tokName {
		return nil, syntaxErrorf(s.offset, "expected a tag name")
	}
	var top *openBlock
	if n := len(stack); n > 0 {
		top = stack[n-1]
	}

	switch head.text {
	case "if", "elif":
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		if head.text == "if" {
			fmt.Fprintf(b, "%%{ if %s }", c.cond())
			return append(stack, &openBlock{tag: "if", offset: s.offset}), nil
		}
		if top == nil || top.tag != "if" || top.hasElse {
			return nil, syntaxErrorf(s.offset, "unexpected {%% elif %%}")
		}
		top.elifs++
		fmt.Fprintf(b, "%%{ else }%%{ if %s }", c.cond())
		return stack, nil

	case "else":
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		if top == nil || top.tag != "if" || top.hasElse {
			return nil, syntaxErrorf(s.offset, "unexpected {%% else %%}")
		}
		top.hasElse = true
		b.WriteString("%{ else }")
		return stack, nil

	case "endif":
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		if top == nil || top.tag != "if" {
			return nil, syntaxErrorf(s.offset, "unexpected {%% endif %%}")
		}
		b.WriteString(strings.Repeat("%{ endif }", top.elifs+1))
		return stack[:len(stack)-1], nil

	case "for":
		depth := 0
		for _, open := range stack {
			if open.tag == "for" {
				depth++
			}
		}
		head, binds, err := translateFor(p, depth)
		if err != nil {
			return nil, err
		}
		b.WriteString(head)
		return append(stack, &openBlock{tag: "for", offset: s.offset, binds: binds}), nil

	case "endfor":
		if err := p.expectEOF(); err != nil {
			return nil, err
		}
		if top == nil || top.tag != "for" {
			return nil, syntaxErrorf(s.offset, "unexpected {%% endfor %%}")
		}
		b.WriteString("%{ endfor }")
		return stack[:len(stack)-1], nil
	}
	return nil, syntaxErrorf(s.offset, "unsupported tag %q", head.text)
}

// translateFor handles "for x in xs [if cond]" and "for k, v in m.items()".
// The single-name form iterates mapping keys. The two-name form iterates
// [key, value] pairs bound to a hidden loop variable, and binds the two
// names to its elements for the loop body. depth counts the enclosing loops
// and keeps hidden variables of nested loops apart.
func translateFor(p *parser, depth int) (string, map[string]string, error) {
	first, err := p.expectName()
	if err != nil {
		return "", nil, err
	}
	second := ""
	if p.isOp(",") {
		p.next()
		if second, err = p.expectName(); err != nil {
			return "", nil, err
		}
	}
	if err := p.expectKeyword("in"); err != nil {
		return "", nil, err
	}
	coll, err := p.parseOr()
	if err != nil {
		return "", nil, err
	}

	loopVar, src := first, "iter("+coll.src+")"
	binds := map[string]string{first: first}
	if second != "" {
		loopVar, src = fmt.Sprintf("_pair%d", depth), "items("+coll.src+")"
		binds = map[string]string{first: loopVar + "[0]", second: loopVar + "[1]"}
	}
	inner := make(map[string]string, len(p.scope)+len(binds))
	maps.Copy(inner, p.scope)
	maps.Copy(inner, binds)
	p.scope = inner

	if p.isKeyword("if") {
		p.next()
		c, err := p.parseOr()
		if err != nil {
			return "", nil, err
		}
		src = fmt.Sprintf("[for %s in %s : %s if %s]", loopVar, src, loopVar, c.cond())
	}
	if err := p.expectEOF(); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%%{ for %s in %s }", loopVar, src), binds, nil
}

// writeLiteral emits template text. "$" and "%" are emitted as quoted
// interpolations whenever HCL could read them as the start of a sequence.
func writeLiteral(b *strings.Builder, text string) {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' && c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(text) || text[i+1] == '{' || text[i+1] == '$' || text[i+1] == '%' {
			fmt.Fprintf(b, `${"%c"}`, c)
			continue
		}
		b.WriteByte(c)
	}
}

// compile translates and parses a template.
func compile(template string) (hclsyntax.Expression, error) {
	t, err := translate(template)
	if err != nil {
		return nil, err
	}
	var (
		expr  hclsyntax.Expression
		diags hcl.Diagnostics
	)
	if t.sole {
		expr, diags = hclsyntax.ParseExpression([]byte(t.src), "template", hcl.InitialPos)
	} else {
		expr, diags = hclsyntax.ParseTemplate([]byte(t.src), "template", hcl.InitialPos)
	}
	if diags.HasErrors() {
		return nil, diagError(diags)
	}
	return expr, nil
}
