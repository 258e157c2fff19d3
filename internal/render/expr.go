package render

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// Longer operators first so that "//" wins over "/".
var operators = []string{
	"**", "//", "==", "!=", "<=", ">=",
	"+", "-", "*", "/", "%", "~", "|", ".", ",", ":", "(", ")", "[", "]", "{", "}", "<", ">",
}

var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true, "if": true, "else": true,
}

func tokenize(src string, base int) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case strings.IndexByte(whitespace, c) >= 0:
			i++
		case isNameStart(c):
			j := i + 1
			for j < len(src) && isNameChar(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokName, text: src[i:j], offset: base + i})
			i = j
		case isDigit(c):
			j := scanNumber(src, i)
			toks = append(toks, token{kind: tokNumber, text: src[i:j], offset: base + i})
			i = j
		case c == '\'' || c == '"':
			s, j, err := scanString(src, i, base)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s, offset: base + i})
			i = j
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, syntaxErrorf(base+i, "unexpected character %q", c)
			}
			toks = append(toks, token{kind: tokOp, text: op, offset: base + i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF, offset: base + len(src)}), nil
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func scanNumber(src string, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	return i
}

// scanString decodes a quoted literal starting at src[i] and returns the
// decoded text and the index just past the closing quote.
func scanString(src string, i, base int) (string, int, error) {
	quote := src[i]
	var sb strings.Builder
	for j := i + 1; j < len(src); j++ {
		c := src[j]
		switch {
		case c == quote:
			return sb.String(), j + 1, nil
		case c == '\\' && j+1 < len(src):
			j++
			switch src[j] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(src[j])
			default:
				sb.WriteByte('\\')
				sb.WriteByte(src[j])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, syntaxErrorf(base+i, "unterminated string literal")
}

// operand is a translated expression. boolean marks results that are
// already cty booleans and need no truthiness conversion.
type operand struct {
	src     string
	boolean bool
}

func (o operand) cond() string {
	if o.boolean {
		return o.src
	}
	return "truthy(" + o.src + ")"
}

// parser turns template expressions into HCL expression source. Names found
// in scope are replaced by the HCL source they are bound to.
type parser struct {
	toks  []token
	pos   int
	scope map[string]string
}

func newParser(src string, base int, scope map[string]string) (*parser, error) {
	toks, err := tokenize(src, base)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, scope: scope}, nil
}

// parseExpression translates a complete expression.
func parseExpression(src string, base int, scope map[string]string) (operand, error) {
	p, err := newParser(src, base, scope)
	if err != nil {
		return operand{}, err
	}
	op, err := p.parseExpr()
	if err != nil {
		return operand{}, err
	}
	if err := p.expectEOF(); err != nil {
		return operand{}, err
	}
	return op, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(s string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == s
}

func (p *parser) isKeyword(s string) bool {
	t := p.peek()
	return t.kind == tokName && t.text == s
}

func (p *parser) expectOp(s string) error {
	if !p.isOp(s) {
		return p.unexpected("expected %q", s)
	}
	p.next()
	return nil
}

func (p *parser) expectKeyword(s string) error {
	if !p.isKeyword(s) {
		return p.unexpected("expected %q", s)
	}
	p.next()
	return nil
}

func (p *parser) expectName() (string, error) {
	t := p.peek()
	if t.kind != tokName || reserved[t.text] {
		return "", p.unexpected("expected a name")
	}
	p.next()
	return t.text, nil
}

func (p *parser) expectEOF() error {
	if p.peek().kind != tokEOF {
		return p.unexpected("expected end of expression")
	}
	return nil
}

func (p *parser) unexpected(format string, args ...any) error {
	t := p.peek()
	found := "end of expression"
	if t.kind != tokEOF {
		found = strconv.Quote(t.text)
	}
	return syntaxErrorf(t.offset, "%s, found %s", fmt.Sprintf(format, args...), found)
}

func (p *parser) parseExpr() (operand, error) {
	return p.parseTernary()
}

// x if c else y
func (p *parser) parseTernary() (operand, error) {
	left, err := p.parseOr()
	if err != nil {
		return operand{}, err
	}
	if !p.isKeyword("if") {
		return left, nil
	}
	p.next()
	c, err := p.parseOr()
	if err != nil {
		return operand{}, err
	}
	right := operand{src: "null"}
	if p.isKeyword("else") {
		p.next()
		if right, err = p.parseTernary(); err != nil {
			return operand{}, err
		}
	}
	return operand{
		src:     fmt.Sprintf("(%s ? %s : %s)", c.cond(), left.src, right.src),
		boolean: left.boolean && right.boolean,
	}, nil
}

// Both logical operators evaluate through a conditional so the right operand
// is only evaluated when it decides the result.
func (p *parser) parseOr() (operand, error) {
	left, err := p.parseAnd()
	if err != nil {
		return operand{}, err
	}
	for p.isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return operand{}, err
		}
		if left.boolean && right.boolean {
			left = operand{src: fmt.Sprintf("(%s ? true : %s)", left.src, right.src), boolean: true}
		} else {
			left = operand{src: fmt.Sprintf("(%s ? %s : %s)", left.cond(), left.src, right.src)}
		}
	}
	return left, nil
}

func (p *parser) parseAnd() (operand, error) {
	left, err := p.parseNot()
	if err != nil {
		return operand{}, err
	}
	for p.isKeyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return operand{}, err
		}
		if left.boolean && right.boolean {
			left = operand{src: fmt.Sprintf("(%s ? %s : false)", left.src, right.src), boolean: true}
		} else {
			left = operand{src: fmt.Sprintf("(%s ? %s : %s)", left.cond(), right.src, left.src)}
		}
	}
	return left, nil
}

func (p *parser) parseNot() (operand, error) {
	if p.isKeyword("not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return operand{}, err
		}
		return operand{src: "!" + x.cond(), boolean: true}, nil
	}
	return p.parseCompare()
}

var comparisons = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseCompare() (operand, error) {
	left, err := p.parseConcat()
	if err != nil {
		return operand{}, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && comparisons[t.text]:
			p.next()
			right, err := p.parseConcat()
			if err != nil {
				return operand{}, err
			}
			if t.text == "==" || t.text == "!=" {
				left = operand{src: fmt.Sprintf("(%s %s %s)", left.src, t.text, right.src), boolean: true}
			} else {
				left = operand{src: fmt.Sprintf("compare(%s, %q, %s)", left.src, t.text, right.src), boolean: true}
			}
		case p.isKeyword("in"):
			p.next()
			right, err := p.parseConcat()
			if err != nil {
				return operand{}, err
			}
			left = operand{src: fmt.Sprintf("in_collection(%s, %s)", left.src, right.src), boolean: true}
		case p.isKeyword("not") && p.toks[p.pos+1].kind == tokName && p.toks[p.pos+1].text == "in":
			p.next()
			p.next()
			right, err := p.parseConcat()
			if err != nil {
				return operand{}, err
			}
			left = operand{src: fmt.Sprintf("!in_collection(%s, %s)", left.src, right.src), boolean: true}
		case p.isKeyword("is"):
			p.next()
			if left, err = p.parseTest(left); err != nil {
				return operand{}, err
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTest(x operand) (operand, error) {
	negate := false
	if p.isKeyword("not") {
		p.next()
		negate = true
	}
	name, err := p.expectName()
	if err != nil {
		return operand{}, err
	}
	var src string
	switch name {
	case "defined":
		src = fmt.Sprintf("can(%s)", x.src)
	case "undefined":
		src = fmt.Sprintf("!can(%s)", x.src)
	case "none":
		src = fmt.Sprintf("(%s == null)", x.src)
	default:
		return operand{}, syntaxErrorf(p.toks[p.pos-1].offset, "unknown test %q", name)
	}
	if negate {
		src = "!" + src
	}
	return operand{src: src, boolean: true}, nil
}

func (p *parser) parseConcat() (operand, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return operand{}, err
	}
	for p.isOp("~") {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return operand{}, err
		}
		left = operand{src: fmt.Sprintf(`format("%%s%%s", tostr(%s), tostr(%s))`, left.src, right.src)}
	}
	return left, nil
}

func (p *parser) parseAdditive() (operand, error) {
	left, err := p.parseMul()
	if err != nil {
		return operand{}, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		right, err := p.parseMul()
		if err != nil {
			return operand{}, err
		}
		if op == "+" {
			left = operand{src: fmt.Sprintf("add(%s, %s)", left.src, right.src)}
		} else {
			left = operand{src: fmt.Sprintf("(%s - %s)", left.src, right.src)}
		}
	}
	return left, nil
}

func (p *parser) parseMul() (operand, error) {
	left, err := p.parseUnary()
	if err != nil {
		return operand{}, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("//") || p.isOp("%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return operand{}, err
		}
		if op == "//" {
			left = operand{src: fmt.Sprintf("floor(%s / %s)", left.src, right.src)}
		} else {
			left = operand{src: fmt.Sprintf("(%s %s %s)", left.src, op, right.src)}
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (operand, error) {
	switch {
	case p.isOp("-"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return operand{}, err
		}
		return operand{src: "-" + x.src}, nil
	case p.isOp("+"):
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (operand, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return operand{}, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return operand{}, err
	}
	return operand{src: fmt.Sprintf("pow(%s, %s)", base.src, exp.src)}, nil
}

func (p *parser) parsePostfix() (operand, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return operand{}, err
	}
	for {
		switch {
		case p.isOp("."):
			p.next()
			nameTok := p.peek()
			name, err := p.expectName()
			if err != nil {
				return operand{}, err
			}
			if !p.isOp("(") {
				x = operand{src: x.src + "." + name}
				continue
			}
			args, err := p.parseArgs()
			if err != nil {
				return operand{}, err
			}
			if x, err = applyMethod(x, name, args, nameTok.offset); err != nil {
				return operand{}, err
			}
		case p.isOp("["):
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return operand{}, err
			}
			if err := p.expectOp("]"); err != nil {
				return operand{}, err
			}
			x = operand{src: fmt.Sprintf("%s[%s]", x.src, key.src)}
		case p.isOp("|"):
			p.next()
			nameTok := p.peek()
			name, err := p.expectName()
			if err != nil {
				return operand{}, err
			}
			var args []operand
			if p.isOp("(") {
				if args, err = p.parseArgs(); err != nil {
					return operand{}, err
				}
			}
			if x, err = applyFilter(x, name, args, nameTok.offset); err != nil {
				return operand{}, err
			}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseArgs() ([]operand, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var args []operand
	for !p.isOp(")") {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (operand, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return operand{src: t.text}, nil
	case tokString:
		p.next()
		return operand{src: quoteHCL(t.text)}, nil
	case tokName:
		switch t.text {
		case "true", "True":
			p.next()
			return operand{src: "true", boolean: true}, nil
		case "false", "False":
			p.next()
			return operand{src: "false", boolean: true}, nil
		case "none", "None":
			p.next()
			return operand{src: "null"}, nil
		}
		if reserved[t.text] {
			return operand{}, p.unexpected("expected an expression")
		}
		p.next()
		if !p.isOp("(") {
			if bound, ok := p.scope[t.text]; ok {
				return operand{src: bound}, nil
			}
			return operand{src: t.text}, nil
		}
		args, err := p.parseArgs()
		if err != nil {
			return operand{}, err
		}
		return applyCall(t.text, args, t.offset)
	case tokOp:
		switch t.text {
		case "(":
			p.next()
			x, err := p.parseExpr()
			if err != nil {
				return operand{}, err
			}
			if err := p.expectOp(")"); err != nil {
				return operand{}, err
			}
			return operand{src: "(" + x.src + ")", boolean: x.boolean}, nil
		case "[":
			return p.parseList()
		case "{":
			return p.parseDict()
		}
	}
	return operand{}, p.unexpected("expected an expression")
}

func (p *parser) parseList() (operand, error) {
	p.next()
	var items []string
	for !p.isOp("]") {
		item, err := p.parseExpr()
		if err != nil {
			return operand{}, err
		}
		items = append(items, item.src)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp("]"); err != nil {
		return operand{}, err
	}
	return operand{src: "[" + strings.Join(items, ", ") + "]"}, nil
}

// parseDict translates {k: v}. Keys that are not string literals are
// parenthesized so HCL evaluates them instead of reading a bare name.
func (p *parser) parseDict() (operand, error) {
	p.next()
	var items []string
	for !p.isOp("}") {
		keyTok := p.peek()
		key, err := p.parseExpr()
		if err != nil {
			return operand{}, err
		}
		if keyTok.kind != tokString || !strings.HasPrefix(key.src, `"`) {
			key.src = "(" + key.src + ")"
		}
		if err := p.expectOp(":"); err != nil {
			return operand{}, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return operand{}, err
		}
		items = append(items, key.src+" = "+val.src)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp("}"); err != nil {
		return operand{}, err
	}
	return operand{src: "{" + strings.Join(items, ", ") + "}"}, nil
}

// quoteHCL renders s as an HCL quoted string literal.
func quoteHCL(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case (c == '$' || c == '%') && i+1 < len(s) && s[i+1] == '{':
			sb.WriteByte(c)
			sb.WriteByte(c)
		case c < 0x20:
			fmt.Fprintf(&sb, `\u%04x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
