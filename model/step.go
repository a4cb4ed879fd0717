package model

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/brunobiangulo/ifccheck/ontology"
)

// STEPLoader reads ISO 10303-21 physical files, the usual .ifc encoding.
type STEPLoader struct{}

func (l *STEPLoader) SupportedFormats() []string {
	return []string{"ifc", "stp", "step"}
}

func (l *STEPLoader) Load(ctx context.Context, path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading step file: %w", err)
	}
	m, err := ParseSTEP(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Debug("model: step file loaded", "path", path, "schema", m.Schema(), "records", m.Len())
	return m, nil
}

type pkind int

const (
	pNull pkind = iota
	pDerived
	pString
	pBinary
	pNumber
	pEnum
	pRef
	pList
	pTyped
)

type param struct {
	kind pkind
	text string // literal text, enum name or type name of a typed param
	ref  int
	list []param
}

type record struct {
	id   int
	typ  string
	args []param
}

// ParseSTEP parses the text of a physical file into a model. Every
// instance becomes an Element; relationships are then folded into derived
// roles on the elements they relate (see DeriveInverses).
func ParseSTEP(ctx context.Context, data []byte) (*Memory, error) {
	p := &stepParser{src: data, line: 1}
	schema, records, err := p.parse(ctx)
	if err != nil {
		return nil, err
	}
	elems, err := buildElements(records)
	if err != nil {
		return nil, err
	}
	DeriveInverses(elems)
	return NewMemory(schema, elems...), nil
}

func buildElements(records []*record) ([]*Element, error) {
	h := ontology.Default()
	byID := make(map[int]*record, len(records))
	classes := make(map[int]string, len(records))
	gids := make(map[int]string, len(records))
	for _, r := range records {
		byID[r.id] = r
		class := h.Canonical(r.typ)
		classes[r.id] = class
		if h.IsSubclassOf(class, ontology.ClassRoot) && len(r.args) > 0 {
			if a := r.args[0]; a.kind == pString {
				gids[r.id] = a.text
			}
		}
	}

	resolve := func(id int) (Ref, error) {
		if _, ok := byID[id]; !ok {
			return Ref{}, fmt.Errorf("unresolved reference #%d", id)
		}
		return Ref{GlobalID: gids[id], Type: classes[id]}, nil
	}

	elems := make([]*Element, 0, len(records))
	for _, r := range records {
		class := classes[r.id]
		names := AttributeNames(class)
		el := &Element{
			GlobalID:   gids[r.id],
			Type:       class,
			Attributes: []Attribute{{Role: ontology.RoleType, Value: Scalar(class)}},
		}
		for i, a := range r.args {
			v, ok, err := convertParam(a, resolve)
			if err != nil {
				return nil, fmt.Errorf("#%d %s: %w", r.id, r.typ, err)
			}
			if !ok {
				continue
			}
			role := roleAt(names, i)
			if role == ontology.RoleName && v.Kind() == KindScalar {
				el.Name = v.Scalar()
			}
			el.Attributes = append(el.Attributes, Attribute{Role: role, Value: v})
		}
		elems = append(elems, el)
	}
	return elems, nil
}

// convertParam maps a STEP parameter onto the three value shapes. Null and
// derived parameters report ok=false.
func convertParam(a param, resolve func(int) (Ref, error)) (Value, bool, error) {
	switch a.kind {
	case pNull, pDerived:
		return Value{}, false, nil
	case pRef:
		r, err := resolve(a.ref)
		if err != nil {
			return Value{}, false, err
		}
		return RefValue(r), true, nil
	case pTyped:
		if len(a.list) == 0 {
			return Value{}, false, nil
		}
		return convertParam(a.list[0], resolve)
	case pList:
		var refs []Ref
		for _, item := range a.list {
			if item.kind != pRef {
				continue
			}
			r, err := resolve(item.ref)
			if err != nil {
				return Value{}, false, err
			}
			refs = append(refs, r)
		}
		if len(refs) > 0 {
			return RefList(refs...), true, nil
		}
		return Scalar(scalarText(a)), true, nil
	default:
		return Scalar(a.text), true, nil
	}
}

func scalarText(a param) string {
	switch a.kind {
	case pList:
		parts := make([]string, len(a.list))
		for i, item := range a.list {
			parts[i] = scalarText(item)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case pTyped:
		if len(a.list) > 0 {
			return scalarText(a.list[0])
		}
		return ""
	case pRef:
		return "#" + strconv.Itoa(a.ref)
	case pNull:
		return "$"
	case pDerived:
		return "*"
	default:
		return a.text
	}
}

type stepParser struct {
	src  []byte
	pos  int
	line int
}

func (p *stepParser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func (p *stepParser) parse(ctx context.Context) (string, []*record, error) {
	p.skipSpace()
	if kw := p.keyword(); kw != "ISO-10303-21" {
		return "", nil, p.errorf("not an ISO 10303-21 file")
	}
	if err := p.expect(';'); err != nil {
		return "", nil, err
	}

	var (
		schema  string
		records []*record
		section string
	)
	for {
		p.skipSpace()
		if p.eof() {
			return "", nil, p.errorf("unexpected end of file")
		}
		if p.peek() == '#' {
			if section != "DATA" {
				return "", nil, p.errorf("instance outside DATA section")
			}
			r, err := p.instance()
			if err != nil {
				return "", nil, err
			}
			records = append(records, r)
			if len(records)%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return "", nil, err
				}
			}
			continue
		}

		kw := p.keyword()
		switch kw {
		case "":
			return "", nil, p.errorf("unexpected character %q", p.peek())
		case "HEADER", "DATA":
			section = kw
			p.skipSpace()
			if p.peek() == '(' {
				if _, err := p.list(); err != nil {
					return "", nil, err
				}
			}
			if err := p.expect(';'); err != nil {
				return "", nil, err
			}
		case "ENDSEC":
			section = ""
			if err := p.expect(';'); err != nil {
				return "", nil, err
			}
		case "END-ISO-10303-21":
			if err := p.expect(';'); err != nil {
				return "", nil, err
			}
			return schema, records, nil
		default:
			if section != "HEADER" {
				return "", nil, p.errorf("unexpected keyword %s", kw)
			}
			args, err := p.list()
			if err != nil {
				return "", nil, err
			}
			if err := p.expect(';'); err != nil {
				return "", nil, err
			}
			if kw == "FILE_SCHEMA" && len(args.list) > 0 {
				schema = firstString(args.list[0])
			}
		}
	}
}

func firstString(a param) string {
	switch a.kind {
	case pString:
		return a.text
	case pList, pTyped:
		for _, item := range a.list {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// instance parses "#n=TYPE(args);". A complex instance "#n=(A(..)B(..));"
// becomes a placeholder record typed by its first partial type and without
// arguments, so references to it resolve to an element with no GlobalId.
func (p *stepParser) instance() (*record, error) {
	p.pos++ // '#'
	id, err := p.integer()
	if err != nil {
		return nil, err
	}
	if err := p.expect('='); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		var first string
		for {
			p.skipSpace()
			if p.eof() {
				return nil, p.errorf("unterminated complex instance #%d", id)
			}
			if p.peek() == ')' {
				p.pos++
				break
			}
			kw := p.keyword()
			if kw == "" {
				return nil, p.errorf("malformed complex instance #%d", id)
			}
			if first == "" {
				first = kw
			}
			if _, err := p.list(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(';'); err != nil {
			return nil, err
		}
		slog.Debug("model: complex instance kept as placeholder", "id", id, "type", first)
		return &record{id: id, typ: first}, nil
	}

	typ := p.keyword()
	if typ == "" {
		return nil, p.errorf("missing entity type for #%d", id)
	}
	args, err := p.list()
	if err != nil {
		return nil, err
	}
	if err := p.expect(';'); err != nil {
		return nil, err
	}
	return &record{id: id, typ: typ, args: args.list}, nil
}

func (p *stepParser) list() (param, error) {
	if err := p.expect('('); err != nil {
		return param{}, err
	}
	out := param{kind: pList}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return out, nil
	}
	for {
		v, err := p.param()
		if err != nil {
			return param{}, err
		}
		out.list = append(out.list, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return out, nil
		default:
			return param{}, p.errorf("expected ',' or ')' in parameter list")
		}
	}
}

func (p *stepParser) param() (param, error) {
	p.skipSpace()
	if p.eof() {
		return param{}, p.errorf("unexpected end of file in parameter")
	}
	c := p.peek()
	switch {
	case c == '$':
		p.pos++
		return param{kind: pNull}, nil
	case c == '*':
		p.pos++
		return param{kind: pDerived}, nil
	case c == '\'':
		s, err := p.str()
		if err != nil {
			return param{}, err
		}
		return param{kind: pString, text: s}, nil
	case c == '"':
		p.pos++
		start := p.pos
		for !p.eof() && p.peek() != '"' {
			p.pos++
		}
		if p.eof() {
			return param{}, p.errorf("unterminated binary literal")
		}
		text := string(p.src[start:p.pos])
		p.pos++
		return param{kind: pBinary, text: text}, nil
	case c == '#':
		p.pos++
		id, err := p.integer()
		if err != nil {
			return param{}, err
		}
		return param{kind: pRef, ref: id}, nil
	case c == '.':
		p.pos++
		start := p.pos
		for !p.eof() && p.peek() != '.' {
			p.pos++
		}
		if p.eof() {
			return param{}, p.errorf("unterminated enumeration")
		}
		text := string(p.src[start:p.pos])
		p.pos++
		return param{kind: pEnum, text: text}, nil
	case c == '(':
		return p.list()
	case c == '-' || c == '+' || isDigit(c):
		start := p.pos
		p.pos++
		for !p.eof() && strings.IndexByte("0123456789.eE+-", p.peek()) >= 0 {
			p.pos++
		}
		return param{kind: pNumber, text: string(p.src[start:p.pos])}, nil
	case isLetter(c):
		typ := p.keyword()
		inner, err := p.list()
		if err != nil {
			return param{}, err
		}
		return param{kind: pTyped, text: typ, list: inner.list}, nil
	default:
		return param{}, p.errorf("unexpected character %q in parameter", c)
	}
}

// str reads a quoted string; '' stands for a single quote. Control
// directives are decoded afterwards.
func (p *stepParser) str() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		if c == '\'' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return decodeSTEPString(b.String()), nil
		}
		if c == '\n' {
			p.line++
		}
		b.WriteByte(c)
		p.pos++
	}
}

// decodeSTEPString expands the \X\, \X2\, \X4\, \S\ and \\ directives of
// ISO 10303-21 strings. Code page switches (\P?\) are dropped.
func decodeSTEPString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, `\\`):
			b.WriteByte('\\')
			i += 2
		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			width := 4
			if rest[2] == '4' {
				width = 8
			}
			end := strings.Index(rest[4:], `\X0\`)
			if end < 0 {
				b.WriteString(rest)
				return b.String()
			}
			hex := rest[4 : 4+end]
			var units []uint16
			for j := 0; j+width <= len(hex); j += width {
				n, err := strconv.ParseUint(hex[j:j+width], 16, 32)
				if err != nil {
					break
				}
				if width == 8 {
					b.WriteRune(rune(n))
				} else {
					units = append(units, uint16(n))
				}
			}
			if len(units) > 0 {
				b.WriteString(string(utf16.Decode(units)))
			}
			i += 4 + end + 4
		case strings.HasPrefix(rest, `\X\`) && len(rest) >= 5:
			n, err := strconv.ParseUint(rest[3:5], 16, 8)
			if err != nil {
				b.WriteByte(s[i])
				i++
				continue
			}
			b.WriteRune(rune(n))
			i += 5
		case strings.HasPrefix(rest, `\S\`) && len(rest) >= 4:
			b.WriteRune(rune(rest[3]) + 128)
			i += 4
		case len(rest) >= 4 && rest[0] == '\\' && rest[1] == 'P' && rest[3] == '\\':
			i += 4
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func (p *stepParser) integer() (int, error) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected instance number")
	}
	return strconv.Atoi(string(p.src[start:p.pos]))
}

// keyword reads an upper-case STEP keyword such as IFCWALL or
// END-ISO-10303-21. It returns "" when none is present.
func (p *stepParser) keyword() string {
	p.skipSpace()
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isLetter(c) || isDigit(c) || c == '_' || (c == '-' && p.pos > start) {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

func (p *stepParser) expect(c byte) error {
	p.skipSpace()
	if p.eof() || p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

var (
	commentEnd = []byte("*/")
	newline    = []byte("\n")
)

// skipSpace skips whitespace and /* */ comments.
func (p *stepParser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := bytes.Index(p.src[p.pos+2:], commentEnd)
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.line += bytes.Count(p.src[p.pos:p.pos+2+end], newline)
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *stepParser) eof() bool { return p.pos >= len(p.src) }

// peek returns the current byte, or 0 at end of input.
func (p *stepParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }
