// Package lualit parses and serializes a restricted subset of Lua literal
// syntax, the on-disk format of sidecar settings files.
//
// The supported grammar is intentionally minimal to keep parsing
// deterministic and to avoid executing code from removable or shared
// storage. Only the following constructs are allowed:
//
//	-- a line comment
//	return {
//	    ["doc_path"] = "/books/c.pdf",
//	    ["percent_finished"] = 0.42,
//	    ["highlight_enabled"] = true,
//	    ["bookmarks"] = {
//	        "page 1",
//	        "page 9",
//	    },
//	}
//
// Scalar values are nil, booleans, integers (decimal or 0x hex), floats,
// and single- or double-quoted strings with \n \t \r \\ \" \' and \ddd
// escapes. Tables are either pure sequences or string-keyed mappings; a
// sequence may also be spelled with explicit [1]..[n] integer keys, which
// older writers produced. A table mixing positional and keyed fields, or
// using non-sequential integer keys, is rejected.
//
// Features explicitly not supported: function calls, operators, long
// strings, long comments, metatables, and any other executable syntax.
// Input never reaches an interpreter.
package lualit

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ErrSyntax reports input outside the supported literal grammar.
// Callers should use errors.Is(err, ErrSyntax).
var ErrSyntax = errors.New("invalid lua literal")

// ErrUnsupported reports a Go value that has no literal representation.
// Callers should use errors.Is(err, ErrUnsupported).
var ErrUnsupported = errors.New("unsupported value")

const indentStep = "    "

// Marshal renders v as a Lua literal.
//
// Supported value shapes: nil, bool, string, integers, floats, []any
// (sequence) and map[string]any (mapping). Output is deterministic: mapping
// keys are emitted in sorted order, nested tables are indented.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	err := writeValue(&buf, v, 0)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal parses a Lua literal into nested Go values.
//
// The input may carry leading line comments and an optional `return`
// keyword, matching the full content of a sidecar settings file. Mappings
// decode as map[string]any, sequences as []any, numbers as int64 or
// float64, strings as string.
func Unmarshal(data []byte) (any, error) {
	p := &parser{data: data}

	p.skipSpace()
	p.acceptReturn()

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos != len(p.data) {
		return nil, p.errf("trailing data")
	}

	return v, nil
}

// --- Serialization ---

func writeValue(buf *bytes.Buffer, v any, depth int) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		writeQuoted(buf, t)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case float32:
		return writeFloat(buf, float64(t))
	case float64:
		return writeFloat(buf, t)
	case []any:
		return writeSequence(buf, t, depth)
	case map[string]any:
		return writeMapping(buf, t, depth)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, v)
	}

	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: non-finite float", ErrUnsupported)
	}

	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))

	return nil
}

func writeSequence(buf *bytes.Buffer, seq []any, depth int) error {
	if len(seq) == 0 {
		buf.WriteString("{}")

		return nil
	}

	buf.WriteString("{\n")

	for _, item := range seq {
		writeIndent(buf, depth+1)

		err := writeValue(buf, item, depth+1)
		if err != nil {
			return err
		}

		buf.WriteString(",\n")
	}

	writeIndent(buf, depth)
	buf.WriteByte('}')

	return nil
}

func writeMapping(buf *bytes.Buffer, m map[string]any, depth int) error {
	if len(m) == 0 {
		buf.WriteString("{}")

		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	buf.WriteString("{\n")

	for _, k := range keys {
		writeIndent(buf, depth+1)
		buf.WriteByte('[')
		writeQuoted(buf, k)
		buf.WriteString("] = ")

		err := writeValue(buf, m[k], depth+1)
		if err != nil {
			return err
		}

		buf.WriteString(",\n")
	}

	writeIndent(buf, depth)
	buf.WriteByte('}')

	return nil
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString(indentStep)
	}
}

// writeQuoted emits a double-quoted Lua string. Non-printable bytes use
// decimal \ddd escapes so the output stays valid regardless of encoding.
func writeQuoted(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '"':
			buf.WriteString(`\"`)
		case c == '\\':
			buf.WriteString(`\\`)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\r':
			buf.WriteString(`\r`)
		case c == '\t':
			buf.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			buf.WriteByte('\\')
			buf.WriteString(strconv.Itoa(int(c)))
		default:
			buf.WriteByte(c)
		}
	}

	buf.WriteByte('"')
}

// --- Parsing ---

type parser struct {
	data []byte
	pos  int
}

func (p *parser) errf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, msg, p.pos)
}

// skipSpace consumes whitespace and `--` line comments.
func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]

		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			p.pos++

			continue
		}

		if c == '-' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '-' {
			p.pos += 2
			for p.pos < len(p.data) && p.data[p.pos] != '\n' {
				p.pos++
			}

			continue
		}

		return
	}
}

// acceptReturn consumes a leading `return` keyword if present.
func (p *parser) acceptReturn() {
	const kw = "return"

	end := p.pos + len(kw)
	if end > len(p.data) || string(p.data[p.pos:end]) != kw {
		return
	}

	if end < len(p.data) && isIdentChar(p.data[end]) {
		return
	}

	p.pos = end
	p.skipSpace()
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}

	return p.data[p.pos], true
}

func (p *parser) parseValue() (any, error) {
	p.skipSpace()

	c, ok := p.peek()
	if !ok {
		return nil, p.errf("unexpected end of input")
	}

	switch {
	case c == '{':
		return p.parseTable()
	case c == '"' || c == '\'':
		return p.parseString(c)
	case isIdentStart(c):
		return p.parseKeyword()
	case c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.':
		return p.parseNumber()
	default:
		return nil, p.errf("unexpected character %q", c)
	}
}

func (p *parser) parseKeyword() (any, error) {
	name := p.parseIdent()

	switch name {
	case "nil":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, p.errf("unexpected identifier %q", name)
	}
}

func (p *parser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.data) && isIdentChar(p.data[p.pos]) {
		p.pos++
	}

	return string(p.data[start:p.pos])
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos

	c, _ := p.peek()
	if c == '-' || c == '+' {
		p.pos++
	}

	for p.pos < len(p.data) {
		c = p.data[p.pos]

		isDigitish := c >= '0' && c <= '9' || c == '.' ||
			c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' ||
			c == 'x' || c == 'X' || c == 'p' || c == 'P'

		isExpSign := (c == '-' || c == '+') && p.pos > start &&
			(p.data[p.pos-1] == 'e' || p.data[p.pos-1] == 'E' ||
				p.data[p.pos-1] == 'p' || p.data[p.pos-1] == 'P')

		if !isDigitish && !isExpSign {
			break
		}

		p.pos++
	}

	text := string(p.data[start:p.pos])

	i, err := strconv.ParseInt(text, 0, 64)
	if err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err == nil {
		return f, nil
	}

	return nil, p.errf("malformed number %q", text)
}

func (p *parser) parseString(quote byte) (any, error) {
	p.pos++ // opening quote

	var out bytes.Buffer

	for p.pos < len(p.data) {
		c := p.data[p.pos]

		switch {
		case c == quote:
			p.pos++

			return out.String(), nil
		case c == '\n':
			return nil, p.errf("unterminated string")
		case c == '\\':
			p.pos++

			err := p.parseEscape(&out)
			if err != nil {
				return nil, err
			}
		default:
			out.WriteByte(c)
			p.pos++
		}
	}

	return nil, p.errf("unterminated string")
}

func (p *parser) parseEscape(out *bytes.Buffer) error {
	if p.pos >= len(p.data) {
		return p.errf("unterminated escape")
	}

	c := p.data[p.pos]

	switch c {
	case 'n':
		out.WriteByte('\n')
	case 't':
		out.WriteByte('\t')
	case 'r':
		out.WriteByte('\r')
	case 'a':
		out.WriteByte(0x07)
	case 'b':
		out.WriteByte(0x08)
	case 'f':
		out.WriteByte(0x0c)
	case 'v':
		out.WriteByte(0x0b)
	case '\\', '"', '\'':
		out.WriteByte(c)
	case '\n':
		out.WriteByte('\n')
	default:
		if c < '0' || c > '9' {
			return p.errf("unsupported escape %q", c)
		}

		return p.parseDecimalEscape(out)
	}

	p.pos++

	return nil
}

// parseDecimalEscape handles \ddd with up to three decimal digits.
func (p *parser) parseDecimalEscape(out *bytes.Buffer) error {
	n := 0
	digits := 0

	for digits < 3 && p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		n = n*10 + int(p.data[p.pos]-'0')
		p.pos++
		digits++
	}

	if n > 0xff {
		return p.errf("escape out of range")
	}

	out.WriteByte(byte(n))

	return nil
}

func (p *parser) parseTable() (any, error) {
	p.pos++ // opening brace

	var (
		seq    []any
		strMap map[string]any
		intMap map[int64]any
	)

	for {
		p.skipSpace()

		c, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated table")
		}

		if c == '}' {
			p.pos++

			break
		}

		err := p.parseField(&seq, &strMap, &intMap)
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		c, ok = p.peek()
		if !ok {
			return nil, p.errf("unterminated table")
		}

		switch c {
		case ',', ';':
			p.pos++
		case '}':
		default:
			return nil, p.errf("expected ',' or '}', got %q", c)
		}
	}

	return assembleTable(seq, strMap, intMap, p)
}

// parseField parses one table field into the positional, string-keyed, or
// integer-keyed bucket.
func (p *parser) parseField(seq *[]any, strMap *map[string]any, intMap *map[int64]any) error {
	c, _ := p.peek()

	if c == '[' {
		return p.parseBracketField(strMap, intMap)
	}

	if isIdentStart(c) {
		save := p.pos
		name := p.parseIdent()
		p.skipSpace()

		if next, ok := p.peek(); ok && next == '=' {
			p.pos++

			val, err := p.parseValue()
			if err != nil {
				return err
			}

			if *strMap == nil {
				*strMap = make(map[string]any)
			}

			(*strMap)[name] = val

			return nil
		}

		// Not a key after all; re-parse as a positional keyword value.
		p.pos = save
	}

	val, err := p.parseValue()
	if err != nil {
		return err
	}

	*seq = append(*seq, val)

	return nil
}

func (p *parser) parseBracketField(strMap *map[string]any, intMap *map[int64]any) error {
	p.pos++ // '['
	p.skipSpace()

	key, err := p.parseValue()
	if err != nil {
		return err
	}

	p.skipSpace()

	if c, ok := p.peek(); !ok || c != ']' {
		return p.errf("expected ']'")
	}

	p.pos++
	p.skipSpace()

	if c, ok := p.peek(); !ok || c != '=' {
		return p.errf("expected '='")
	}

	p.pos++

	val, err := p.parseValue()
	if err != nil {
		return err
	}

	switch k := key.(type) {
	case string:
		if *strMap == nil {
			*strMap = make(map[string]any)
		}

		(*strMap)[k] = val
	case int64:
		if *intMap == nil {
			*intMap = make(map[int64]any)
		}

		(*intMap)[k] = val
	default:
		return p.errf("unsupported table key type %T", key)
	}

	return nil
}

// assembleTable decides the Go shape of a parsed table. Pure sequences
// (positional or [1]..[n] keyed) become []any, string-keyed tables become
// map[string]any, the empty table becomes an empty mapping. Mixed shapes
// are rejected.
func assembleTable(seq []any, strMap map[string]any, intMap map[int64]any, p *parser) (any, error) {
	populated := 0
	if len(seq) > 0 {
		populated++
	}

	if len(strMap) > 0 {
		populated++
	}

	if len(intMap) > 0 {
		populated++
	}

	if populated > 1 {
		return nil, p.errf("table mixes sequence and mapping fields")
	}

	switch {
	case len(seq) > 0:
		return seq, nil
	case len(strMap) > 0:
		return strMap, nil
	case len(intMap) > 0:
		out := make([]any, len(intMap))

		for k, v := range intMap {
			if k < 1 || k > int64(len(intMap)) {
				return nil, p.errf("non-sequential integer key %d", k)
			}

			out[k-1] = v
		}

		return out, nil
	default:
		return map[string]any{}, nil
	}
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
