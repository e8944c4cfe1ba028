// Package scanner tokenizes PDF syntax from an io.ReaderAt. It feeds the
// raw object parser and knows just enough about stream objects to slice
// their payload out of the byte stream.
package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenStream                   // stream payload
	TokenKeyword                  // obj, endobj, trailer, '>>', ']', ...
)

type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
}

// Ref is the value carried by TokenRef tokens.
type Ref struct {
	Num int
	Gen int
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	Seek(offset int64) error
	// SetNextStreamLength supplies the /Length of the stream about to be
	// scanned so the payload can be sliced without searching for endstream.
	SetNextStreamLength(n int64)
}

// Config bounds scanner work on hostile input. Zero values disable a limit.
type Config struct {
	MaxStringLength int64
	MaxStreamLength int64
	WindowSize      int64
}

// pdfScanner buffers data from the ReaderAt in fixed-size windows.
type pdfScanner struct {
	reader        io.ReaderAt
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
	chunkSize     int64
	eof           bool
}

// New returns a scanner over r.
func New(r io.ReaderAt, cfg Config) Scanner {
	chunk := cfg.WindowSize
	if chunk <= 0 {
		chunk = 64 * 1024
	}
	return &pdfScanner{reader: r, cfg: cfg, nextStreamLen: -1, chunkSize: chunk}
}

func (s *pdfScanner) Position() int64 { return s.pos }

func (s *pdfScanner) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("seek out of range")
	}
	if err := s.ensure(offset); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *pdfScanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		return Token{}, err
	}
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Value: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Value: ">>", Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Value: string(c), Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Value: "[", Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenKeyword, Value: "]", Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumberOrRef()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Value: string(c), Pos: start}, nil
}

func (s *pdfScanner) skipWSAndComments() error {
	for {
		if err := s.ensure(s.pos); err != nil {
			return err
		}
		if s.pos >= int64(len(s.data)) {
			return io.EOF
		}
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for {
				s.pos++
				if err := s.ensure(s.pos); err != nil {
					return err
				}
				if s.pos >= int64(len(s.data)) {
					return io.EOF
				}
				if isEOL(s.data[s.pos]) {
					break
				}
			}
			continue
		}
		return nil
	}
}

func (s *pdfScanner) ensure(n int64) error {
	for int64(len(s.data)) <= n {
		if s.eof {
			return nil
		}
		if err := s.loadMore(); err != nil {
			return err
		}
	}
	return nil
}

func (s *pdfScanner) loadMore() error {
	buf := make([]byte, s.chunkSize)
	off := int64(len(s.data))
	n, err := s.reader.ReadAt(buf, off)
	if n > 0 {
		s.data = append(s.data, buf[:n]...)
	}
	if err == io.EOF || n == 0 {
		s.eof = true
		return nil
	}
	return err
}

func isNumberStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func isRegular(c byte) bool { return !isDelimiter(c) }

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isEOL(c byte) bool { return c == '\r' || c == '\n' }

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // '/'
	var out bytes.Buffer
	for {
		if err := s.ensure(s.pos); err != nil {
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' {
			s.pos++
			a := s.hexNibble()
			b := s.hexNibble()
			out.WriteByte((a << 4) | b)
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Value: out.String(), Pos: start}, nil
}

func (s *pdfScanner) hexNibble() byte {
	if s.ensure(s.pos) != nil || s.pos >= int64(len(s.data)) {
		return 0
	}
	c := s.data[s.pos]
	s.pos++
	return fromHex(c)
}

// scanLiteralString handles escapes, octal codes and nested parens
// per PDF 32000-1 7.3.4.2.
func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for {
		if err := s.ensure(s.pos); err != nil {
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			return Token{}, errors.New("unterminated literal string")
		}
		c := s.data[s.pos]
		if c == '\\' {
			s.pos++
			if err := s.ensure(s.pos); err != nil {
				return Token{}, err
			}
			if s.pos >= int64(len(s.data)) {
				return Token{}, errors.New("unterminated literal string")
			}
			esc := s.data[s.pos]
			if esc == '\r' { // line continuation
				s.pos++
				if s.ensure(s.pos) == nil && s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			}
			if esc == '\n' {
				s.pos++
				continue
			}
			if esc >= '0' && esc <= '7' { // octal, up to 3 digits
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2; k++ {
					if s.ensure(s.pos) != nil || s.pos >= int64(len(s.data)) {
						break
					}
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = (val << 3) + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
				continue
			}
			buf.WriteByte(translateEscape(esc))
			s.pos++
			continue
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth == 0 {
				s.pos++
				break
			}
		}
		buf.WriteByte(c)
		s.pos++
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, errors.New("literal string too long")
		}
	}
	return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	var hexbuf []byte
	for {
		if err := s.ensure(s.pos); err != nil {
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			return Token{}, errors.New("unterminated hex string")
		}
		c := s.data[s.pos]
		if c == '>' {
			s.pos++
			break
		}
		if isWhitespace(c) {
			s.pos++
			continue
		}
		hexbuf = append(hexbuf, c)
		s.pos++
		if s.cfg.MaxStringLength > 0 && int64(len(hexbuf)/2) > s.cfg.MaxStringLength {
			return Token{}, errors.New("hex string too long")
		}
	}
	if len(hexbuf)%2 == 1 {
		hexbuf = append(hexbuf, '0') // odd nibble count pads with zero
	}
	out := make([]byte, 0, len(hexbuf)/2)
	for i := 0; i < len(hexbuf); i += 2 {
		out = append(out, (fromHex(hexbuf[i])<<4)|fromHex(hexbuf[i+1]))
	}
	return Token{Type: TokenString, Value: out, Pos: start}, nil
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func (s *pdfScanner) peekAhead(n int64) byte {
	if s.ensure(s.pos+n) != nil || s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for {
		if err := s.ensure(s.pos); err != nil {
			return Token{}, err
		}
		if s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		buf.WriteByte(c)
		s.pos++
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Value: kw == "true", Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	default:
		return Token{Type: TokenKeyword, Value: kw, Pos: start}, nil
	}
}

// scanStream consumes the stream payload. With a length hint the payload
// is sliced directly; otherwise the data is searched for a plausible
// endstream marker on a whitespace boundary.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	if err := s.ensure(s.pos); err != nil {
		return Token{}, err
	}
	// PDF 7.3.8: the stream keyword is followed by an EOL before data.
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
	dataStart := s.pos

	if s.nextStreamLen >= 0 {
		l := s.nextStreamLen
		s.nextStreamLen = -1
		if s.cfg.MaxStreamLength > 0 && l > s.cfg.MaxStreamLength {
			return Token{}, errors.New("stream too long")
		}
		if err := s.ensure(dataStart + l); err != nil {
			return Token{}, err
		}
		if dataStart+l > int64(len(s.data)) {
			l = int64(len(s.data)) - dataStart
		}
		end := dataStart + l
		payload := append([]byte(nil), s.data[dataStart:end]...)
		s.pos = end
		s.skipToEndstream()
		return Token{Type: TokenStream, Value: payload, Pos: start}, nil
	}

	needle := []byte("endstream")
	for i := dataStart; ; i++ {
		if err := s.ensure(i + int64(len(needle))); err != nil {
			return Token{}, err
		}
		if i+int64(len(needle)) > int64(len(s.data)) {
			return Token{}, errors.New("endstream not found")
		}
		if s.cfg.MaxStreamLength > 0 && i-dataStart > s.cfg.MaxStreamLength {
			return Token{}, errors.New("stream too long")
		}
		if s.data[i] != 'e' || !bytes.Equal(s.data[i:i+int64(len(needle))], needle) {
			continue
		}
		prevOK := i == dataStart || isWhitespace(s.data[i-1])
		followOK := i+int64(len(needle)) >= int64(len(s.data)) || isDelimiter(s.data[i+int64(len(needle))])
		if !prevOK || !followOK {
			continue
		}
		end := i
		// EOL before the marker belongs to the syntax, not the payload.
		if end > dataStart && s.data[end-1] == '\n' {
			end--
		}
		if end > dataStart && s.data[end-1] == '\r' {
			end--
		}
		payload := append([]byte(nil), s.data[dataStart:end]...)
		s.pos = i + int64(len(needle))
		return Token{Type: TokenStream, Value: payload, Pos: start}, nil
	}
}

func (s *pdfScanner) skipToEndstream() {
	needle := []byte("endstream")
	if s.ensure(s.pos+int64(len(needle))) != nil {
		return
	}
	if idx := bytes.Index(s.data[s.pos:], needle); idx >= 0 {
		s.pos += int64(idx + len(needle))
	} else {
		s.pos = int64(len(s.data))
	}
}

func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	num1 := s.scanNumberString()
	if num1 == "" {
		s.pos++
		return Token{}, errors.New("invalid number")
	}
	// Lookahead for "G R" making this an indirect reference.
	afterFirst := s.pos
	s.skipWS()
	num2 := s.scanNumberString()
	if num2 != "" {
		s.skipWS()
		if s.ensure(s.pos) == nil && s.pos < int64(len(s.data)) && s.data[s.pos] == 'R' &&
			(s.peekAhead(1) == 0 || isDelimiter(s.peekAhead(1))) {
			s.pos++
			n1, _ := strconv.Atoi(num1)
			n2, _ := strconv.Atoi(num2)
			return Token{Type: TokenRef, Value: Ref{Num: n1, Gen: n2}, Pos: start}, nil
		}
	}
	s.pos = afterFirst
	if i, err := strconv.ParseInt(num1, 10, 64); err == nil {
		return Token{Type: TokenNumber, Value: i, Pos: start}, nil
	}
	f, err := strconv.ParseFloat(num1, 64)
	if err != nil {
		return Token{}, errors.New("invalid number: " + num1)
	}
	return Token{Type: TokenNumber, Value: f, Pos: start}, nil
}

func (s *pdfScanner) skipWS() {
	for s.ensure(s.pos) == nil && s.pos < int64(len(s.data)) && isWhitespace(s.data[s.pos]) {
		s.pos++
	}
}

func (s *pdfScanner) scanNumberString() string {
	start := s.pos
	var buf bytes.Buffer
	seenDigit := false
	for {
		if s.ensure(s.pos) != nil || s.pos >= int64(len(s.data)) {
			break
		}
		c := s.data[s.pos]
		if !isNumberStart(c) {
			break
		}
		if c >= '0' && c <= '9' {
			seenDigit = true
		}
		buf.WriteByte(c)
		s.pos++
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return buf.String()
}
