package scanner

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func scanAll(t *testing.T, input string) []Token {
	t.Helper()
	s := New(strings.NewReader(input), Config{})
	var tokens []Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return tokens
		}
		if err != nil {
			t.Fatalf("scan %q: %v", input, err)
		}
		tokens = append(tokens, tok)
	}
}

func TestScanDictTokens(t *testing.T) {
	tokens := scanAll(t, "<< /Type /Page /Count 2 /Kids [3 0 R] >>")

	types := []TokenType{
		TokenDict, TokenName, TokenName, TokenName, TokenNumber,
		TokenName, TokenArray, TokenRef, TokenKeyword, TokenKeyword,
	}
	if len(tokens) != len(types) {
		t.Fatalf("expected %d tokens, got %d: %#v", len(types), len(tokens), tokens)
	}
	for i, want := range types {
		if tokens[i].Type != want {
			t.Fatalf("token %d: expected type %v, got %v", i, want, tokens[i].Type)
		}
	}
	if ref := tokens[7].Value.(Ref); ref.Num != 3 || ref.Gen != 0 {
		t.Fatalf("expected ref 3 0, got %+v", ref)
	}
}

func TestScanNumbers(t *testing.T) {
	tokens := scanAll(t, "42 -7 3.14 .5")
	wants := []interface{}{int64(42), int64(-7), 3.14, 0.5}
	if len(tokens) != len(wants) {
		t.Fatalf("expected %d tokens, got %d", len(wants), len(tokens))
	}
	for i, want := range wants {
		if tokens[i].Value != want {
			t.Fatalf("token %d: expected %v, got %v", i, want, tokens[i].Value)
		}
	}
}

func TestObjHeaderIsNotARef(t *testing.T) {
	tokens := scanAll(t, "12 0 obj null endobj")
	if tokens[0].Type != TokenNumber || tokens[0].Value != int64(12) {
		t.Fatalf("expected number 12, got %#v", tokens[0])
	}
	if tokens[1].Type != TokenNumber || tokens[2].Type != TokenKeyword || tokens[2].Value != "obj" {
		t.Fatalf("obj header mis-scanned: %#v", tokens[:3])
	}
}

func TestScanLiteralStringEscapes(t *testing.T) {
	tokens := scanAll(t, `(a\(b\)c\\d\101 (nested)) (line\nbreak)`)
	if len(tokens) != 2 {
		t.Fatalf("expected 2 strings, got %d", len(tokens))
	}
	if got := string(tokens[0].Value.([]byte)); got != `a(b)c\dA (nested)` {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := string(tokens[1].Value.([]byte)); got != "line\nbreak" {
		t.Fatalf("unexpected string: %q", got)
	}
}

func TestScanHexString(t *testing.T) {
	tokens := scanAll(t, "<48 65 6C6C6F> <48656C6C6F7>")
	if got := string(tokens[0].Value.([]byte)); got != "Hello" {
		t.Fatalf("hex string: %q", got)
	}
	// Odd nibble count pads with zero.
	if got := tokens[1].Value.([]byte); got[len(got)-1] != 0x70 {
		t.Fatalf("expected trailing 0x70, got % x", got)
	}
}

func TestScanNameWithHexEscape(t *testing.T) {
	tokens := scanAll(t, "/A#20B /Name")
	if got := tokens[0].Value.(string); got != "A B" {
		t.Fatalf("expected name %q, got %q", "A B", got)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	tokens := scanAll(t, "% header comment\n42 % trailing\n43")
	if len(tokens) != 2 || tokens[0].Value != int64(42) || tokens[1].Value != int64(43) {
		t.Fatalf("comments leaked into tokens: %#v", tokens)
	}
}

func TestScanStreamWithLengthHint(t *testing.T) {
	input := "stream\nHELLO endstream WORLD\nendstream 7"
	s := New(strings.NewReader(input), Config{})
	s.SetNextStreamLength(21)

	tok, err := s.Next()
	if err != nil {
		t.Fatalf("scan stream: %v", err)
	}
	if tok.Type != TokenStream {
		t.Fatalf("expected stream token, got %v", tok.Type)
	}
	// The hint lets a payload containing the word endstream survive.
	if got := string(tok.Value.([]byte)); got != "HELLO endstream WORLD" {
		t.Fatalf("payload %q", got)
	}

	next, err := s.Next()
	if err != nil {
		t.Fatalf("token after stream: %v", err)
	}
	if next.Type != TokenNumber || next.Value != int64(7) {
		t.Fatalf("expected number 7 after endstream, got %#v", next)
	}
}

func TestScanStreamWithoutHint(t *testing.T) {
	input := "stream\r\npayload bytes\nendstream"
	s := New(strings.NewReader(input), Config{})

	tok, err := s.Next()
	if err != nil {
		t.Fatalf("scan stream: %v", err)
	}
	if got := string(tok.Value.([]byte)); got != "payload bytes" {
		t.Fatalf("payload %q", got)
	}
}

func TestStringLimit(t *testing.T) {
	s := New(bytes.NewReader([]byte("("+strings.Repeat("x", 64)+")")), Config{MaxStringLength: 16})
	if _, err := s.Next(); err == nil {
		t.Fatalf("expected string limit error")
	}
}
