package fonts

import (
	"math"
	"testing"
)

func TestTextWidthHelvetica(t *testing.T) {
	// T=611 E=667 S=667 T=611 E=667 from the AFM table.
	want := float64(611+667+667+611+667) / 1000 * 12
	got, err := TextWidth(Helvetica, []byte("TESTE"), 12)
	if err != nil {
		t.Fatalf("TextWidth failed: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected width %.3f, got %.3f", want, got)
	}
}

func TestTextWidthBoldDiffersFromRegular(t *testing.T) {
	regular, err := TextWidth(Helvetica, []byte("ia"), 10)
	if err != nil {
		t.Fatalf("regular width: %v", err)
	}
	bold, err := TextWidth(HelveticaBold, []byte("ia"), 10)
	if err != nil {
		t.Fatalf("bold width: %v", err)
	}
	if bold <= regular {
		t.Fatalf("expected bold i+a wider than regular, got %.3f <= %.3f", bold, regular)
	}
}

func TestObliqueSharesRegularWidths(t *testing.T) {
	regular, _ := TextWidth(Helvetica, []byte("Instituto"), 14)
	oblique, _ := TextWidth(HelveticaOblique, []byte("Instituto"), 14)
	if regular != oblique {
		t.Fatalf("oblique widths diverged: %.3f vs %.3f", oblique, regular)
	}
}

func TestAccentedCodesFoldToBaseLetter(t *testing.T) {
	// 0xE9 is eacute in WinAnsi and shares the advance width of e.
	accented, _ := TextWidth(Helvetica, []byte{0xE9}, 10)
	base, _ := TextWidth(Helvetica, []byte("e"), 10)
	if accented != base {
		t.Fatalf("eacute width %.3f, want %.3f", accented, base)
	}
}

func TestTextWidthUnknownFace(t *testing.T) {
	if _, err := TextWidth("Comic-Sans", []byte("x"), 10); err == nil {
		t.Fatalf("expected error for unknown face")
	}
}

func TestIsStandard(t *testing.T) {
	for _, face := range []string{Helvetica, HelveticaBold, HelveticaOblique} {
		if !IsStandard(face) {
			t.Fatalf("%s should be standard", face)
		}
	}
	if IsStandard("Times-Roman") {
		t.Fatalf("Times-Roman has no metrics here")
	}
}
