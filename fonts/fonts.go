// Package fonts carries AFM metrics for the standard Helvetica faces.
// Text handed to these helpers is WinAnsi-encoded; widths are expressed
// in 1/1000 of the font size, the glyph-space convention of Type1 AFM
// files.
package fonts

import "fmt"

// Standard face names understood by every conforming PDF reader.
const (
	Helvetica        = "Helvetica"
	HelveticaBold    = "Helvetica-Bold"
	HelveticaOblique = "Helvetica-Oblique"
)

// IsStandard reports whether base names a face this engine has metrics for.
func IsStandard(base string) bool {
	switch base {
	case Helvetica, HelveticaBold, HelveticaOblique:
		return true
	default:
		return false
	}
}

// TextWidth measures a WinAnsi-encoded string at the given size, in
// user-space units.
func TextWidth(base string, s []byte, size float64) (float64, error) {
	widths, err := faceWidths(base)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, code := range s {
		total += glyphWidth(widths, code)
	}
	return float64(total) / 1000 * size, nil
}

func faceWidths(base string) (*[95]int, error) {
	switch base {
	case Helvetica, HelveticaOblique:
		// The oblique face shares the upright advance widths.
		return &helveticaWidths, nil
	case HelveticaBold:
		return &helveticaBoldWidths, nil
	default:
		return nil, fmt.Errorf("no metrics for face %q", base)
	}
}

func glyphWidth(widths *[95]int, code byte) int {
	if code >= 32 && code <= 126 {
		return widths[code-32]
	}
	if base, ok := winAnsiFold[code]; ok {
		return widths[base-32]
	}
	return defaultGlyphWidth
}

// Unmapped high codes measure as a typical lowercase glyph; the layout
// here never depends on them being exact.
const defaultGlyphWidth = 556

// helveticaWidths holds AFM advance widths for codes 32..126.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, // space ! " # $ % & ' ( )
	389, 584, 278, 333, 278, 278, 556, 556, 556, 556, // * + , - . / 0 1 2 3
	556, 556, 556, 556, 556, 556, 278, 278, 584, 584, // 4 5 6 7 8 9 : ; < =
	584, 556, 1015, 667, 667, 722, 722, 667, 611, 778, // > ? @ A B C D E F G
	722, 278, 500, 667, 556, 833, 722, 778, 667, 778, // H I J K L M N O P Q
	722, 667, 611, 722, 667, 944, 667, 667, 611, 278, // R S T U V W X Y Z [
	278, 278, 469, 556, 333, 556, 556, 500, 556, 556, // \ ] ^ _ ` a b c d e
	278, 556, 556, 222, 222, 500, 222, 833, 556, 556, // f g h i j k l m n o
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, // p q r s t u v w x y
	500, 334, 260, 334, 584, // z { | } ~
}

// helveticaBoldWidths holds AFM advance widths for codes 32..126.
var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, // space ! " # $ % & ' ( )
	389, 584, 278, 333, 278, 278, 556, 556, 556, 556, // * + , - . / 0 1 2 3
	556, 556, 556, 556, 556, 556, 333, 333, 584, 584, // 4 5 6 7 8 9 : ; < =
	584, 611, 975, 722, 722, 722, 722, 667, 611, 778, // > ? @ A B C D E F G
	722, 278, 556, 722, 611, 833, 722, 778, 667, 778, // H I J K L M N O P Q
	722, 667, 611, 722, 667, 944, 667, 667, 611, 333, // R S T U V W X Y Z [
	278, 333, 584, 556, 333, 556, 611, 556, 611, 556, // \ ] ^ _ ` a b c d e
	333, 611, 611, 278, 278, 556, 278, 889, 611, 611, // f g h i j k l m n o
	611, 611, 389, 556, 333, 611, 556, 778, 556, 556, // p q r s t u v w x y
	500, 389, 280, 389, 584, // z { | } ~
}

// winAnsiFold maps accented WinAnsi codes to the unaccented glyph whose
// advance width they share in the Helvetica AFM data.
var winAnsiFold = map[byte]byte{
	0xC0: 'A', 0xC1: 'A', 0xC2: 'A', 0xC3: 'A', 0xC4: 'A', 0xC5: 'A',
	0xC7: 'C',
	0xC8: 'E', 0xC9: 'E', 0xCA: 'E', 0xCB: 'E',
	0xCC: 'I', 0xCD: 'I', 0xCE: 'I', 0xCF: 'I',
	0xD1: 'N',
	0xD2: 'O', 0xD3: 'O', 0xD4: 'O', 0xD5: 'O', 0xD6: 'O',
	0xD9: 'U', 0xDA: 'U', 0xDB: 'U', 0xDC: 'U',
	0xDD: 'Y',
	0xE0: 'a', 0xE1: 'a', 0xE2: 'a', 0xE3: 'a', 0xE4: 'a', 0xE5: 'a',
	0xE7: 'c',
	0xE8: 'e', 0xE9: 'e', 0xEA: 'e', 0xEB: 'e',
	0xEC: 'i', 0xED: 'i', 0xEE: 'i', 0xEF: 'i',
	0xF1: 'n',
	0xF2: 'o', 0xF3: 'o', 0xF4: 'o', 0xF5: 'o', 0xF6: 'o',
	0xF9: 'u', 0xFA: 'u', 0xFB: 'u', 0xFC: 'u',
	0xFD: 'y', 0xFF: 'y',
	0xAA: 'a', // ordfeminine approximates lowercase a
	0xBA: 'o', // ordmasculine
}
