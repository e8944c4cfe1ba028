package writer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/institutovitalis/pdfstamp/ir/raw"
	"github.com/institutovitalis/pdfstamp/ir/semantic"
)

func serializeIndirect(buf *bytes.Buffer, ref raw.ObjectRef, obj raw.Object) {
	fmt.Fprintf(buf, "%d %d obj\n", ref.Num, ref.Gen)
	serializeObject(buf, obj)
	buf.WriteString("\nendobj\n")
}

func serializeObject(buf *bytes.Buffer, obj raw.Object) {
	switch o := obj.(type) {
	case raw.Name:
		buf.WriteByte('/')
		writeNameBytes(buf, string(o))
	case raw.Number:
		buf.WriteString(formatNumber(o))
	case raw.Bool:
		if o {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case raw.Null, nil:
		buf.WriteString("null")
	case raw.String:
		writeLiteralString(buf, []byte(o))
	case raw.Reference:
		fmt.Fprintf(buf, "%d %d R", o.R.Num, o.R.Gen)
	case *raw.Array:
		buf.WriteByte('[')
		for i, it := range o.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			serializeObject(buf, it)
		}
		buf.WriteByte(']')
	case *raw.Dict:
		serializeDict(buf, o)
	case *raw.Stream:
		serializeDict(buf, o.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(o.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

func serializeDict(buf *bytes.Buffer, d *raw.Dict) {
	buf.WriteString("<<")
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte('/')
		writeNameBytes(buf, k)
		buf.WriteByte(' ')
		serializeObject(buf, d.KV[k])
	}
	buf.WriteString(">>")
}

// writeNameBytes emits a name with #xx escapes for delimiters and
// non-regular characters.
func writeNameBytes(buf *bytes.Buffer, name string) {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7f || isDelimiter(c) || c == '#' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func writeLiteralString(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func formatNumber(n raw.Number) string {
	if n.IsInt {
		return strconv.FormatInt(n.I, 10)
	}
	return formatFloat(n.F)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = trimTrailingZeros(s)
	return s
}

func trimTrailingZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

// serializeContent flattens typed content operations into content
// stream bytes. rename substitutes resource names in Tf and gs
// operands when the writer had to avoid a collision.
func serializeContent(streams []semantic.ContentStream, rename map[string]string) []byte {
	var buf bytes.Buffer
	for _, cs := range streams {
		for _, op := range cs.Operations {
			for i, arg := range op.Operands {
				if i > 0 {
					buf.WriteByte(' ')
				}
				serializeOperand(&buf, arg, op.Operator, i, rename)
			}
			if len(op.Operands) > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(op.Operator)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func serializeOperand(buf *bytes.Buffer, arg semantic.Operand, operator string, pos int, rename map[string]string) {
	switch v := arg.(type) {
	case semantic.NumberOperand:
		buf.WriteString(formatFloat(v.Value))
	case semantic.NameOperand:
		name := v.Value
		if pos == 0 && (operator == "Tf" || operator == "gs") {
			if mapped, ok := rename[name]; ok {
				name = mapped
			}
		}
		buf.WriteByte('/')
		writeNameBytes(buf, name)
	case semantic.StringOperand:
		writeLiteralString(buf, v.Value)
	}
}
