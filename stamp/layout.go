package stamp

// Layout constants of the institutional header block, in points.
// Text starts one inch in from the left edge and a quarter inch below
// the top of a Letter page.
const (
	layoutMarginX  = 72
	layoutTopDrop  = 18
	titleLeading   = 18
	fieldLeading   = 14.4
	sectionSpacing = 36

	titleSize  = 14
	fieldSize  = 12
	footerSize = 10
)

const (
	titleLine1 = "Instituto Vitalis de Saúde Feminina"
	titleLine2 = "Diagnóstico Hormonal Personalizado"
	titleLine3 = "Mapa da Cascata Hormonal e Nível de Estresse Endócrino"

	assessmentLine = "Tipo de Avaliação: Pré-Diagnóstico de Cascata Hormonal"
	footerLine     = "Relatório confidencial preparado com base nas suas respostas ao questionário de equilíbrio hormonal."
)

// CoverLayout is the header block stamped onto an uploaded cover page:
// a bold three-line title, the patient fields, and a confidential
// footer in oblique type.
func CoverLayout(name, phone, date string) []TextInstruction {
	return patientBlock(name, phone, date)
}

// ReportLayout is the same block rendered as a standalone single-page
// report instead of being composited onto an upload.
func ReportLayout(name, phone, date string) []TextInstruction {
	return patientBlock(name, phone, date)
}

func patientBlock(name, phone, date string) []TextInstruction {
	y := Letter.Height - layoutTopDrop
	var out []TextInstruction
	emit := func(text string, style Style, size, advance float64) {
		out = append(out, TextInstruction{
			Text:  text,
			Style: style,
			Size:  size,
			X:     layoutMarginX,
			Y:     y,
		})
		y -= advance
	}

	emit(titleLine1, StyleBold, titleSize, titleLeading)
	emit(titleLine2, StyleBold, titleSize, titleLeading)
	emit(titleLine3, StyleBold, titleSize, sectionSpacing)

	emit("Nome: "+name, StyleRegular, fieldSize, fieldLeading)
	emit("Telefone: "+phone, StyleRegular, fieldSize, fieldLeading)
	emit("Data: "+date, StyleRegular, fieldSize, fieldLeading)
	emit(assessmentLine, StyleRegular, fieldSize, sectionSpacing)

	emit(footerLine, StyleOblique, footerSize, 0)
	return out
}
