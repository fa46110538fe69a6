package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/exampaper/internal/i18n"
	"github.com/pavelanni/exampaper/internal/model"
)

const printCSS = `@page { size: A4; margin: 20mm 18mm 22mm 18mm; @bottom-center { content: "%s " counter(page) " %s " counter(pages); font-size: 9pt; } }
body { font-family: "Times New Roman", Times, serif; font-size: 11pt; color: #000; margin: 0; }
header { text-align: center; border-bottom: 2px solid #000; padding-bottom: 12px; margin-bottom: 16px; }
header h1 { font-size: 16pt; margin: 0 0 4px; }
header h2, header h3 { font-size: 12pt; margin: 0 0 4px; }
.details { display: grid; grid-template-columns: 1fr 1fr; gap: 4px 24px; margin-bottom: 16px; }
.instructions, .examiner { border: 1px solid #000; padding: 8px 12px; margin-bottom: 16px; }
.examiner { background: #fefce8; }
section { margin-bottom: 20px; }
section h4 { font-size: 12pt; margin: 0 0 8px; }
.hint { font-style: italic; margin: 0 0 8px; }
.question { display: flex; gap: 6px; margin-bottom: 14px; break-inside: avoid; page-break-inside: avoid; }
.question .body { flex: 1; }
.options { margin-left: 16px; }
.correct { font-weight: bold; }
.line { border-bottom: 1px solid #555; height: 22px; }
footer { border-top: 2px solid #000; margin-top: 24px; padding-top: 8px; text-align: center; font-weight: bold; }
@media print { body { -webkit-print-color-adjust: exact; print-color-adjust: exact; } }
`

// ExamHTML renders the student-facing exam as a standalone print-ready page.
func ExamHTML(l Layout) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{ctx: ctx}
		p.open(l, "")
		p.details(l.Settings)
		p.instructions()
		for _, sec := range l.Sections {
			p.sectionStart(sec)
			p.hint(sec.Type)
			for _, it := range sec.Items {
				p.examItem(it)
			}
			p.raw("</section>\n")
		}
		p.close("EndOfExamination")
		return p.flush(w)
	})
}

// AnswerSheetHTML renders the examiner-facing answer sheet.
func AnswerSheetHTML(l Layout) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{ctx: ctx}
		p.open(l, " - "+p.t("AnswerSheet"))
		p.raw(`<div class="examiner"><strong>`)
		p.text(p.t("ExaminerOnly"))
		p.raw(`</strong><br>`)
		p.text(p.t("ExaminerOnlyNote"))
		p.raw("</div>\n")
		for _, sec := range l.Sections {
			p.sectionStart(sec)
			for _, it := range sec.Items {
				p.answerItem(it)
			}
			p.raw("</section>\n")
		}
		p.close("EndOfAnswerSheet")
		return p.flush(w)
	})
}

// HTML picks the component for l.Kind.
func HTML(l Layout) templ.Component {
	if l.Kind == KindAnswers {
		return AnswerSheetHTML(l)
	}
	return ExamHTML(l)
}

// printer accumulates the page in memory so a partial document is never
// written on error.
type printer struct {
	ctx context.Context
	sb  strings.Builder
}

func (p *printer) t(id string) string {
	return appI18n.T(p.ctx, id)
}

func (p *printer) raw(s string) {
	p.sb.WriteString(s)
}

func (p *printer) text(s string) {
	p.sb.WriteString(templ.EscapeString(s))
}

func (p *printer) flush(w io.Writer) error {
	_, err := io.WriteString(w, p.sb.String())
	return err
}

func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "<", `\3c `, "\n", " ").Replace(s)
}

func (p *printer) open(l Layout, suffix string) {
	s := l.Settings
	p.raw("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	p.text(strings.TrimSpace(s.Subject + " " + s.ExamType + suffix))
	p.raw("</title><style>")
	p.raw(fmt.Sprintf(printCSS, cssString(p.t("Page")), cssString(p.t("PageOf"))))
	p.raw("</style></head><body>\n<header><h1>")
	p.text(s.InstitutionName)
	p.raw("</h1><h2>")
	p.text(s.ExamType + suffix)
	p.raw("</h2><h3>")
	p.text(s.Subject)
	if s.GradeLevel != "" {
		p.text(" - " + s.GradeLevel)
	}
	p.raw("</h3></header>\n")
}

func (p *printer) close(endID string) {
	p.raw("<footer>")
	p.text(p.t(endID))
	p.raw("</footer>\n</body></html>\n")
}

func (p *printer) field(labelID, value string) {
	p.raw("<div><strong>")
	p.text(p.t(labelID))
	p.raw(":</strong> ")
	if value == "" {
		value = "_______________"
	}
	p.text(value)
	p.raw("</div>")
}

func (p *printer) details(s model.ExamSettings) {
	p.raw(`<div class="details">`)
	p.field("Date", "")
	p.field("StudentName", s.StudentName)
	p.field("Time", appI18n.Tp(p.ctx, "Hours", s.Duration))
	p.field("StudentID", s.StudentID)
	p.field("TotalMarks", strconv.Itoa(s.TotalMarks))
	p.field("Batch", s.Batch)
	p.raw("</div>\n")
}

var instructionIDs = []string{
	"InstructionAnswerAll",
	"InstructionShowWorking",
	"InstructionCalculator",
	"InstructionPen",
	"InstructionReadCarefully",
}

func (p *printer) instructions() {
	p.raw(`<div class="instructions"><strong>`)
	p.text(p.t("Instructions"))
	p.raw("</strong><ul>")
	for _, id := range instructionIDs {
		p.raw("<li>")
		p.text(p.t(id))
		p.raw("</li>")
	}
	p.raw("</ul></div>\n")
}

func sectionTitleID(t model.QuestionType) string {
	switch t {
	case model.MultipleChoice:
		return "SectionMultipleChoice"
	case model.YesNo:
		return "SectionYesNo"
	default:
		return "SectionTextAnswer"
	}
}

func (p *printer) sectionStart(sec Section) {
	p.raw("<section><h4>")
	p.text(appI18n.Td(p.ctx, "SectionHeading", map[string]any{
		"Letter": sec.Letter,
		"Title":  p.t(sectionTitleID(sec.Type)),
		"Marks":  sec.Marks,
	}))
	p.raw("</h4>\n")
}

func (p *printer) hint(t model.QuestionType) {
	var id string
	switch t {
	case model.MultipleChoice:
		id = "HintMultipleChoice"
	case model.YesNo:
		id = "HintYesNo"
	default:
		return
	}
	p.raw(`<p class="hint">`)
	p.text(p.t(id))
	p.raw("</p>\n")
}

func (p *printer) itemStart(it Item) {
	p.raw(`<div class="question"><span>`)
	p.text(strconv.Itoa(it.Number) + ".")
	p.raw(`</span><div class="body"><p>`)
	p.text(it.Prompt)
}

func (p *printer) examItem(it Item) {
	p.itemStart(it)
	p.raw(" <strong>")
	p.text(appI18n.Tp(p.ctx, "MarksBracket", it.Marks))
	p.raw("</strong></p>")
	switch it.Type {
	case model.MultipleChoice:
		p.raw(`<div class="options">`)
		for _, o := range it.Options {
			p.raw("<div><strong>")
			p.text(o.Letter + ")")
			p.raw("</strong> ")
			p.text(o.Text)
			p.raw("</div>")
		}
		p.raw("</div>")
	case model.YesNo:
		p.raw(`<div class="options">○ `)
		p.text(p.t("Yes"))
		p.raw(" &nbsp; ○ ")
		p.text(p.t("No"))
		p.raw("</div>")
	case model.TextAnswer:
		for range it.AnswerLines {
			p.raw(`<div class="line"></div>`)
		}
	}
	p.raw("</div></div>\n")
}

func (p *printer) answerItem(it Item) {
	p.itemStart(it)
	p.raw("</p>")
	na := p.t("NotAvailable")
	switch it.Type {
	case model.MultipleChoice:
		p.raw("<p><strong>")
		p.text(p.t("CorrectAnswer") + ": " + orDefault(it.Answer, na))
		p.raw(`</strong></p><div class="options">`)
		for _, o := range it.Options {
			if o.Correct {
				p.raw(`<div class="correct">`)
				p.text(o.Letter + ") " + o.Text + " ✓")
			} else {
				p.raw("<div>")
				p.text(o.Letter + ") " + o.Text)
			}
			p.raw("</div>")
		}
		p.raw("</div>")
	case model.YesNo:
		p.raw("<p><strong>")
		p.text(p.t("CorrectAnswer") + ": " + orDefault(it.Answer, na))
		p.raw("</strong></p>")
	case model.TextAnswer:
		p.raw("<p><strong>")
		p.text(p.t("ModelAnswer") + ":")
		p.raw("</strong> ")
		p.text(orDefault(it.Answer, na))
		p.raw("</p>")
	}
	p.raw("<p>")
	p.text(appI18n.Tp(p.ctx, "MarksLine", it.Marks))
	p.raw("</p></div></div>\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
