// Package prompts builds the question generation prompt from an embedded
// template.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/exampaper/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// MaxSourceRunes caps the source text sent with one request.
const MaxSourceRunes = 24000

var (
	sourceDocumentRegex     = regexp.MustCompile(`(?i)</?\s*source-document\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

var (
	loadOnce    sync.Once
	loadErr     error
	generateTpl *template.Template
)

// Document is one source document as it appears in the prompt.
type Document struct {
	Title   string
	Content string
}

// GenerateData holds template data for the generation prompt.
type GenerateData struct {
	Type       string
	TypeName   string
	Difficulty string
	Count      int
	Documents  []Document
}

func load() error {
	loadOnce.Do(func() {
		content, err := templateFS.ReadFile("templates/generate.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt template: %w", err)
			return
		}
		generateTpl, loadErr = template.New("generate").Parse(string(content))
		if loadErr != nil {
			loadErr = fmt.Errorf("parse prompt template: %w", loadErr)
		}
	})
	return loadErr
}

func typeName(t model.QuestionType) string {
	switch t {
	case model.MultipleChoice:
		return "multiple choice"
	case model.YesNo:
		return "yes/no"
	default:
		return "short answer"
	}
}

// BuildGeneratePrompt renders the prompt for count questions of type t. The
// external type label is what the model is asked to echo back.
func BuildGeneratePrompt(t model.QuestionType, externalType string, d model.Difficulty, count int, docs []model.SourceDocument) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", errors.New("no source documents")
	}

	data := GenerateData{
		Type:       externalType,
		TypeName:   typeName(t),
		Difficulty: string(d),
		Count:      count,
	}
	budget := MaxSourceRunes
	for _, doc := range docs {
		content := sanitizeSource(doc.Content, budget)
		budget -= utf8.RuneCountInString(content)
		data.Documents = append(data.Documents, Document{Title: sanitizeTitle(doc.Title), Content: content})
		if budget <= 0 {
			break
		}
	}

	var buf bytes.Buffer
	if err := generateTpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeSource strips the delimiting tags from source text and truncates
// it to at most limit runes.
func sanitizeSource(text string, limit int) string {
	text = sourceDocumentRegex.ReplaceAllString(text, "")
	text = systemInstructionsRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[Empty document]"
	}
	if limit > 0 && utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		text = string(runes[:limit]) + "\n\n[Document truncated due to length]"
	}
	return text
}

func sanitizeTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '"', '<', '>', '\n', '\r':
			return ' '
		}
		return r
	}, title)
	return strings.TrimSpace(title)
}
