package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentFormat tags one of the upload formats the service accepts. The set
// is closed: every format has exactly one extraction handler.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatTXT  DocumentFormat = "txt"
	FormatRTF  DocumentFormat = "rtf"
	FormatJPG  DocumentFormat = "jpg"
	FormatJPEG DocumentFormat = "jpeg"
	FormatPNG  DocumentFormat = "png"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
)

// OptionLetters is the fixed option key set, in display order.
var OptionLetters = []string{"A", "B", "C", "D"}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is one multiple-choice question. Build it with NewQuestion: a
// question missing an option or carrying an answer letter outside A-D is not
// constructible.
type Question struct {
	ID          int      `json:"id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

func NewQuestion(id int, text string, options map[string]string, answer, explanation string) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, fmt.Errorf("question %d: empty question text", id)
	}

	opts := make([]Option, 0, len(OptionLetters))
	for _, letter := range OptionLetters {
		optText := strings.TrimSpace(options[letter])
		if optText == "" {
			return Question{}, fmt.Errorf("question %d: missing option %s", id, letter)
		}
		opts = append(opts, Option{Letter: letter, Text: optText})
	}

	if !ValidAnswerLetter(answer) {
		return Question{}, fmt.Errorf("question %d: invalid answer letter %q", id, answer)
	}

	return Question{
		ID:          id,
		Text:        text,
		Options:     opts,
		Answer:      answer,
		Explanation: strings.TrimSpace(explanation),
	}, nil
}

// ValidAnswerLetter reports whether letter is exactly one of A, B, C or D.
func ValidAnswerLetter(letter string) bool {
	for _, l := range OptionLetters {
		if letter == l {
			return true
		}
	}
	return false
}

// OptionText returns the text behind an option letter.
func (q Question) OptionText(letter string) (string, bool) {
	for _, opt := range q.Options {
		if opt.Letter == letter {
			return opt.Text, true
		}
	}
	return "", false
}

// QuestionPool is the fixed set of questions one generation run produced.
// Sessions sample from it; nothing mutates it after parsing.
type QuestionPool struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"-"`
	SourceFile string     `json:"source_file"`
	Questions  []Question `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (p *QuestionPool) Size() int {
	return len(p.Questions)
}

// GenerationRequest carries everything the generation client needs for one
// call. UserID is opaque and used for audit fields only.
type GenerationRequest struct {
	Text         string
	NumQuestions int
	UserID       string
}

// GenerationResult is the raw outcome of one generation call, before parsing.
type GenerationResult struct {
	Raw          string
	Model        string
	ContentChars int
	Truncated    bool
}

type CreateQuizRequest struct {
	File         []byte
	Filename     string
	Size         int64
	NumQuestions int
	UserID       string
}

type CreateQuizResponse struct {
	PoolID        string `json:"pool_id"`
	RunID         string `json:"run_id"`
	Filename      string `json:"filename"`
	QuestionCount int    `json:"question_count"`
	DroppedBlocks int    `json:"dropped_blocks,omitempty"`
	Message       string `json:"message"`
}

// QuestionView is the caller-facing question shape: no answer letter, no
// explanation.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

type SessionView struct {
	SessionID string        `json:"session_id"`
	PoolID    string        `json:"pool_id,omitempty"`
	State     string        `json:"state"`
	Position  int           `json:"position,omitempty"`
	Total     int           `json:"total"`
	Question  *QuestionView `json:"question,omitempty"`
	Selected  string        `json:"selected,omitempty"`
}

// ScoreReport is derived from a completed session on demand; it is never
// stored.
type ScoreReport struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	AvgSeconds float64 `json:"avg_seconds_per_question"`
}

type AnswerReview struct {
	QuestionID  int      `json:"question_id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Selected    string   `json:"selected"`
	Correct     string   `json:"correct"`
	IsCorrect   bool     `json:"is_correct"`
	Explanation string   `json:"explanation,omitempty"`
	Seconds     float64  `json:"seconds"`
}
