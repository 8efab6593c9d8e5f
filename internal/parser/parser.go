package parser

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

// ErrNoValidQuestions means the generation output contained no block that
// could become a complete question.
var ErrNoValidQuestions = errors.New("no valid questions found in generation output")

const (
	answerPrefix      = "Answer:"
	explanationPrefix = "Explanation:"
)

// block accumulates one Q<n>: chunk while scanning.
type block struct {
	text        string
	options     map[string]string
	answer      string
	explanation string
}

func (b *block) build(id int) (models.Question, error) {
	return models.NewQuestion(id, b.text, b.options, b.answer, b.explanation)
}

// Parse splits raw generation output into question blocks and keeps the
// well-formed ones. A block opens at a line starting with "Q<number>:" and
// closes at the next marker or end of input; inside a block each line is
// classified by prefix (A./B./C./D., Answer:, Explanation:) and anything
// else is ignored. Questions come back in block order with ids from 1, along
// with the count of malformed blocks that were dropped. ErrNoValidQuestions
// is returned only when nothing at all survived.
func Parse(raw string) ([]models.Question, int, error) {
	var (
		questions []models.Question
		dropped   int
		current   *block
	)

	flush := func() {
		if current == nil {
			return
		}
		q, err := current.build(len(questions) + 1)
		if err != nil {
			dropped++
		} else {
			questions = append(questions, q)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if rest, ok := cutQuestionMarker(line); ok {
			flush()
			current = &block{text: rest, options: make(map[string]string)}
			continue
		}
		if current == nil {
			// Preamble before the first marker.
			continue
		}

		switch {
		case hasOptionPrefix(line):
			current.options[line[:1]] = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, answerPrefix):
			current.answer = answerLetter(line[len(answerPrefix):])
		case strings.HasPrefix(line, explanationPrefix):
			current.explanation = strings.TrimSpace(line[len(explanationPrefix):])
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, dropped, fmt.Errorf("failed to scan generation output: %w", err)
	}

	if len(questions) == 0 {
		return nil, dropped, ErrNoValidQuestions
	}

	return questions, dropped, nil
}

// cutQuestionMarker matches "Q<number>:" at the start of a line and returns
// the text after the marker.
func cutQuestionMarker(line string) (string, bool) {
	if len(line) < 3 || line[0] != 'Q' {
		return "", false
	}

	i := 1
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(line) || line[i] != ':' {
		return "", false
	}

	return strings.TrimSpace(line[i+1:]), true
}

func hasOptionPrefix(line string) bool {
	if len(line) < 2 || line[1] != '.' {
		return false
	}
	switch line[0] {
	case 'A', 'B', 'C', 'D':
		return true
	}
	return false
}

// answerLetter applies the answer-line contract: the first character strictly
// in {A,B,C,D} after the prefix wins. Lowercase letters never match; a line
// naming no such character means no answer.
func answerLetter(rest string) string {
	for _, r := range rest {
		switch r {
		case 'A', 'B', 'C', 'D':
			return string(r)
		}
	}
	return ""
}
