package generator

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MinContentChars is the least extracted text that can seed a meaningful
	// quiz. Shorter input fails before any network call.
	MinContentChars = 10

	// MaxContentChars bounds how much extracted text is embedded in the
	// prompt. Text beyond the bound is dropped, not summarized.
	MaxContentChars = 8000
)

const promptTemplate = `Create exactly %d multiple-choice questions from the content below.

Write every question in this exact format:

Q<number>: <question text>
A. <option text>
B. <option text>
C. <option text>
D. <option text>
Answer: <letter>
Explanation: <one sentence on why the answer is correct>

Example:
Q1: What is 2+2?
A. 3
B. 4
C. 5
D. 6
Answer: B
Explanation: Adding two and two gives four.

Rules:
- Exactly four options per question, labeled A. B. C. D.
- The Answer line holds a single letter: A, B, C or D.
- Number the questions Q1 through Q%d.
- Output nothing before the first question or after the last explanation.

Content:
%s`

// buildPrompt renders the instruction block. Same inputs, same prompt.
func buildPrompt(content string, numQuestions int) string {
	return fmt.Sprintf(promptTemplate, numQuestions, numQuestions, content)
}

// boundContent enforces MaxContentChars, cutting on a rune boundary.
func boundContent(text string) (string, bool) {
	if len(text) <= MaxContentChars {
		return text, false
	}

	cut := MaxContentChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
