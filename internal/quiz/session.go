package quiz

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

// State names one phase of a session's lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSampled    State = "sampled"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// SessionError reports an operation that is not legal in the session's
// current state.
type SessionError struct {
	Op     string
	State  State
	Reason string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s (session state: %s)", e.Op, e.Reason, e.State)
}

// Session walks one actor through a sampled sequence of questions. It is not
// safe for concurrent use; callers serialize access.
type Session struct {
	id        string
	pool      *models.QuestionPool
	requested int

	sample    []models.Question
	cursor    int
	answers   map[int]string
	elapsed   map[int]time.Duration
	enteredAt time.Time

	state State
	rng   *rand.Rand
	now   func() time.Time
}

// NewSession returns an Idle session.
func NewSession(id string) *Session {
	return &Session{
		id:    id,
		state: StateIdle,
		rng:   rand.New(rand.NewSource(rand.Int63())),
		now:   time.Now,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) PoolID() string {
	if s.pool == nil {
		return ""
	}
	return s.pool.ID
}

// Position reports the 1-based cursor position and the sample size.
func (s *Session) Position() (int, int) {
	if len(s.sample) == 0 {
		return 0, 0
	}
	if s.state == StateCompleted {
		return len(s.sample), len(s.sample)
	}
	return s.cursor + 1, len(s.sample)
}

// Start draws min(requested, pool size) questions without replacement and
// moves Idle -> Sampled. Every drawn question is a copy with its options
// dealt into a fresh A-D order and the answer letter remapped; the pool
// itself is never touched.
func (s *Session) Start(pool *models.QuestionPool, requested int) error {
	if s.state != StateIdle {
		return &SessionError{Op: "start", State: s.state, Reason: "session was already started"}
	}
	if pool == nil || len(pool.Questions) == 0 {
		return &SessionError{Op: "start", State: s.state, Reason: "question pool is empty"}
	}
	if requested < 1 {
		return &SessionError{Op: "start", State: s.state, Reason: "requested question count must be positive"}
	}

	s.pool = pool
	s.requested = requested
	s.resample()
	s.state = StateSampled
	return nil
}

func (s *Session) resample() {
	size := min(s.requested, len(s.pool.Questions))

	sample := make([]models.Question, 0, size)
	for _, idx := range s.rng.Perm(len(s.pool.Questions))[:size] {
		sample = append(sample, shuffleOptions(s.pool.Questions[idx], s.rng))
	}

	s.sample = sample
	s.cursor = 0
	s.answers = make(map[int]string, size)
	s.elapsed = make(map[int]time.Duration, size)
	s.enteredAt = s.now()
}

// shuffleOptions copies q with its options permuted across the letters and
// the answer letter remapped to follow the correct text.
func shuffleOptions(q models.Question, rng *rand.Rand) models.Question {
	out := q
	out.Options = make([]models.Option, len(q.Options))
	for i, j := range rng.Perm(len(q.Options)) {
		out.Options[i] = models.Option{Letter: models.OptionLetters[i], Text: q.Options[j].Text}
		if q.Options[j].Letter == q.Answer {
			out.Answer = models.OptionLetters[i]
		}
	}
	return out
}

// Current returns the question under the cursor.
func (s *Session) Current() (models.Question, error) {
	if s.state != StateSampled && s.state != StateInProgress {
		return models.Question{}, &SessionError{Op: "current", State: s.state, Reason: "no active question"}
	}
	return s.sample[s.cursor], nil
}

// Answer reports the recorded answer for a sampled question id, if any.
func (s *Session) Answer(questionID int) (string, bool) {
	letter, ok := s.answers[questionID]
	return letter, ok
}

// RecordAnswer stores the letter for the current question, overwriting any
// earlier choice. Any string is accepted; scoring counts everything that is
// not the correct letter as wrong.
func (s *Session) RecordAnswer(letter string) error {
	if s.state != StateSampled && s.state != StateInProgress {
		return &SessionError{Op: "record answer", State: s.state, Reason: "no question is awaiting an answer"}
	}

	s.answers[s.sample[s.cursor].ID] = letter
	s.state = StateInProgress
	return nil
}

// Advance moves to the next question once the current one has a recorded
// answer. Leaving the last question completes the session.
func (s *Session) Advance() error {
	if s.state != StateSampled && s.state != StateInProgress {
		return &SessionError{Op: "advance", State: s.state, Reason: "no quiz in progress"}
	}

	current := s.sample[s.cursor]
	if _, ok := s.answers[current.ID]; !ok {
		return &SessionError{Op: "advance", State: s.state, Reason: "current question has no recorded answer"}
	}

	s.elapsed[current.ID] += s.now().Sub(s.enteredAt)
	s.cursor++
	s.enteredAt = s.now()

	if s.cursor >= len(s.sample) {
		s.state = StateCompleted
	}
	return nil
}

// Retreat steps back one question. Recorded answers stay in place.
func (s *Session) Retreat() error {
	if s.state != StateInProgress {
		return &SessionError{Op: "retreat", State: s.state, Reason: "no quiz in progress"}
	}
	if s.cursor == 0 {
		return &SessionError{Op: "retreat", State: s.state, Reason: "already at the first question"}
	}

	current := s.sample[s.cursor]
	s.elapsed[current.ID] += s.now().Sub(s.enteredAt)
	s.cursor--
	s.enteredAt = s.now()
	return nil
}

// Score derives the result of a completed session. Nothing is mutated, so
// repeated calls return the same report.
func (s *Session) Score() (models.ScoreReport, error) {
	if s.state != StateCompleted {
		return models.ScoreReport{}, &SessionError{Op: "score", State: s.state, Reason: "quiz is not completed"}
	}

	correct := 0
	var total time.Duration
	for _, q := range s.sample {
		if s.answers[q.ID] == q.Answer {
			correct++
		}
		total += s.elapsed[q.ID]
	}

	n := len(s.sample)
	return models.ScoreReport{
		Correct:    correct,
		Total:      n,
		Percent:    math.Round(float64(correct) / float64(n) * 100),
		AvgSeconds: roundTenth(total.Seconds() / float64(n)),
	}, nil
}

// Review lists every sampled question with the recorded and correct answers.
func (s *Session) Review() ([]models.AnswerReview, error) {
	if s.state != StateCompleted {
		return nil, &SessionError{Op: "review", State: s.state, Reason: "quiz is not completed"}
	}

	reviews := make([]models.AnswerReview, 0, len(s.sample))
	for _, q := range s.sample {
		selected := s.answers[q.ID]
		reviews = append(reviews, models.AnswerReview{
			QuestionID:  q.ID,
			Text:        q.Text,
			Options:     q.Options,
			Selected:    selected,
			Correct:     q.Answer,
			IsCorrect:   selected == q.Answer,
			Explanation: q.Explanation,
			Seconds:     roundTenth(s.elapsed[q.ID].Seconds()),
		})
	}
	return reviews, nil
}

// RetakeSame replays the identical sampled sequence with answers cleared.
func (s *Session) RetakeSame() error {
	if s.state != StateCompleted {
		return &SessionError{Op: "retake", State: s.state, Reason: "quiz is not completed"}
	}

	s.cursor = 0
	s.answers = make(map[int]string, len(s.sample))
	s.elapsed = make(map[int]time.Duration, len(s.sample))
	s.enteredAt = s.now()
	s.state = StateSampled
	return nil
}

// RetakeNew draws a fresh sample from the same pool.
func (s *Session) RetakeNew() error {
	if s.state != StateCompleted {
		return &SessionError{Op: "retake", State: s.state, Reason: "quiz is not completed"}
	}

	s.resample()
	s.state = StateSampled
	return nil
}

// FullReset abandons everything, dropping the pool reference.
func (s *Session) FullReset() {
	s.pool = nil
	s.requested = 0
	s.sample = nil
	s.cursor = 0
	s.answers = nil
	s.elapsed = nil
	s.state = StateIdle
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
