package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/quizforge/quiz-generator-api/internal/memstore"
	"github.com/quizforge/quiz-generator-api/internal/models"
	"github.com/quizforge/quiz-generator-api/internal/quiz"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

type SessionService interface {
	StartSession(ctx context.Context, userID, poolID string, count int) (*models.SessionView, error)
	GetSession(ctx context.Context, userID, sessionID string) (*models.SessionView, error)
	RecordAnswer(ctx context.Context, userID, sessionID, letter string) (*models.SessionView, error)
	Advance(ctx context.Context, userID, sessionID string) (*models.SessionView, error)
	Retreat(ctx context.Context, userID, sessionID string) (*models.SessionView, error)
	Score(ctx context.Context, userID, sessionID string) (*models.ScoreReport, error)
	Review(ctx context.Context, userID, sessionID string) ([]models.AnswerReview, error)
	Retake(ctx context.Context, userID, sessionID string, newSample bool) (*models.SessionView, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

type sessionService struct {
	pools    *memstore.PoolStore
	sessions *memstore.SessionStore
	logger   *utils.Logger
}

func NewSessionService(pools *memstore.PoolStore, sessions *memstore.SessionStore, logger *utils.Logger) SessionService {
	return &sessionService{
		pools:    pools,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *sessionService) StartSession(ctx context.Context, userID, poolID string, count int) (*models.SessionView, error) {
	pool, ok := s.pools.Get(poolID)
	// A foreign pool is indistinguishable from a missing one.
	if !ok || pool.OwnerID != userID {
		return nil, utils.NewNotFoundError("Quiz not found or expired")
	}

	if count == 0 {
		count = models.DefaultQuestionCount
	}
	if count < 1 {
		return nil, utils.NewBadRequestError("num_questions must be positive")
	}

	session := quiz.NewSession(utils.GenerateID())
	if err := session.Start(pool, count); err != nil {
		return nil, mapSessionError(err)
	}

	entry := memstore.NewSessionEntry(userID, session)
	s.sessions.Put(session.ID(), entry)

	s.logger.Info("Session started",
		"session_id", session.ID(),
		"pool_id", poolID,
		"questions", min(count, pool.Size()))

	return s.viewOf(entry)
}

func (s *sessionService) GetSession(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.viewOf(entry)
}

func (s *sessionService) RecordAnswer(ctx context.Context, userID, sessionID, letter string) (*models.SessionView, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if !models.ValidAnswerLetter(letter) {
		return nil, utils.NewBadRequestError(fmt.Sprintf("answer letter must be one of %s", strings.Join(models.OptionLetters, ", ")))
	}

	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.apply(entry, func(sess *quiz.Session) error {
		return sess.RecordAnswer(letter)
	})
}

func (s *sessionService) Advance(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.apply(entry, func(sess *quiz.Session) error {
		return sess.Advance()
	})
}

func (s *sessionService) Retreat(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.apply(entry, func(sess *quiz.Session) error {
		return sess.Retreat()
	})
}

func (s *sessionService) Score(ctx context.Context, userID, sessionID string) (*models.ScoreReport, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var report models.ScoreReport
	err = entry.Do(func(sess *quiz.Session) error {
		var scoreErr error
		report, scoreErr = sess.Score()
		return scoreErr
	})
	if err != nil {
		return nil, mapSessionError(err)
	}

	return &report, nil
}

func (s *sessionService) Review(ctx context.Context, userID, sessionID string) ([]models.AnswerReview, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var reviews []models.AnswerReview
	err = entry.Do(func(sess *quiz.Session) error {
		var reviewErr error
		reviews, reviewErr = sess.Review()
		return reviewErr
	})
	if err != nil {
		return nil, mapSessionError(err)
	}

	return reviews, nil
}

func (s *sessionService) Retake(ctx context.Context, userID, sessionID string, newSample bool) (*models.SessionView, error) {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.apply(entry, func(sess *quiz.Session) error {
		if newSample {
			return sess.RetakeNew()
		}
		return sess.RetakeSame()
	})
}

func (s *sessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	entry, err := s.entryFor(userID, sessionID)
	if err != nil {
		return err
	}

	// Reset before removal so any concurrently held reference goes dead
	// instead of serving a live quiz.
	_ = entry.Do(func(sess *quiz.Session) error {
		sess.FullReset()
		return nil
	})
	s.sessions.Delete(sessionID)

	s.logger.Info("Session deleted", "session_id", sessionID)
	return nil
}

func (s *sessionService) entryFor(userID, sessionID string) (*memstore.SessionEntry, error) {
	entry, ok := s.sessions.Get(sessionID)
	if !ok || entry.OwnerID() != userID {
		return nil, utils.NewNotFoundError("Session not found or expired")
	}
	return entry, nil
}

// apply runs the mutation and snapshots the view inside one critical section.
func (s *sessionService) apply(entry *memstore.SessionEntry, fn func(*quiz.Session) error) (*models.SessionView, error) {
	var view *models.SessionView
	err := entry.Do(func(sess *quiz.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = sessionView(sess)
		return nil
	})
	if err != nil {
		return nil, mapSessionError(err)
	}

	return view, nil
}

func (s *sessionService) viewOf(entry *memstore.SessionEntry) (*models.SessionView, error) {
	var view *models.SessionView
	_ = entry.Do(func(sess *quiz.Session) error {
		view = sessionView(sess)
		return nil
	})
	return view, nil
}

func sessionView(sess *quiz.Session) *models.SessionView {
	view := &models.SessionView{
		SessionID: sess.ID(),
		PoolID:    sess.PoolID(),
		State:     string(sess.State()),
	}
	view.Position, view.Total = sess.Position()

	if q, err := sess.Current(); err == nil {
		view.Question = &models.QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
		if letter, ok := sess.Answer(q.ID); ok {
			view.Selected = letter
		}
	}

	return view
}

func mapSessionError(err error) error {
	var sessErr *quiz.SessionError
	if errors.As(err, &sessErr) {
		return utils.NewAppError(http.StatusConflict, "INVALID_SESSION_STATE", sessErr.Error(), err)
	}
	return utils.NewInternalError("Session operation failed")
}
