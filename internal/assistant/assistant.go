// Package assistant routes a member's question to a greeting, the BNI
// knowledge base, or the natural-language-to-SQL pipeline.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/bni-assistant/internal/directory"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrQuery wraps failures of the data store while answering.
	ErrQuery = errors.New("database error")
	// ErrCompletion wraps failures of the language model.
	ErrCompletion = errors.New("language model error")
	// ErrMemory wraps failures to record conversation history.
	ErrMemory = errors.New("conversation memory error")
)

const StatusSuccess = "success"

type Store interface {
	MemberLookup
	Query(ctx context.Context, query string) ([]models.Row, error)
}

type Matcher interface {
	Match(input string) (directory.Match, bool)
}

type Classifier interface {
	IsGeneral(question string) bool
}

type Knowledge interface {
	Respond(ctx context.Context, question string, userID int64) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string) (string, error)
}

type Guard interface {
	Check(query string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, question string, rows []models.Row, userID int64) (string, error)
}

type Memory interface {
	Record(ctx context.Context, userID int64, question, answer string) error
	Reset(ctx context.Context, userID int64) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store        Store
	Matcher      Matcher
	Classifier   Classifier
	Knowledge    Knowledge
	Synthesizer  Synthesizer
	Guard        Guard
	Summarizer   Summarizer
	Memory       Memory
	QueryTimeout time.Duration
}

type Service struct {
	store        Store
	matcher      Matcher
	classifier   Classifier
	knowledge    Knowledge
	personalizer *Personalizer
	synthesizer  Synthesizer
	guard        Guard
	summarizer   Summarizer
	memory       Memory
	queryTimeout time.Duration
	logger       *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Service {
	return &Service{
		store:        deps.Store,
		matcher:      deps.Matcher,
		classifier:   deps.Classifier,
		knowledge:    deps.Knowledge,
		personalizer: NewPersonalizer(deps.Store, logger),
		synthesizer:  deps.Synthesizer,
		guard:        deps.Guard,
		summarizer:   deps.Summarizer,
		memory:       deps.Memory,
		queryTimeout: deps.QueryTimeout,
		logger:       logger,
	}
}

// Ask answers one question. Routing order is fixed: greeting, general
// knowledge, then data.
func (s *Service) Ask(ctx context.Context, req models.QuestionRequest) (*models.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	userID := req.User()

	if reply, ok := s.greet(ctx, question, userID); ok {
		return newAnswer(question, reply, nil, true), nil
	}

	if req.IsGeneralKnowledge || s.classifier.IsGeneral(question) {
		reply, err := s.knowledge.Respond(ctx, question, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
		}
		return newAnswer(question, reply, nil, true), nil
	}

	return s.answerFromData(ctx, question, userID)
}

func (s *Service) answerFromData(ctx context.Context, question string, userID int64) (*models.Answer, error) {
	prompt := question
	if m, ok := s.matcher.Match(question); ok {
		s.logger.Debug("Matched member name",
			zap.String("name", m.Name),
			zap.Int64("member_id", m.ID),
			zap.Float64("score", m.Score))
		prompt = fmt.Sprintf("%s (Matched ID: %d, Name: %s)", question, m.ID, m.Name)
	}
	prompt = s.personalizer.Personalize(ctx, prompt, userID)

	query, err := s.synthesizer.Synthesize(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	if err := s.guard.Check(query); err != nil {
		s.logger.Warn("Rejected generated SQL",
			zap.Error(err),
			zap.String("sql", query),
			zap.Int64("user_id", userID))
		return nil, err
	}

	rows, err := s.runQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	s.logger.Info("Answered data question",
		zap.Int64("user_id", userID),
		zap.String("question", question),
		zap.String("sql", query),
		zap.Int("rows", len(rows)))

	summary, err := s.summarizer.Summarize(ctx, question, rows, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	if userID != 0 {
		if err := s.memory.Record(ctx, userID, question, summary); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMemory, err)
		}
	}

	return newAnswer(question, summary, &query, false), nil
}

func (s *Service) runQuery(ctx context.Context, query string) ([]models.Row, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	return s.store.Query(ctx, query)
}

// ResetMemory forgets the user's conversation history.
func (s *Service) ResetMemory(ctx context.Context, userID int64) error {
	if err := s.memory.Reset(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrMemory, err)
	}
	s.logger.Info("Conversation memory reset", zap.Int64("user_id", userID))
	return nil
}

func newAnswer(question, reply string, query *string, general bool) *models.Answer {
	reply = norm.NFKC.String(reply)
	return &models.Answer{
		Status:             StatusSuccess,
		Conversation:       norm.NFKC.String("User: " + question + "\nAI: " + reply),
		Summary:            reply,
		SQL:                query,
		IsGeneralKnowledge: general,
	}
}
