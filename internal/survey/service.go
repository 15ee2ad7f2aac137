package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
	"github.com/Vinayak1844/Statathon-Project/internal/query"
	"github.com/Vinayak1844/Statathon-Project/internal/reference"
	"github.com/Vinayak1844/Statathon-Project/internal/session"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
)

var (
	// ErrEmptyMessage is returned by Chat when the message is blank.
	ErrEmptyMessage = errors.New("message is required")
	// ErrChatUnavailable is returned by Chat when no extractor is configured.
	ErrChatUnavailable = errors.New("chat is not configured")
)

// Compiler turns a filter set into a statement.
type Compiler interface {
	Build(ctx context.Context, set filters.Set) (*query.Compiled, error)
}

// Executor runs a statement and returns its rows.
type Executor interface {
	Execute(ctx context.Context, query string, args []any) ([]storage.Row, error)
}

// Extractor turns a free-text message into a loose filter object.
type Extractor interface {
	Extract(ctx context.Context, message string) map[string]any
}

// Service is the filter query and chat facade used by the API and CLI.
type Service struct {
	compiler  Compiler
	executor  Executor
	extractor Extractor
	sessions  session.Store
	logger    *observability.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithExtractor enables Chat.
func WithExtractor(e Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithSessions records chat turns in store.
func WithSessions(store session.Store) Option {
	return func(s *Service) { s.sessions = store }
}

// NewService creates a service.
func NewService(compiler Compiler, executor Executor, logger *observability.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	s := &Service{
		compiler: compiler,
		executor: executor,
		logger:   logger.WithOperation("survey"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filter compiles set, runs it once and packages the rows. A name that does
// not resolve yields an unsuccessful Result and a nil error; the error return
// is reserved for infrastructure failures.
func (s *Service) Filter(ctx context.Context, set filters.Set) (*Result, error) {
	compiled, err := s.compiler.Build(ctx, set)
	if err != nil {
		if errors.Is(err, reference.ErrReferenceNotFound) {
			observability.FilterRequests.WithLabelValues("not_found").Inc()
			s.logger.WithContext(ctx).Info().Str("filters", set.String()).Str("reason", err.Error()).Msg("Filter rejected")
			return failure(err.Error()), nil
		}
		observability.FilterRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.executor.Execute(ctx, compiled.SQL, compiled.Args)
	if err != nil {
		observability.FilterRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("execute query: %w", err)
	}

	observability.FilterRequests.WithLabelValues("ok").Inc()
	s.logger.WithContext(ctx).Debug().Str("filters", set.String()).Int("count", len(rows)).Msg("Filter executed")
	return packageRows(set, rows), nil
}

// ChatRequest is a free-text query from a user.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse carries a one-line summary, the filters the model produced and
// the matching rows.
type ChatResponse struct {
	Reply   string         `json:"reply"`
	Filters map[string]any `json:"filters"`
	Data    []storage.Row  `json:"data"`
}

// Chat extracts filters from the message and runs them. Extraction problems
// degrade to an unfiltered query; a name that does not resolve is reported
// in the reply with no rows. The reply is never blank.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if s.extractor == nil {
		return nil, ErrChatUnavailable
	}

	raw := s.extractor.Extract(ctx, req.Message)
	if raw == nil {
		raw = map[string]any{}
	}
	set := filters.FromMap(raw)

	res, err := s.Filter(ctx, set)
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{Filters: raw, Data: []storage.Row{}}
	if res.Success {
		resp.Reply = fmt.Sprintf("Applied filters: %s | Found %d records", set, res.Count)
		if res.Data != nil {
			resp.Data = res.Data
		}
	} else {
		resp.Reply = fmt.Sprintf("Applied filters: %s | %s", set, res.Error)
	}

	s.record(ctx, req.UserID, session.Turn{
		Message: req.Message,
		Filters: set,
		Count:   res.Count,
		Error:   res.Error,
	})
	return resp, nil
}

func (s *Service) record(ctx context.Context, userID string, turn session.Turn) {
	if s.sessions == nil {
		return
	}
	if _, err := s.sessions.Append(ctx, userID, turn); err != nil {
		s.logger.WithContext(ctx).WithSession(session.NormalizeID(userID)).
			Warn().Err(err).Msg("Failed to record chat turn")
	}
}

// History returns the recorded turns of a user.
func (s *Service) History(ctx context.Context, userID string) (*session.Session, error) {
	if s.sessions == nil {
		return nil, session.ErrNotFound
	}
	return s.sessions.Get(ctx, userID)
}

// Forget drops the recorded turns of a user.
func (s *Service) Forget(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Evict(ctx, userID)
}
