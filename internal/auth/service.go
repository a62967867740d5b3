package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kompello/kompello-console/internal/kompello"
)

// AccountAPI is the part of the Kompello client used for login and logout.
type AccountAPI interface {
	Login(ctx context.Context, identifier, secret string) error
	Logout(ctx context.Context) error
}

// Invalidator marks the auth state stale.
type Invalidator interface {
	Invalidate()
}

// Service wraps the login and logout operations.
type Service struct {
	api      AccountAPI
	state    Invalidator
	logger   *slog.Logger
	recorder Recorder
}

// NewService constructs a Service.
func NewService(api AccountAPI, state Invalidator, logger *slog.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{api: api, state: state, logger: logger, recorder: recorderOrNop(recorder)}
}

// Login reports whether the upstream accepted the credentials. On success
// the auth state is invalidated before returning.
func (s *Service) Login(ctx context.Context, identifier, secret string) bool {
	if err := s.api.Login(ctx, identifier, secret); err != nil {
		result := classify(err)
		s.recorder.Login(result)
		s.logger.Info("login failed", slog.String("result", result), slog.Any("error", err))
		return false
	}
	s.recorder.Login(ResultOK)
	s.state.Invalidate()
	return true
}

// Logout ends the upstream session. The auth state is invalidated whether or
// not the upstream could be reached.
func (s *Service) Logout(ctx context.Context) {
	defer s.state.Invalidate()
	if err := s.api.Logout(ctx); err != nil {
		result := classify(err)
		s.recorder.Logout(result)
		s.logger.Warn("logout failed", slog.String("result", result), slog.Any("error", err))
		return
	}
	s.recorder.Logout(ResultOK)
}

func classify(err error) string {
	var apiErr *kompello.APIError
	if !errors.As(err, &apiErr) {
		return ResultTransport
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict:
		return ResultRejected
	default:
		return ResultServerError
	}
}
