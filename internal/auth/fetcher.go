package auth

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/kompello/kompello-console/internal/kompello"
)

// SessionAPI is the part of the Kompello client the fetcher needs.
type SessionAPI interface {
	Session(ctx context.Context) error
	Me(ctx context.Context) (*kompello.User, error)
}

// Checker resolves the current principal. Implementations never fail; no
// session and any error both yield nil.
type Checker interface {
	Check(ctx context.Context) *Principal
}

// Fetcher checks the upstream session and loads the profile.
type Fetcher struct {
	api      SessionAPI
	logger   *slog.Logger
	recorder Recorder
	validate *validator.Validate
}

// NewFetcher constructs a Fetcher.
func NewFetcher(api SessionAPI, logger *slog.Logger, recorder Recorder) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		api:      api,
		logger:   logger,
		recorder: recorderOrNop(recorder),
		validate: validator.New(),
	}
}

// Check returns the principal bound to the upstream session or nil.
func (f *Fetcher) Check(ctx context.Context) *Principal {
	if err := f.api.Session(ctx); err != nil {
		f.report(CheckNoSession, err)
		return nil
	}
	user, err := f.api.Me(ctx)
	if err != nil {
		f.report(CheckProfileFailed, err)
		return nil
	}
	principal, err := principalFromProfile(f.validate, user)
	if err != nil {
		f.report(CheckInvalidProfile, err)
		return nil
	}
	f.report(CheckOK, nil)
	return principal
}

func (f *Fetcher) report(result string, err error) {
	f.recorder.SessionCheck(result)
	if err != nil {
		f.logger.Debug("session check", slog.String("result", result), slog.Any("error", err))
		return
	}
	f.logger.Debug("session check", slog.String("result", result))
}
