package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
)

// API is the part of the Kompello client used by the account page.
type API interface {
	Me(ctx context.Context) (*kompello.User, error)
	UpdateUser(ctx context.Context, id string, in kompello.UserInput) (*kompello.User, error)
	SetPassword(ctx context.Context, id, password string) error
}

// ProfileForm edits the name and email of the signed-in user.
type ProfileForm struct {
	FirstName string `form:"first_name" validate:"required,min=2,max=100"`
	LastName  string `form:"last_name" validate:"required,min=2,max=100"`
	Email     string `form:"email" validate:"required,email,max=254"`
}

// PasswordForm changes the password. Its values are never rendered back.
type PasswordForm struct {
	Password string `form:"password" validate:"required,min=8,max=1024"`
	Confirm  string `form:"password_confirm" validate:"required,eqfield=Password"`
}

// Service edits the account of the signed-in user.
type Service struct {
	api      API
	validate *validator.Validate
}

// NewService creates a new account service.
func NewService(api API) *Service {
	return &Service{api: api, validate: shared.NewFormValidator()}
}

// Profile loads the form values of the signed-in user.
func (s *Service) Profile(ctx context.Context) (ProfileForm, error) {
	user, err := s.api.Me(ctx)
	if err != nil {
		return ProfileForm{}, fmt.Errorf("users: profile: %w", err)
	}
	return ProfileForm{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email}, nil
}

// UpdateProfile validates the form and patches the user with the given id.
func (s *Service) UpdateProfile(ctx context.Context, id string, form ProfileForm) (shared.FormResult[ProfileForm], error) {
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.UpdateUser(ctx, id, kompello.UserInput{FirstName: form.FirstName, LastName: form.LastName, Email: form.Email})
	if err != nil {
		if kompello.IsValidation(err) {
			return shared.Invalid(form, upstreamErrors(err)), nil
		}
		return result, fmt.Errorf("users: update profile: %w", err)
	}
	return result, nil
}

// ChangePassword validates the form and sets the new password. The returned
// result never carries the submitted values.
func (s *Service) ChangePassword(ctx context.Context, id string, form PasswordForm) (shared.FormResult[PasswordForm], error) {
	result := shared.ValidateForm(s.validate, form)
	result.Value = PasswordForm{}
	if !result.OK() {
		return result, nil
	}
	if err := s.api.SetPassword(ctx, id, form.Password); err != nil {
		if kompello.IsValidation(err) {
			return shared.Invalid(PasswordForm{}, upstreamErrors(err)), nil
		}
		return result, fmt.Errorf("users: set password: %w", err)
	}
	return result, nil
}

func upstreamErrors(err error) map[string]string {
	if errs := kompello.FieldErrors(err); len(errs) > 0 {
		return errs
	}
	var apiErr *kompello.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return map[string]string{"general": apiErr.Detail}
	}
	return map[string]string{"general": "validation.invalid"}
}
