package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/view"
)

// Principal is the authenticated user as known to the console.
type Principal struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
}

type profileFields struct {
	UUID  string `validate:"required,uuid"`
	Email string `validate:"required,email"`
}

var errInactiveAccount = errors.New("auth: account inactive")

// principalFromProfile validates the upstream profile and converts it.
func principalFromProfile(v *validator.Validate, user *kompello.User) (*Principal, error) {
	if user == nil {
		return nil, errors.New("auth: empty profile")
	}
	if err := v.Struct(profileFields{UUID: user.UUID, Email: user.Email}); err != nil {
		return nil, fmt.Errorf("auth: invalid profile: %w", err)
	}
	if !user.IsActive {
		return nil, errInactiveAccount
	}
	id, err := uuid.Parse(user.UUID)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid profile id: %w", err)
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Email
	}
	return &Principal{ID: id, DisplayName: name, Email: user.Email}, nil
}

// Viewer converts the principal for templates. Nil-safe.
func (p *Principal) Viewer() *view.Viewer {
	if p == nil {
		return nil
	}
	return &view.Viewer{ID: p.ID.String(), DisplayName: p.DisplayName, Email: p.Email}
}
