package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	"golang.org/x/oauth2"
)

// UserStore looks up and creates local users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// CredentialWriter persists provider credentials.
type CredentialWriter interface {
	Upsert(ctx context.Context, cred *models.Credential) error
}

// Accounts maps provider identities onto local users.
type Accounts struct {
	users  UserStore
	creds  CredentialWriter
	logger *log.Logger
}

// NewAccounts creates an [Accounts] over the given stores.
func NewAccounts(users UserStore, creds CredentialWriter, logger *log.Logger) *Accounts {
	if logger == nil {
		logger = log.Default()
	}
	return &Accounts{users: users, creds: creds, logger: logger}
}

// ResolveUser returns the local user for profile, creating one when none matches.
//
// A profile matches by email when it has one, then by its synthetic username. New users are named after the
// display name, then the email, then the synthetic username; a name already taken falls back to the synthetic one.
func (a *Accounts) ResolveUser(ctx context.Context, profile *models.Profile) (*models.User, error) {
	if profile == nil || profile.AccountID == "" {
		return nil, fmt.Errorf("%w: profile without account id", shared.ErrInvalidInput)
	}

	synthetic := profile.SyntheticUsername()

	if profile.Email != "" {
		u, err := a.users.FindByEmail(ctx, profile.Email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, shared.ErrUserNotFound) {
			return nil, err
		}
	}

	u, err := a.users.FindByUsername(ctx, synthetic)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}

	username, err := a.username(ctx, profile, synthetic)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: models.StringPtr(profile.Email)}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	a.logger.Info("created user", "id", user.ID, "username", user.Username, "service", profile.Service)
	return user, nil
}

func (a *Accounts) username(ctx context.Context, profile *models.Profile, synthetic string) (string, error) {
	for _, candidate := range []string{profile.DisplayName, profile.Email} {
		if candidate == "" {
			continue
		}
		_, err := a.users.FindByUsername(ctx, candidate)
		if errors.Is(err, shared.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		return synthetic, nil
	}
	return synthetic, nil
}

// Link resolves the user behind profile and stores tok as that user's credential for the profile's service.
func (a *Accounts) Link(ctx context.Context, profile *models.Profile, tok *oauth2.Token) (*models.User, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrInvalidCredential)
	}

	user, err := a.ResolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		UserID:       user.ID,
		Service:      profile.Service,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC().Truncate(time.Microsecond)
		cred.ExpiresAt = &exp
	}

	if err := a.creds.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	a.logger.Info("linked service", "user", user.ID, "service", profile.Service)
	return user, nil
}
