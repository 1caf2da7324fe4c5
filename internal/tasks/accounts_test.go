package tasks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/repositories"
	"github.com/desertthunder/multitune/internal/shared"
	tu "github.com/desertthunder/multitune/internal/testing"
)

func newAccounts(t *testing.T) (*Accounts, *repositories.UserRepository, *repositories.CredentialRepository) {
	t.Helper()
	db := tu.NewTestDB(t)
	users := repositories.NewUserRepository(db)
	creds := repositories.NewCredentialRepository(db)
	return NewAccounts(users, creds, log.New(io.Discard)), users, creds
}

func TestAccounts_ResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user named after display name", func(t *testing.T) {
		accounts, _, _ := newAccounts(t)

		user, err := accounts.ResolveUser(ctx, &models.Profile{
			Service: models.YouTube, AccountID: "g1", DisplayName: "Alice", Email: "alice@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Username)
		require.NotNil(t, user.Email)
		assert.Equal(t, "alice@example.com", *user.Email)
	})

	t.Run("matches existing user by email across services", func(t *testing.T) {
		accounts, _, _ := newAccounts(t)

		first, err := accounts.ResolveUser(ctx, &models.Profile{
			Service: models.YouTube, AccountID: "g1", DisplayName: "Alice", Email: "alice@example.com",
		})
		require.NoError(t, err)

		second, err := accounts.ResolveUser(ctx, &models.Profile{
			Service: models.Spotify, AccountID: "s1", DisplayName: "alice_spotify", Email: "alice@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("matches by synthetic username without email", func(t *testing.T) {
		accounts, _, _ := newAccounts(t)
		profile := &models.Profile{Service: models.Spotify, AccountID: "s1"}

		first, err := accounts.ResolveUser(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, "spotify_s1", first.Username)
		assert.Nil(t, first.Email)

		second, err := accounts.ResolveUser(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("falls back to email then synthetic name", func(t *testing.T) {
		accounts, users, _ := newAccounts(t)
		require.NoError(t, users.Create(ctx, &models.User{Username: "Bob"}))

		noName, err := accounts.ResolveUser(ctx, &models.Profile{
			Service: models.YouTube, AccountID: "g2", Email: "carol@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", noName.Username)

		taken, err := accounts.ResolveUser(ctx, &models.Profile{
			Service: models.YouTube, AccountID: "g3", DisplayName: "Bob", Email: "bob2@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "youtube_g3", taken.Username)
	})

	t.Run("rejects profile without account id", func(t *testing.T) {
		accounts, _, _ := newAccounts(t)

		_, err := accounts.ResolveUser(ctx, &models.Profile{Service: models.YouTube})
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAccounts_Link(t *testing.T) {
	ctx := context.Background()

	t.Run("stores credential for resolved user", func(t *testing.T) {
		accounts, _, creds := newAccounts(t)
		expiry := time.Now().Add(time.Hour)

		user, err := accounts.Link(ctx,
			&models.Profile{Service: models.Spotify, AccountID: "s1", DisplayName: "Spot"},
			&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: expiry},
		)
		require.NoError(t, err)

		cred, err := creds.Get(ctx, user.ID, models.Spotify)
		require.NoError(t, err)
		assert.Equal(t, "a1", cred.AccessToken)
		assert.Equal(t, "r1", cred.RefreshToken)
		require.NotNil(t, cred.ExpiresAt)
		assert.WithinDuration(t, expiry, *cred.ExpiresAt, time.Second)
	})

	t.Run("relink keeps refresh token when provider omits it", func(t *testing.T) {
		accounts, _, creds := newAccounts(t)
		profile := &models.Profile{Service: models.YouTube, AccountID: "g1", Email: "a@example.com"}

		user, err := accounts.Link(ctx, profile, &oauth2.Token{AccessToken: "a1", RefreshToken: "r1"})
		require.NoError(t, err)
		_, err = accounts.Link(ctx, profile, &oauth2.Token{AccessToken: "a2"})
		require.NoError(t, err)

		cred, err := creds.Get(ctx, user.ID, models.YouTube)
		require.NoError(t, err)
		assert.Equal(t, "a2", cred.AccessToken)
		assert.Equal(t, "r1", cred.RefreshToken)
	})

	t.Run("missing access token", func(t *testing.T) {
		accounts, _, _ := newAccounts(t)

		_, err := accounts.Link(ctx, &models.Profile{Service: models.YouTube, AccountID: "g1"}, &oauth2.Token{})
		require.ErrorIs(t, err, shared.ErrInvalidCredential)
	})
}
