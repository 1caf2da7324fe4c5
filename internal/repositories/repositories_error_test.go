package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
)

var errDB = errors.New("connection reset")

func newMock(t *testing.T) (sqlmock.Sqlmock, *PlaylistRepository, *CredentialRepository, *UserRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, NewPlaylistRepository(db), NewCredentialRepository(db), NewUserRepository(db)
}

func assertStoreError(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, shared.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !errors.Is(err, errDB) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
	var se *shared.StoreError
	if !errors.As(err, &se) || se.Op == "" {
		t.Errorf("expected StoreError with op, got %v", err)
	}
}

func TestUserRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			_, _, _, repo := newMock(t)

			err := repo.Create(ctx, &models.User{Username: "  "})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for empty username, got %v", err)
			}
		})

		t.Run("StoreError", func(t *testing.T) {
			mock, _, _, repo := newMock(t)
			mock.ExpectQuery("INSERT INTO users").WillReturnError(errDB)

			assertStoreError(t, repo.Create(ctx, &models.User{Username: "alice"}))
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("StoreError", func(t *testing.T) {
			mock, _, _, repo := newMock(t)
			mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(errDB)

			_, err := repo.Get(ctx, 1)
			assertStoreError(t, err)
		})
	})

	t.Run("List", func(t *testing.T) {
		t.Run("RowError", func(t *testing.T) {
			mock, _, _, repo := newMock(t)
			rows := sqlmock.NewRows([]string{"id", "username", "email", "created_at", "updated_at"}).
				AddRow(1, "alice", nil, nil, nil).
				RowError(0, errDB)
			mock.ExpectQuery("SELECT (.+) FROM users").WillReturnRows(rows)

			_, err := repo.List(ctx)
			assertStoreError(t, err)
		})
	})
}

func TestCredentialRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Get", func(t *testing.T) {
		mock, _, repo, _ := newMock(t)
		mock.ExpectQuery("FROM user_services").WillReturnError(errDB)

		_, err := repo.Get(ctx, 1, models.YouTube)
		assertStoreError(t, err)
	})

	t.Run("Upsert", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			_, _, repo, _ := newMock(t)

			err := repo.Upsert(ctx, &models.Credential{UserID: 1, Service: models.YouTube})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for missing access token, got %v", err)
			}
		})

		t.Run("StoreError", func(t *testing.T) {
			mock, _, repo, _ := newMock(t)
			mock.ExpectExec("INSERT INTO user_services").WillReturnError(errDB)

			err := repo.Upsert(ctx, &models.Credential{UserID: 1, Service: models.Spotify, AccessToken: "a"})
			assertStoreError(t, err)
		})
	})

	t.Run("UpdateTokens", func(t *testing.T) {
		mock, _, repo, _ := newMock(t)
		mock.ExpectExec("UPDATE user_services").WillReturnError(errDB)

		assertStoreError(t, repo.UpdateTokens(ctx, 1, models.YouTube, "a", "", nil))
	})

	t.Run("Linked", func(t *testing.T) {
		mock, _, repo, _ := newMock(t)
		mock.ExpectQuery("SELECT COUNT").WillReturnError(errDB)

		_, err := repo.Linked(ctx, 1, models.YouTube)
		assertStoreError(t, err)
	})
}

func TestPlaylistRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("ListByUser", func(t *testing.T) {
		mock, repo, _, _ := newMock(t)
		mock.ExpectQuery("FROM playlists").WillReturnError(errDB)

		_, err := repo.ListByUser(ctx, 1, models.YouTube)
		assertStoreError(t, err)
	})

	t.Run("UpsertPlaylist", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			_, repo, _, _ := newMock(t)

			_, err := repo.UpsertPlaylist(ctx, &models.Playlist{UserID: 1})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for missing external id, got %v", err)
			}
		})

		t.Run("StoreError", func(t *testing.T) {
			mock, repo, _, _ := newMock(t)
			mock.ExpectQuery("INSERT INTO playlists").WillReturnError(errDB)

			_, err := repo.UpsertPlaylist(ctx, &models.Playlist{UserID: 1, Service: models.YouTube, ExternalID: "PL"})
			assertStoreError(t, err)
		})
	})

	t.Run("ItemIDs", func(t *testing.T) {
		t.Run("ScanError", func(t *testing.T) {
			mock, repo, _, _ := newMock(t)
			rows := sqlmock.NewRows([]string{"external_id"}).AddRow("v1").RowError(0, errDB)
			mock.ExpectQuery("SELECT external_id FROM playlist_items").WillReturnRows(rows)

			_, err := repo.ItemIDs(ctx, 1)
			assertStoreError(t, err)
		})
	})

	t.Run("UpsertItem", func(t *testing.T) {
		mock, repo, _, _ := newMock(t)
		mock.ExpectQuery("INSERT INTO playlist_items").WillReturnError(errDB)

		_, err := repo.UpsertItem(ctx, &models.PlaylistItem{PlaylistID: 1, ExternalID: "v1"})
		assertStoreError(t, err)
	})

	t.Run("Snapshot", func(t *testing.T) {
		mock, repo, _, _ := newMock(t)
		mock.ExpectQuery("FROM playlists").WillReturnRows(
			sqlmock.NewRows([]string{"id", "user_id", "service", "external_id", "title", "description", "thumbnail_url", "created_at", "updated_at"}),
		)
		mock.ExpectQuery("FROM playlist_items").WillReturnError(errDB)

		_, err := repo.Snapshot(ctx, 1, models.YouTube)
		assertStoreError(t, err)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
