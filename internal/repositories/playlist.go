package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
)

const (
	playlistColumns = `id, user_id, service, external_id, title, description, thumbnail_url, created_at, updated_at`
	itemColumns     = `id, playlist_id, external_id, title, description, published_at, channel_title, channel_id, thumbnail_url, position, added_at, updated_at`

	// Positioned items first, then by position, ties and unpositioned items by insertion order.
	itemOrder = `position IS NULL, position ASC, id ASC`
)

// PlaylistRepository is the local mirror of provider playlists and their items.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// ListByUser returns the user's mirrored playlists for service ordered by title, without items.
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID int64, service models.Service) ([]models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE user_id = $1 AND service = $2
		ORDER BY title ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, string(service))
	if err != nil {
		return nil, shared.NewStoreError("query playlists", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		playlist, err := r.scanPlaylist(rows)
		if err != nil {
			return nil, shared.NewStoreError("scan playlist", err)
		}
		playlists = append(playlists, *playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.NewStoreError("iterate playlists", err)
	}

	return playlists, nil
}

// Get retrieves a playlist by surrogate ID, checking that userID owns it.
func (r *PlaylistRepository) Get(ctx context.Context, userID, playlistID int64) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1 AND user_id = $2`

	playlist, err := r.scanPlaylist(r.db.QueryRowContext(ctx, query, playlistID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, shared.NewStoreError("query playlist", err)
	}
	return playlist, nil
}

// UpsertPlaylist inserts a playlist or, when (user, service, external ID) already exists, updates its mutable fields.
//
// The surrogate ID is returned and written back to playlist.ID. It is the same ID on every call for the same key.
func (r *PlaylistRepository) UpsertPlaylist(ctx context.Context, playlist *models.Playlist) (int64, error) {
	if err := playlist.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	query := `
		INSERT INTO playlists (user_id, service, external_id, title, description, thumbnail_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, service, external_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		playlist.UserID,
		string(playlist.Service),
		playlist.ExternalID,
		playlist.Title,
		playlist.Description,
		nullString(playlist.ThumbnailURL),
		ts,
		ts,
	).Scan(&id)
	if err != nil {
		return 0, shared.NewStoreError("upsert playlist", err)
	}

	playlist.ID = id
	playlist.UpdatedAt = ts
	return id, nil
}

// ItemIDs returns the provider item IDs already mirrored for playlistID.
func (r *PlaylistRepository) ItemIDs(ctx context.Context, playlistID int64) ([]string, error) {
	query := `SELECT external_id FROM playlist_items WHERE playlist_id = $1`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, shared.NewStoreError("query item ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, shared.NewStoreError("scan item id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.NewStoreError("iterate item ids", err)
	}
	return ids, nil
}

// UpsertItem inserts an item or, when (playlist, external ID) already exists, updates its mutable fields.
func (r *PlaylistRepository) UpsertItem(ctx context.Context, item *models.PlaylistItem) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	query := `
		INSERT INTO playlist_items (
			playlist_id, external_id, title, description, published_at, channel_title, channel_id,
			thumbnail_url, position, added_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (playlist_id, external_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at,
			channel_title = excluded.channel_title,
			channel_id = excluded.channel_id,
			thumbnail_url = excluded.thumbnail_url,
			position = excluded.position,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var position sql.NullInt64
	if item.Position != nil {
		position = sql.NullInt64{Int64: *item.Position, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		item.PlaylistID,
		item.ExternalID,
		item.Title,
		item.Description,
		item.PublishedAt,
		item.ChannelTitle,
		item.ChannelID,
		nullString(item.ThumbnailURL),
		position,
		ts,
		ts,
	).Scan(&id)
	if err != nil {
		return 0, shared.NewStoreError("upsert playlist item", err)
	}

	item.ID = id
	item.AddedAt = ts
	item.UpdatedAt = ts
	return id, nil
}

// Items returns the items of playlistID in display order.
func (r *PlaylistRepository) Items(ctx context.Context, playlistID int64) ([]models.PlaylistItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM playlist_items
		WHERE playlist_id = $1
		ORDER BY ` + itemOrder

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, shared.NewStoreError("query playlist items", err)
	}
	defer rows.Close()

	return r.collectItems(rows)
}

// ItemsForUser returns the items of playlistID in display order after checking that userID owns the playlist.
func (r *PlaylistRepository) ItemsForUser(ctx context.Context, userID, playlistID int64) ([]models.PlaylistItem, error) {
	if _, err := r.Get(ctx, userID, playlistID); err != nil {
		return nil, err
	}
	return r.Items(ctx, playlistID)
}

// Snapshot reads the user's playlists for service ordered by title, each with its items in display order.
func (r *PlaylistRepository) Snapshot(ctx context.Context, userID int64, service models.Service) (*models.Snapshot, error) {
	playlists, err := r.ListByUser(ctx, userID, service)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + itemColumns + `
		FROM playlist_items
		WHERE playlist_id IN (SELECT id FROM playlists WHERE user_id = $1 AND service = $2)
		ORDER BY playlist_id ASC, ` + itemOrder

	rows, err := r.db.QueryContext(ctx, query, userID, string(service))
	if err != nil {
		return nil, shared.NewStoreError("query snapshot items", err)
	}
	defer rows.Close()

	items, err := r.collectItems(rows)
	if err != nil {
		return nil, err
	}

	byPlaylist := make(map[int64][]models.PlaylistItem, len(playlists))
	for _, item := range items {
		byPlaylist[item.PlaylistID] = append(byPlaylist[item.PlaylistID], item)
	}

	for i := range playlists {
		playlists[i].Items = byPlaylist[playlists[i].ID]
	}

	return &models.Snapshot{Playlists: playlists}, nil
}

func (r *PlaylistRepository) collectItems(rows *sql.Rows) ([]models.PlaylistItem, error) {
	items := []models.PlaylistItem{}
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, shared.NewStoreError("scan playlist item", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.NewStoreError("iterate playlist items", err)
	}
	return items, nil
}

func (r *PlaylistRepository) scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p         models.Playlist
		service   string
		thumbnail sql.NullString
	)

	err := s.Scan(&p.ID, &p.UserID, &service, &p.ExternalID, &p.Title, &p.Description, &thumbnail, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Service = models.Service(service)
	p.ThumbnailURL = stringPtr(thumbnail)
	return &p, nil
}

func (r *PlaylistRepository) scanItem(s scanner) (*models.PlaylistItem, error) {
	var (
		item        models.PlaylistItem
		publishedAt sql.NullTime
		thumbnail   sql.NullString
		position    sql.NullInt64
	)

	err := s.Scan(
		&item.ID, &item.PlaylistID, &item.ExternalID, &item.Title, &item.Description, &publishedAt,
		&item.ChannelTitle, &item.ChannelID, &thumbnail, &position, &item.AddedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.PublishedAt = timePtr(publishedAt)
	item.ThumbnailURL = stringPtr(thumbnail)
	item.Position = int64Ptr(position)
	return &item, nil
}
