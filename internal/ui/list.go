package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/multitune/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = entryItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d items", len(i.playlist.Items))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// entryItem wraps [models.PlaylistItem] to implement [list.Item].
type entryItem struct {
	item models.PlaylistItem
}

func (i entryItem) FilterValue() string { return i.item.Title }

func (i entryItem) Title() string {
	if i.item.Title == "" {
		return i.item.ExternalID
	}
	return i.item.Title
}

func (i entryItem) Description() string {
	desc := i.item.ChannelTitle
	if i.item.PublishedAt != nil {
		published := i.item.PublishedAt.Format("2006-01-02")
		if desc == "" {
			return published
		}
		desc = fmt.Sprintf("%s • %s", desc, published)
	}
	return desc
}
