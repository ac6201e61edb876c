// Package model contains domain models passed between layers.
package model

import "time"

// Item is a user-authored entry ranked by its like count.
type Item struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"user_id"`
	Likes     int64     `json:"likes"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Liked returns a copy with one more like.
func (it Item) Liked() Item {
	it.Likes++
	return it
}

// ByLikesDesc orders items by likes descending, then id ascending.
func ByLikesDesc(a, b Item) int {
	switch {
	case a.Likes > b.Likes:
		return -1
	case a.Likes < b.Likes:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}
