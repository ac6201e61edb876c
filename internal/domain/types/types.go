// Package types contains common types used across the application
package types

import "github.com/okian/hotitems/internal/domain/model"

// Entry represents a ranked hot item
type Entry struct {
	Rank    int    `json:"rank"`
	ItemID  string `json:"id"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
	Likes   int64  `json:"likes"`
}

// Ranked converts items, already in rank order, into entries numbered from 1.
func Ranked(items []model.Item) []Entry {
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{
			Rank:    i + 1,
			ItemID:  it.ID,
			Content: it.Content,
			UserID:  it.OwnerID,
			Likes:   it.Likes,
		}
	}
	return out
}
