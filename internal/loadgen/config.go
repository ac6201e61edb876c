// Package loadgen drives a running hot items service over HTTP and checks
// that the hot list agrees with the likes it acknowledged.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the service
	Items   int           // Number of items to create
	Likes   int           // Total likes to spread over the items
	TopN    int           // Size of the hot list to verify
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every failed request
}

// Stats holds run statistics.
type Stats struct {
	ItemsCreated  int
	ItemsFailed   int
	LikesSent     int
	LikesAccepted int
	LikesConflict int
	LikesFailed   int
	HotEntries    int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Entry is one row of the hot list as served over HTTP.
type Entry struct {
	Rank   int    `json:"rank"`
	ItemID string `json:"id"`
	Likes  int64  `json:"likes"`
}
