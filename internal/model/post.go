package model

import "time"

// Account is one row of the monitored-accounts sheet. The list is re-read at
// the start of every run and never cached across runs.
type Account struct {
	Handle  string `json:"handle"`
	Notes   string `json:"notes,omitempty"`
	Enabled bool   `json:"enabled"`
}

// FetchedPost is one post as returned by the content fetcher. It lives only
// for the duration of a single run and is never persisted as-is.
type FetchedPost struct {
	PostID        string
	AccountHandle string
	PostURL       string
	MediaURL      string
	Caption       string
	Hashtags      []string
	Transcript    string
	PublishedAt   time.Time
}

// Summary is the payload handed to the notifier for one processed post.
type Summary struct {
	AccountHandle string
	PostURL       string
	Caption       string
	Transcript    string
	Hashtags      []string
	ArchiveRef    string
	PublishedAt   time.Time
}
