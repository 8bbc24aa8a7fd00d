// Package queue defines message payloads exchanged over the message broker
// and the thumbnail worker that consumes them.
package queue

// ThumbnailJobEvent is published when a movie is created. It carries enough
// information for the worker to locate the stored video without querying the
// primary database.
type ThumbnailJobEvent struct {
	MovieID     uint64 `json:"movie_id"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path"`
	RequestedAt string `json:"requested_at"`
}
