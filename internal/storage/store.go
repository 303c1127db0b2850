// Package storage persists encoded audio artifacts and hands back
// time-limited access URLs.
package storage

import "context"

// ObjectStore uploads a finished artifact and returns a URL a client can
// fetch it from for a limited time.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (url string, err error)
}
