package storage

import (
	"context"
	"fmt"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	GetPublicURL(key string) string
}

// BracketArchiveKey is the object key of a finished tournament's bracket.
func BracketArchiveKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/bracket.json", tournamentID)
}
