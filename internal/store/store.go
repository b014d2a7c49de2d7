// Package store persists uploaded images and audit records in a blob
// store. Persistence is best-effort: callers decide whether a failure is
// fatal, the store only reports it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aphidlab/inference-gateway/internal/detect"
)

// Record is the persisted JSON description of one inference request.
// Written once at request time, never modified afterwards. The blob name
// fields are present only when the corresponding write succeeded.
type Record struct {
	RequestID       string             `json:"request_id"`
	CreatedAt       time.Time          `json:"created_at"`
	Filename        string             `json:"filename"`
	Count           int                `json:"count"`
	Detections      []detect.Detection `json:"detections"`
	Params          detect.Params      `json:"params"`
	ImageBlobName   string             `json:"image_blob_name,omitempty"`
	ImageBlobURL    string             `json:"image_blob_url,omitempty"`
	HistoryBlobName string             `json:"history_blob_name,omitempty"`
}

// Store is a façade over a blob store with two logical namespaces, one
// for images and one for audit records. Writes overwrite on name
// conflict; every request owns uniquely named objects so there are no
// read-modify-write races.
type Store interface {
	// PutImage stores an uploaded image and returns its blob URL.
	PutImage(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// PutRecord stores an audit record as JSON and returns its blob URL.
	PutRecord(ctx context.Context, name string, record *Record) (string, error)
	// ListRecordNames returns up to limit record blob names, newest
	// first. Names are time-prefixed, so lexicographically descending
	// order is reverse-chronological order.
	ListRecordNames(ctx context.Context, limit int) ([]string, error)
	// GetRecord fetches and decodes one record. An unparsable blob
	// yields a *DecodeError.
	GetRecord(ctx context.Context, name string) (map[string]any, error)
}

// DecodeError marks a stored record that could not be parsed. A single
// corrupted record must not abort a listing; callers report it inline.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record %s is unreadable: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
