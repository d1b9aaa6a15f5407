package filestore

import (
	"io"
	"path"
	"strings"
	"time"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "uploads/sales.csv").
	Key string `json:"key"`

	// Size is the byte size of the object. -1 if unknown.
	Size int64 `json:"size"`

	ContentType  string    `json:"contentType,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"lastModified"`

	// IsDir is true for a virtual directory (common prefix).
	IsDir bool `json:"isDir,omitempty"`
}

// Ext returns the lower-cased extension of the key without the dot.
func (o ObjectInfo) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(o.Key)), ".")
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls how ListObjects filters results.
type ListOptions struct {
	// Prefix restricts results to keys starting with it.
	Prefix string

	// Recursive lists every object under the prefix instead of grouping
	// by virtual directory.
	Recursive bool

	// Limit caps the number of results. 0 means no cap.
	Limit int
}
