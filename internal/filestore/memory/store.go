// Package memory provides an in-process filestore.Store. Objects live
// only as long as the Store; it serves local runs without MinIO.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/filestore"
)

var _ filestore.Store = (*Store)(nil)

type entry struct {
	data []byte
	info filestore.ObjectInfo
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]entry
	now     func() time.Time
}

// New returns a Store holding the given buckets, all empty.
func New(buckets ...string) *Store {
	s := &Store{buckets: make(map[string]map[string]entry), now: time.Now}
	for _, b := range buckets {
		s.buckets[b] = make(map[string]entry)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

// ListObjects lists keys under opts.Prefix in key order. Without
// Recursive, deeper keys collapse into one directory entry each.
func (s *Store) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "list cancelled", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}

	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []filestore.ObjectInfo
	dirs := make(map[string]bool)
	for _, k := range keys {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		if !opts.Recursive {
			if i := strings.Index(k[len(opts.Prefix):], "/"); i >= 0 {
				dir := k[:len(opts.Prefix)+i+1]
				if !dirs[dir] {
					dirs[dir] = true
					out = append(out, filestore.ObjectInfo{Key: dir, Size: -1, IsDir: true})
				}
				continue
			}
		}
		out = append(out, objs[k].info)
	}
	return out, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "get cancelled", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.buckets[bucket][key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	info := e.info
	return &object{Reader: bytes.NewReader(e.data), info: &info}, nil
}

// PutObject stores a copy of r. size is checked when non-negative.
func (s *Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "object key is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "read object body", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %q: got %d bytes, want %d", key, len(data), size)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "put cancelled", err)
	}

	sum := md5.Sum(data)
	info := filestore.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", bucket)
	}
	objs[key] = entry{data: data, info: info}
	return &info, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error                { return nil }
func (o *object) Info() *filestore.ObjectInfo { return o.info }
