package export

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/koustreak/datamodeler/internal/filestore"
	"github.com/koustreak/datamodeler/internal/logger"
)

// DocumentPrefix is where saved documents live inside the bucket.
const DocumentPrefix = "documents/"

// Archive saves and loads documents in object storage.
type Archive struct {
	store  filestore.Store
	bucket string
	log    *logger.Logger
}

// NewArchive returns an Archive over bucket.
func NewArchive(store filestore.Store, bucket string, log *logger.Logger) *Archive {
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{store: store, bucket: bucket, log: log.Component("archive")}
}

// Save writes doc under DocumentPrefix, named after the model and encoded
// by enc. It returns the object key.
func (a *Archive) Save(ctx context.Context, doc *Document, enc Encoding) (string, error) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc, enc); err != nil {
		return "", err
	}
	key := DocumentPrefix + documentName(doc) + "." + string(enc)
	info, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), enc.ContentType())
	if err != nil {
		return "", err
	}
	a.log.InfoWith("document saved", map[string]any{"key": info.Key, "size": info.Size})
	return info.Key, nil
}

// Load reads the document stored at key.
func (a *Archive) Load(ctx context.Context, key string) (*Document, error) {
	if _, err := EncodingOf(key); err != nil {
		return nil, err
	}
	obj, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return ReadDocument(obj)
}

func documentName(doc *Document) string {
	name := strings.TrimSpace(doc.ModelName)
	if name == "" {
		name = "untitled"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '-'
		}
		return r
	}, name)
	return path.Clean(name) + "-" + doc.Timestamp.UTC().Format("20060102T150405Z")
}
