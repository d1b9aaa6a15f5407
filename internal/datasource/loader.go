package datasource

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/filestore"
	"github.com/koustreak/datamodeler/internal/logger"
)

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from a file name's extension.
func FormatOf(name string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")); f {
	case FormatCSV, FormatTSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported data source %q: expected .csv, .tsv, .json or .xlsx", name)
}

// TableName derives a table name from a file name: "uploads/Q3 sales.csv"
// becomes "Q3 sales".
func TableName(name string) string {
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Parse reads r in the given format. opts applies to CSV and TSV only;
// its Name is used for every format.
func Parse(r io.Reader, format Format, opts CSVOptions) (*Dataset, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r, opts)
	case FormatTSV:
		opts.Delimiter = '\t'
		return ParseCSV(r, opts)
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read JSON", err)
		}
		return ParseJSON(data, opts.Name)
	case FormatXLSX:
		return ParseXLSX(r, "", opts.Name)
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported format %q", format)
}

// ParseFile reads a local file, choosing the parser by extension.
func ParseFile(name string) (*Dataset, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "data source "+name, err)
		}
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "open "+name, err)
	}
	defer f.Close()
	return Parse(f, format, DefaultCSVOptions(TableName(name)))
}

// Loader reads uploaded data sources from object storage.
type Loader struct {
	store  filestore.Store
	bucket string
	log    *logger.Logger
}

// NewLoader reads from bucket in store.
func NewLoader(store filestore.Store, bucket string, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{store: store, bucket: bucket, log: log.Component("datasource")}
}

// List returns the objects under prefix that Load can parse.
func (l *Loader) List(ctx context.Context, prefix string) ([]filestore.ObjectInfo, error) {
	objs, err := l.store.ListObjects(ctx, l.bucket, filestore.ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		return nil, err
	}
	out := make([]filestore.ObjectInfo, 0, len(objs))
	for _, o := range objs {
		if o.IsDir {
			continue
		}
		if _, err := FormatOf(o.Key); err == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

// Load fetches key and parses it by extension with default options.
func (l *Loader) Load(ctx context.Context, key string) (*Dataset, error) {
	format, err := FormatOf(key)
	if err != nil {
		return nil, err
	}
	obj, err := l.store.GetObject(ctx, l.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	ds, err := Parse(obj, format, DefaultCSVOptions(TableName(key)))
	if err != nil {
		return nil, err
	}
	l.log.With().Str("key", key).Int("rows", len(ds.Rows)).Int("columns", len(ds.Table.Columns)).Logger().Info("data source loaded")
	return ds, nil
}
