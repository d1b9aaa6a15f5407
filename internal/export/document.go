package export

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"strings"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/metrics"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/view"
	"go.yaml.in/yaml/v3"
)

// Encoding selects the document serialization.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// ParseEncoding accepts json, yaml or yml; empty means json.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return EncodingJSON, nil
	case "yaml", "yml":
		return EncodingYAML, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown document encoding %q", s)
}

// EncodingOf picks the encoding from a file name's extension.
func EncodingOf(name string) (Encoding, error) {
	return ParseEncoding(strings.TrimPrefix(path.Ext(name), "."))
}

// ContentType is the MIME type written alongside a document.
func (e Encoding) ContentType() string {
	if e == EncodingYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Document is the saved state of a modeling session.
type Document struct {
	ActiveTab  string              `json:"activeTab" yaml:"activeTab"`
	Timestamp  time.Time           `json:"timestamp" yaml:"timestamp"`
	ModelName  string              `json:"modelName" yaml:"modelName"`
	Model      *model.Model        `json:"model,omitempty" yaml:"model,omitempty"`
	Views      []view.State        `json:"views,omitempty" yaml:"views,omitempty"`
	Dashboards []metrics.Dashboard `json:"dashboards,omitempty" yaml:"dashboards,omitempty"`
}

// NewDocument snapshots m at now. ModelName follows the model.
func NewDocument(activeTab string, m *model.Model, now time.Time) *Document {
	d := &Document{ActiveTab: activeTab, Timestamp: now.UTC(), Model: m}
	if m != nil {
		d.ModelName = m.Name
	}
	return d
}

// WriteDocument encodes doc to w.
func WriteDocument(w io.Writer, doc *Document, enc Encoding) error {
	switch enc {
	case EncodingYAML:
		ye := yaml.NewEncoder(w)
		ye.SetIndent(2)
		if err := ye.Encode(doc); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "encode yaml document", err)
		}
		if err := ye.Close(); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "encode yaml document", err)
		}
		return nil
	case EncodingJSON, "":
		je := json.NewEncoder(w)
		je.SetIndent("", "  ")
		if err := je.Encode(doc); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "encode json document", err)
		}
		return nil
	}
	return errs.Newf(errs.ErrKindInvalidInput, "unknown document encoding %q", enc)
}

// ReadDocument decodes a JSON or YAML document. Input starting with '{'
// is read as JSON and anything else as YAML.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "read document", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "document is empty")
	}

	var doc Document
	if data[0] == '{' {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid document", err)
	}
	if doc.Model != nil {
		if err := doc.Model.Validate(); err != nil {
			return nil, err
		}
		if doc.ModelName == "" {
			doc.ModelName = doc.Model.Name
		}
	}
	return &doc, nil
}
