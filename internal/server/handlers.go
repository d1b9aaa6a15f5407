package server

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/koustreak/datamodeler/internal/datasource"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/formula"
	"github.com/koustreak/datamodeler/internal/metrics"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/sqlgen"
	"github.com/koustreak/datamodeler/internal/view"
)

var errNoStorage = errs.New(errs.ErrKindInvalidInput, "object storage is not configured")

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFunctions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"functions": formula.Functions()})
}

type evaluateRequest struct {
	Formula string         `json:"formula"`
	Row     model.Row      `json:"row"`
	Columns []model.Column `json:"columns"`
}

// handleEvaluate never fails on a bad formula: the result is "#ERROR",
// exactly what a grid cell would show.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"result": formula.Evaluate(req.Formula, req.Row, req.Columns)}
	if _, err := formula.Compile(req.Formula); err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type modelSQLRequest struct {
	Tables        []model.Table        `json:"tables"`
	Relationships []model.Relationship `json:"relationships"`
}

func (s *Server) handleModelSQL(w http.ResponseWriter, r *http.Request) {
	var req modelSQLRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sql": sqlgen.ModelSQL(req.Tables, req.Relationships)})
}

type querySQLRequest struct {
	State         sqlgen.State `json:"state"`
	Parameterized bool         `json:"parameterized"`
	Dialect       string       `json:"dialect"`
}

func (s *Server) handleQuerySQL(w http.ResponseWriter, r *http.Request) {
	var req querySQLRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.Parameterized {
		sql, err := sqlgen.Render(req.State)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sql": sql})
		return
	}

	d := s.deps.Dialect
	if req.Dialect != "" {
		var err error
		if d, err = sqlgen.ParseDialect(req.Dialect); err != nil {
			writeError(w, r, err)
			return
		}
	}
	q, err := sqlgen.Parameterized(req.State, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sql": q.SQL, "args": q.Args, "dialect": d.String()})
}

type executeRequest struct {
	SQL   string        `json:"sql"`
	Args  []any         `json:"args"`
	State *sqlgen.State `json:"state"`
}

// handleExecute runs either raw SQL or a query-builder state, the latter
// always with bound parameters.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sql, args := strings.TrimSpace(req.SQL), req.Args
	if req.State != nil {
		q, err := sqlgen.Parameterized(*req.State, s.deps.Dialect)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sql, args = q.SQL, q.Args
	}
	if sql == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "sql or state is required"))
		return
	}

	rs, err := s.deps.Executor.Execute(r.Context(), sql, args...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sql":         sql,
		"columns":     rs.Columns,
		"rows":        rs.Rows,
		"duration_ms": rs.Duration.Milliseconds(),
	})
}

// csvOptions reads CSV upload settings from the query string:
// ?name=sales&delimiter=;&header=true&trim=false&infer=true
func csvOptions(r *http.Request) (datasource.CSVOptions, error) {
	q := r.URL.Query()
	opts := datasource.DefaultCSVOptions(q.Get("name"))
	if opts.Name == "" {
		opts.Name = "upload"
	}
	if d := q.Get("delimiter"); d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		ru, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return opts, errs.Newf(errs.ErrKindInvalidInput, "delimiter must be one character, got %q", d)
		}
		opts.Delimiter = ru
	}
	for key, dst := range map[string]*bool{"header": &opts.Header, "trim": &opts.Trim, "infer": &opts.InferTypes} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.Newf(errs.ErrKindInvalidInput, "%s must be true or false, got %q", key, v)
		}
		*dst = b
	}
	return opts, nil
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := csvOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := datasource.ParseCSV(r.Body, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "read body", err))
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	ds, err := datasource.ParseJSON(buf.Bytes(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	if s.deps.Loader == nil {
		writeError(w, r, errNoStorage)
		return
	}
	objs, err := s.deps.Loader.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objs})
}

func (s *Server) handleLoadSource(w http.ResponseWriter, r *http.Request) {
	if s.deps.Loader == nil {
		writeError(w, r, errNoStorage)
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := s.deps.Loader.Load(r.Context(), req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

type viewRequest struct {
	View  view.State  `json:"view"`
	Edits []view.Edit `json:"edits"`
}

// processView applies the request's edits and computes the displayed rows.
func processView(r *http.Request) (view.State, []model.Row, error) {
	var req viewRequest
	if err := decode(r, &req); err != nil {
		return view.State{}, nil, err
	}
	st, err := req.View.ApplyEdits(req.Edits)
	if err != nil {
		return st, nil, err
	}
	return st, st.Processed(), nil
}

func (s *Server) handleViewProcess(w http.ResponseWriter, r *http.Request) {
	st, rows, err := processView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": st, "rows": rows})
}

func (s *Server) handleViewExportCSV(w http.ResponseWriter, r *http.Request) {
	st, rows, err := processView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, st.ColumnNames(), rows); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(st.Name, "csv"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleViewExportXLSX(w http.ResponseWriter, r *http.Request) {
	st, rows, err := processView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, st.Name, st.ColumnNames(), rows); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(st.Name, "xlsx"))
	_, _ = w.Write(buf.Bytes())
}

func attachment(name, ext string) string {
	if strings.TrimSpace(name) == "" {
		name = "export"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name + "." + ext})
}

type metricsRequest struct {
	Dashboard metrics.Dashboard `json:"dashboard"`
	Rows      []model.Row       `json:"rows"`
	Table     string            `json:"table"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Dashboard.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"values": req.Dashboard.Compute(req.Rows)}
	if req.Table != "" {
		q, err := req.Dashboard.SQL(req.Table)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp["sql"] = q
	}
	writeJSON(w, http.StatusOK, resp)
}

type modelExportRequest struct {
	ActiveTab string       `json:"activeTab"`
	Model     *model.Model `json:"model"`
	Views     []view.State `json:"views"`
	Format    string       `json:"format"`
	Save      bool         `json:"save"`
}

// handleModelExport returns the document, or with save set stores it in
// object storage and returns its key.
func (s *Server) handleModelExport(w http.ResponseWriter, r *http.Request) {
	var req modelExportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	enc, err := export.ParseEncoding(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Model != nil {
		if err := req.Model.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}
	doc := export.NewDocument(req.ActiveTab, req.Model, s.deps.Now())
	doc.Views = req.Views

	if req.Save {
		if s.deps.Archive == nil {
			writeError(w, r, errNoStorage)
			return
		}
		key, err := s.deps.Archive.Save(r.Context(), doc, enc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDocument(&buf, doc, enc); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Content-Disposition", attachment(doc.ModelName, string(enc)))
	_, _ = w.Write(buf.Bytes())
}

// handleModelImport decodes a document from the body, or with ?key= loads
// it from object storage.
func (s *Server) handleModelImport(w http.ResponseWriter, r *http.Request) {
	var (
		doc *export.Document
		err error
	)
	if key := r.URL.Query().Get("key"); key != "" {
		if s.deps.Archive == nil {
			writeError(w, r, errNoStorage)
			return
		}
		doc, err = s.deps.Archive.Load(r.Context(), key)
	} else {
		doc, err = export.ReadDocument(r.Body)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
