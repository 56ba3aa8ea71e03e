package httpx

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/diagnostics"
	"archiplane/internal/model"
	"archiplane/internal/persist"
	"archiplane/internal/resolver"
	"archiplane/internal/validate"
)

// handleHealth answers GET /health: liveness plus a quick model status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	WriteData(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
		"stats":  diagnostics.StatsOf(snap),
	}, start)
}

// modelQueryRequest is the body of POST /model/query.
type modelQueryRequest struct {
	SampleSize int `json:"sampleSize"`
}

// handleModelQuery answers POST /model/query: a model summary plus a
// bounded sample of elements.
func (s *Server) handleModelQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req modelQueryRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
	}
	if req.SampleSize <= 0 {
		req.SampleSize = 20
	}

	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}

	all := snap.AllElements()
	if len(all) > req.SampleSize {
		all = all[:req.SampleSize]
	}
	WriteData(w, http.StatusOK, map[string]any{
		"stats":  diagnostics.StatsOf(snap),
		"sample": all,
	}, start)
}

// handleModelSearch answers POST /model/search.
func (s *Server) handleModelSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var opts diagnostics.SearchOptions
	if err := decodeJSON(r, &opts); err != nil {
		WriteError(w, err)
		return
	}

	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	elements, err := diagnostics.Search(snap, opts)
	if err != nil {
		WriteError(w, apperr.Wrap(err, "search"))
		return
	}
	WriteData(w, http.StatusOK, elements, start)
}

// parseApplyLikeBody reads the raw BOM body and builds a resolver seeded
// from it and from any idFiles it names, shared by /model/plan and
// /model/apply.
func parseApplyLikeBody(r *http.Request, resolveNames bool) (*bom.Document, *resolver.Resolver, map[string]string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, nil, apperr.NewUsage("could not read request body: " + err.Error())
	}
	doc, err := bom.ParseDocument(data)
	if err != nil {
		return nil, nil, nil, apperr.NewUsage(err.Error())
	}

	idFileMap := map[string]string{}
	for _, p := range doc.IDFiles {
		loaded, err := bom.LoadIDFile(p)
		if err != nil {
			return nil, nil, nil, apperr.NewUsage("loading idFile " + p + ": " + err.Error())
		}
		for k, v := range loaded {
			idFileMap[k] = v
		}
	}

	res := resolver.New(idFileMap, resolveNames)
	res.RegisterTempIDs(doc)
	return doc, res, idFileMap, nil
}

// handleModelPlan answers POST /model/plan: validates a BOM against the
// live model without executing it, surfacing every issue found (spec.md
// §4.2's dry-run mode).
func (s *Server) handleModelPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resolveNames := r.URL.Query().Get("resolveNames") == "true"
	policy := validate.DuplicatePolicy(r.URL.Query().Get("duplicateStrategy"))
	if policy == "" {
		policy = validate.DuplicateError
	}

	doc, res, _, err := parseApplyLikeBody(r, resolveNames)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, perr := s.Actor.DoRead(r.Context(), func(m *model.Model) (any, error) {
		return validate.Preflight(doc, m, res, policy, false)
	})
	if perr != nil {
		WriteError(w, apperr.Wrap(perr, "plan"))
		return
	}
	WriteData(w, http.StatusOK, result.(*validate.Result), start)
}

// handleModelElement answers GET /model/element/{id}: element detail plus
// its relationships and the views it appears in.
func (s *Server) handleModelElement(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.ElementID(chi.URLParam(r, "id"))

	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	elem, ok := snap.GetElement(id)
	if !ok {
		WriteError(w, apperr.NewNotFound("element "+string(id)+" not found"))
		return
	}

	var rels []*model.Relationship
	for _, rel := range snap.AllRelationships() {
		if rel.SourceID == id || rel.TargetID == id {
			rels = append(rels, rel)
		}
	}

	var views []model.ViewID
	for _, v := range snap.ListViews() {
		for _, obj := range v.Objects {
			if obj.ElementID == id {
				views = append(views, v.ID)
				break
			}
		}
	}

	WriteData(w, http.StatusOK, map[string]any{
		"element":       elem,
		"relationships": rels,
		"views":         views,
	}, start)
}

// handleModelStats answers GET /model/stats.
func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	WriteData(w, http.StatusOK, diagnostics.StatsOf(snap), start)
}

// handleModelDiagnostics answers GET /model/diagnostics.
func (s *Server) handleModelDiagnostics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	report := diagnostics.Run(snap)
	if s.Metrics != nil {
		counts := map[diagnostics.Kind]int{}
		for _, f := range report.Findings {
			counts[f.Kind]++
		}
		for kind, n := range counts {
			s.Metrics.DiagnosticsFindings.WithLabelValues(string(kind)).Set(float64(n))
		}
	}
	WriteData(w, http.StatusOK, report, start)
}

// modelSaveRequest is the body of POST /model/save.
type modelSaveRequest struct {
	Path string `json:"path"`
}

// handleModelSave answers POST /model/save.
func (s *Server) handleModelSave(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req modelSaveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
	}

	var savedPath string
	doErr := s.Actor.Do(r.Context(), func(m *model.Model) error {
		if err := persist.Save(m, req.Path); err != nil {
			return apperr.NewExecution("save failed", err)
		}
		savedPath = m.SavePath()
		return nil
	})
	if doErr != nil {
		WriteError(w, apperr.Wrap(doErr, "save"))
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"path": savedPath}, start)
}
