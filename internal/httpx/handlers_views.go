package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"archiplane/internal/adapter"
	"archiplane/internal/apperr"
	"archiplane/internal/layout"
	"archiplane/internal/model"
	"archiplane/internal/render"
	"archiplane/internal/routing"
)

// handleViewsList answers GET /views.
func (s *Server) handleViewsList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	WriteData(w, http.StatusOK, snap.ListViews(), start)
}

// handleViewsGet answers GET /views/{id}.
func (s *Server) handleViewsGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.ViewID(chi.URLParam(r, "id"))
	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	v, ok := snap.GetView(id)
	if !ok {
		WriteError(w, apperr.NewNotFound("view "+string(id)+" not found"))
		return
	}
	WriteData(w, http.StatusOK, v, start)
}

type createViewRequest struct {
	Name      string         `json:"name"`
	Viewpoint string         `json:"viewpoint"`
	FolderID  model.FolderID `json:"folderId"`
}

// handleViewsCreate answers POST /views.
func (s *Server) handleViewsCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req createViewRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var created *model.View
	err := s.Actor.Do(r.Context(), func(m *model.Model) error {
		c := s.UndoLog.Begin("createView")
		v, err := adapter.CreateView(m, c, req.Name, req.Viewpoint, req.FolderID)
		if err != nil {
			return apperr.Wrap(err, "createView")
		}
		s.UndoLog.Commit(c)
		created = v
		return nil
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusCreated, created, start)
}

// handleViewsDelete answers DELETE /views/{id}.
func (s *Server) handleViewsDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.ViewID(chi.URLParam(r, "id"))

	err := s.Actor.Do(r.Context(), func(m *model.Model) error {
		c := s.UndoLog.Begin("deleteView")
		if err := adapter.DeleteView(m, c, id); err != nil {
			return apperr.Wrap(err, "deleteView")
		}
		s.UndoLog.Commit(c)
		return nil
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"id": string(id)}, start)
}

// layoutRequest is the body of POST /views/{id}/layout.
type layoutRequest struct {
	Algorithm string  `json:"algorithm"`
	Direction string  `json:"direction"`
	NodeSep   float64 `json:"nodeSep"`
	RankSep   float64 `json:"rankSep"`
	Padding   float64 `json:"padding"`
}

// handleViewLayout answers POST /views/{id}/layout (C7).
func (s *Server) handleViewLayout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.ViewID(chi.URLParam(r, "id"))

	opts := layout.DefaultOptions()
	if r.ContentLength != 0 {
		var req layoutRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
		if req.Algorithm != "" {
			opts.Algorithm = layout.Algorithm(req.Algorithm)
		}
		if req.Direction != "" {
			opts.Direction = layout.Direction(req.Direction)
		}
		if req.NodeSep != 0 {
			opts.NodeSep = req.NodeSep
		}
		if req.RankSep != 0 {
			opts.RankSep = req.RankSep
		}
		if req.Padding != 0 {
			opts.Padding = req.Padding
		}
	}

	ctx := r.Context()
	if s.Tracer != nil {
		var span trace.Span
		ctx, span = s.Tracer.StartLayoutSpan(ctx, string(id), string(opts.Algorithm))
		defer span.End()
	}

	err := s.Actor.Do(ctx, func(m *model.Model) error {
		v, ok := m.GetView(id)
		if !ok {
			return apperr.NewNotFound("view " + string(id) + " not found")
		}
		if err := layout.Run(v, opts); err != nil {
			return apperr.Wrap(err, "layout")
		}
		return nil
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"id": string(id)}, start)
}

// exportQuery reads /views/{id}/export's format/scale/margin query params.
// render.Export itself validates scale's 0.5-4.0 bound, so an out-of-range
// or unparsable value is passed through rather than clamped here.
func exportQuery(r *http.Request) render.Options {
	opts := render.Options{Format: render.FormatPNG, Scale: 1.0, Margin: 20}
	q := r.URL.Query()
	if f := q.Get("format"); f == "jpeg" {
		opts.Format = render.FormatJPEG
	}
	if s := q.Get("scale"); s != "" {
		if scale, err := strconv.ParseFloat(s, 64); err == nil {
			opts.Scale = scale
		}
	}
	if mg := q.Get("margin"); mg != "" {
		if margin, err := strconv.ParseFloat(mg, 64); err == nil {
			opts.Margin = margin
		}
	}
	return opts
}

// handleViewExport answers POST /views/{id}/export (C9). It returns raw
// image bytes rather than the JSON envelope — spec.md §6: "raw-style
// endpoints return the unwrapped payload."
func (s *Server) handleViewExport(w http.ResponseWriter, r *http.Request) {
	id := model.ViewID(chi.URLParam(r, "id"))
	opts := exportQuery(r)

	snap, err := s.Actor.Snapshot(r.Context())
	if err != nil {
		WriteError(w, apperr.NewFatal("model actor unreachable", err))
		return
	}
	v, ok := snap.GetView(id)
	if !ok {
		WriteError(w, apperr.NewNotFound("view "+string(id)+" not found"))
		return
	}

	start := time.Now()
	data, err := render.Export(snap, v, opts)
	if s.Metrics != nil {
		s.Metrics.ExportDuration.WithLabelValues(string(opts.Format)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		WriteError(w, apperr.Wrap(err, "export"))
		return
	}

	contentType := "image/png"
	if opts.Format == render.FormatJPEG {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// routerRequest is the body of PUT /views/{id}/router.
type routerRequest struct {
	Style string `json:"style"`
}

// handleViewRouter answers PUT /views/{id}/router.
func (s *Server) handleViewRouter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := model.ViewID(chi.URLParam(r, "id"))
	var req routerRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	err := s.Actor.Do(r.Context(), func(m *model.Model) error {
		c := s.UndoLog.Begin("setRouterStyle")
		if err := routing.SetRouterStyle(m, c, id, model.RouterStyle(req.Style)); err != nil {
			return apperr.Wrap(err, "setRouterStyle")
		}
		s.UndoLog.Commit(c)
		return nil
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"id": string(id), "style": req.Style}, start)
}
