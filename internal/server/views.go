package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/pipeline"
)

// computeViews runs the cached pipeline for the request's
// selection and writes the error or no-data response itself.
// ok is false when the caller should stop.
func (s *Server) computeViews(
	w http.ResponseWriter, r *http.Request, topN int,
) (pipeline.Views, bool) {
	sel, ok := parseSelection(w, r)
	if !ok {
		return pipeline.Views{}, false
	}
	views, err := s.cache.Views(s.store.Current(), sel, topN)
	switch {
	case err == nil:
		return views, true
	case errors.Is(err, pipeline.ErrNoData):
		writeJSON(w, http.StatusOK, noData{
			NoData: true, Selection: views.Selection,
		})
	case errors.Is(err, pipeline.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("computing views", zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			"internal server error")
	}
	return pipeline.Views{}, false
}

func (s *Server) handleViews(
	w http.ResponseWriter, r *http.Request,
) {
	views, ok := s.computeViews(w, r, s.cfg.TopN)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type viewersResponse struct {
	Selection     pipeline.Selection     `json:"selection"`
	Records       int                    `json:"records"`
	Summary       pipeline.Summary       `json:"summary"`
	ViewersByDate []pipeline.DateViewers `json:"viewers_by_date"`
	ViewersByPage []pipeline.PageViewers `json:"viewers_by_page"`
}

func (s *Server) handleViewers(
	w http.ResponseWriter, r *http.Request,
) {
	views, ok := s.computeViews(w, r, s.cfg.TopN)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewersResponse{
		Selection:     views.Selection,
		Records:       views.Records,
		Summary:       views.Summary,
		ViewersByDate: views.ViewersByDate,
		ViewersByPage: views.ViewersByPage,
	})
}

type performanceResponse struct {
	Selection      pipeline.Selection       `json:"selection"`
	Statistics     []string                 `json:"statistics"`
	DailyQuantiles []pipeline.DailyStats    `json:"daily_quantiles"`
	Performance    []pipeline.QuantilePoint `json:"performance"`
}

func (s *Server) handlePerformance(
	w http.ResponseWriter, r *http.Request,
) {
	views, ok := s.computeViews(w, r, s.cfg.TopN)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, performanceResponse{
		Selection:      views.Selection,
		Statistics:     pipeline.Statistics,
		DailyQuantiles: views.DailyQuantiles,
		Performance:    views.Performance,
	})
}

type topQueriesResponse struct {
	Selection  pipeline.Selection  `json:"selection"`
	TopQueries []pipeline.TopQuery `json:"top_queries"`
}

func (s *Server) handleTopQueries(
	w http.ResponseWriter, r *http.Request,
) {
	limit, ok := parseIntParam(w, r, "limit", s.cfg.TopN, 1, maxTopQueries)
	if !ok {
		return
	}
	views, ok := s.computeViews(w, r, limit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, topQueriesResponse{
		Selection:  views.Selection,
		TopQueries: views.TopQueries,
	})
}

func (s *Server) handleOptions(
	w http.ResponseWriter, r *http.Request,
) {
	sel, ok := parseSelection(w, r)
	if !ok {
		return
	}
	opts, err := pipeline.BuildOptions(s.store.Current(), sel)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("building options", zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			"internal server error")
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
