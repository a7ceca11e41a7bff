package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/dataset"
	"github.com/wesm/queryview/internal/pipeline"
)

type datasetResponse struct {
	Loaded   bool       `json:"loaded"`
	Version  uint64     `json:"version"`
	Source   string     `json:"source"`
	LoadedAt *time.Time `json:"loaded_at"`
	Records  int        `json:"records"`
	MinDate  string     `json:"min_date"`
	MaxDate  string     `json:"max_date"`
}

func describe(ds *dataset.Dataset, sourceName string) datasetResponse {
	if ds == nil {
		return datasetResponse{Source: sourceName}
	}
	lo, hi := ds.DateBounds()
	loadedAt := ds.LoadedAt
	return datasetResponse{
		Loaded:   true,
		Version:  ds.Version,
		Source:   ds.Source,
		LoadedAt: &loadedAt,
		Records:  ds.Len(),
		MinDate:  lo,
		MaxDate:  hi,
	}
}

func (s *Server) handleGetDataset(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, describe(s.store.Current(), s.store.SourceName()))
}

type rowsResponse struct {
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
	Rows   []dataset.Record `json:"rows"`
}

func (s *Server) handleListRows(
	w http.ResponseWriter, r *http.Request,
) {
	limit, ok := parseIntParam(w, r, "limit", defaultRowLimit, 1, maxRowLimit)
	if !ok {
		return
	}
	ds := s.store.Current()
	total := ds.Len()
	offset, ok := parseIntParam(w, r, "offset", 0, 0, max(total, 0))
	if !ok {
		return
	}

	rows := []dataset.Record{}
	if total > 0 {
		end := min(offset+limit, total)
		rows = ds.Records[offset:end]
	}
	writeJSON(w, http.StatusOK, rowsResponse{
		Total: total, Offset: offset, Limit: limit, Rows: rows,
	})
}

type summaryResponse struct {
	Records int              `json:"records"`
	Summary pipeline.Summary `json:"summary"`
}

// handleDatasetSummary reports the hierarchy counts over every
// loaded row, ignoring any selection.
func (s *Server) handleDatasetSummary(
	w http.ResponseWriter, _ *http.Request,
) {
	ds := s.store.Current()
	var records []dataset.Record
	if ds != nil {
		records = ds.Records
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Records: ds.Len(),
		Summary: pipeline.Summarize(records),
	})
}

func (s *Server) handleReload(
	w http.ResponseWriter, r *http.Request,
) {
	ds, err := s.store.Reload(r.Context())
	if err != nil {
		if handleContextError(w, err) {
			return
		}
		s.log.Warn("reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			"reload failed: "+err.Error())
		return
	}
	s.cache.Invalidate()
	writeJSON(w, http.StatusOK, describe(ds, s.store.SourceName()))
}
