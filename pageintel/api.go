package pageintel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/1genadam/tileshop-rag-sub001/observability"
)

// RegisterHTTP mounts the read API on a chi router. Consumers must treat
// the open side-map as optional/sparse.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/api/v1/healthz", s.handleHealthz)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/families", s.handleFamilies)
	r.Get("/api/v1/records", s.handleListRecords)
	r.Get("/api/v1/records/sku/{sku}", s.handleRecordBySKU)
	r.Get("/api/v1/records/url", s.handleRecordByURL)
	r.Get("/api/v1/runs", s.handleRuns)
	r.Get("/api/v1/schema/names", s.handleSchemaNames)

	r.Post("/api/v1/extract", s.requireAdmin(s.handleExtract))
	r.Post("/api/v1/refdata/reload", s.requireAdmin(s.handleRefDataReload))
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"refdata_version": s.refdata.Version(),
	})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleFamilies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Families())
}

func (s *Service) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	family := Family(r.URL.Query().Get("family"))
	if family != "" && !family.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("unknown family"))
		return
	}
	records, err := s.Records(r.Context(), family, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Service) handleRecordBySKU(w http.ResponseWriter, r *http.Request) {
	rec, err := s.RecordBySKU(r.Context(), chi.URLParam(r, "sku"))
	s.writeRecord(w, rec, err)
}

func (s *Service) handleRecordByURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing url parameter"))
		return
	}
	rec, err := s.RecordByURL(r.Context(), url)
	s.writeRecord(w, rec, err)
}

func (s *Service) writeRecord(w http.ResponseWriter, rec *ProductRecord, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.Runs(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Service) handleSchemaNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.CanonicalNames())
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string   `json:"url"`
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch {
	case req.URL != "":
		rec, rep, err := s.Extract(r.Context(), req.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec, "report": rep})
	case len(req.URLs) > 0:
		writeJSON(w, http.StatusOK, s.ExtractAll(r.Context(), req.URLs))
	default:
		writeError(w, http.StatusBadRequest, errors.New("url or urls required"))
	}
}

func (s *Service) handleRefDataReload(w http.ResponseWriter, r *http.Request) {
	err := s.refdata.Reload()
	if s.events != nil {
		detail := "version=" + s.refdata.Version()
		if err != nil {
			detail = err.Error()
		}
		s.events.Log(r.Context(), observability.Event{
			Type:    observability.EventRefDataReload,
			Detail:  detail,
			Success: err == nil,
		})
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": s.refdata.Version()})
}

// requireAdmin gates mutating endpoints behind the configured bcrypt
// password hash (basic auth). No hash configured = endpoints disabled.
func (s *Service) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminPasswordHash == "" {
			writeError(w, http.StatusForbidden, errors.New("admin endpoints disabled"))
			return
		}
		_, password, ok := r.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword(
			[]byte(s.config.AdminPasswordHash), []byte(password)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="pageintel"`)
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
