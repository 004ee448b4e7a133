// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"product-matcher/internal/common/config"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
	"product-matcher/internal/processor"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"
)

// Dispatch hands an accepted job to the background processor. The server
// never blocks a request on row processing.
type Dispatch func(jobID string)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	jobs       processor.JobRepository
	results    processor.ResultRepository
	dispatch   Dispatch
	validate   *validator.Validate
	jobSchema  *gojsonschema.Schema
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	jobs processor.JobRepository,
	results processor.ResultRepository,
	dispatch Dispatch,
) (*Server, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submitJobSchema))
	if err != nil {
		return nil, fmt.Errorf("compile job schema: %w", err)
	}

	s := &Server{
		config:    cfg,
		logger:    log,
		jobs:      jobs,
		results:   results,
		dispatch:  dispatch,
		validate:  validator.New(),
		jobSchema: schema,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/match-jobs", s.handleSubmitJob).Methods(http.MethodPost)
	v1.HandleFunc("/match-jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	v1.HandleFunc("/match-jobs/{id}/results", s.handleListResults).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitJobRequest struct {
	SheetData []models.RowMap       `json:"sheetData"`
	Providers []string              `json:"providers"`
	Criteria  models.SearchCriteria `json:"criteria"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	docLoader := gojsonschema.NewBytesLoader(body)
	validation, err := s.jobSchema.Validate(docLoader)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validation.Valid() {
		writeError(w, http.StatusBadRequest, schemaErrorMessage(validation))
		return
	}

	var req submitJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.validate.Struct(req.Criteria); err != nil {
		writeError(w, http.StatusBadRequest, "invalid criteria: "+err.Error())
		return
	}

	job := &models.MatcherJob{
		ID:        uuid.NewString(),
		SheetData: req.SheetData,
		Providers: req.Providers,
		Criteria:  req.Criteria,
		Status:    models.JobStatusPending,
		Progress:  models.Progress{Processed: 0, Total: len(req.SheetData)},
	}

	if err := s.jobs.Create(r.Context(), job); err != nil {
		s.logger.Error("Failed to create job", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	s.logger.Info("Accepted match job", map[string]interface{}{
		"jobId":     job.ID,
		"rows":      len(job.SheetData),
		"providers": job.Providers,
	})

	s.dispatch(job.ID)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.jobs.Get(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	results, err := s.results.ListByJob(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to list results", map[string]interface{}{
			"jobId": id,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if results == nil {
		results = []*models.MatchResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobId":   id,
		"results": results,
	})
}

func schemaErrorMessage(result *gojsonschema.Result) string {
	msg := "schema validation failed"
	for _, desc := range result.Errors() {
		msg += ": " + desc.String()
		break
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
