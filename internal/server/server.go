// Package server exposes the run archive read-only over HTTP for external
// presentation layers. No endpoint mutates state.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"careline/internal/export"
	"careline/internal/repo"
	"careline/internal/sim"
)

// Config for the HTTP handler.
type Config struct {
	Repo      repo.Repo
	BasePath  string
	JWTSecret string
	Logger    zerolog.Logger
}

type apiErrorBody struct {
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"run not found"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		switch status {
		case http.StatusBadRequest:
			code = "bad_request"
		case http.StatusUnauthorized:
			code = "unauthorized"
		case http.StatusNotFound:
			code = "not_found"
		default:
			code = "internal_error"
		}
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

func handleError(err error) huma.StatusError {
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error())
}

// New returns an HTTP handler exposing the archive API.
func New(cfg Config) http.Handler {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(cfg.Logger))
	router.Use(authMiddleware(cfg.JWTSecret))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	hcfg := huma.DefaultConfig("Careline Archive API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerRuns(group, cfg.Repo)
	registerRecords(group, cfg.Repo)
	registerJourney(router, basePath, cfg.Repo)

	return router
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

type runIDInput struct {
	RunID string `path:"run_id" example:"RUN-1a2b3c4d"`
}

func registerRuns(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List archived runs",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []repo.RunSummary `json:"body"`
	}, error) {
		runs, err := r.ListRuns(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if runs == nil {
			runs = []repo.RunSummary{}
		}
		return &struct {
			Body []repo.RunSummary `json:"body"`
		}{Body: runs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get one archived run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runIDInput) (*struct {
		Body repo.RunSummary `json:"body"`
	}, error) {
		run, err := r.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body repo.RunSummary `json:"body"`
		}{Body: run}, nil
	})
}

func registerRecords(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-run-messages",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/messages",
		Summary:     "Message stream of a run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runIDInput) (*messagesResponse, error) {
		if _, err := r.GetRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := r.Messages(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &messagesResponse{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-decisions",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/decisions",
		Summary:     "Decision stream of a run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runIDInput) (*decisionsResponse, error) {
		if _, err := r.GetRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := r.Decisions(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &decisionsResponse{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-tests",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/tests",
		Summary:     "Test stream of a run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runIDInput) (*testsResponse, error) {
		if _, err := r.GetRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		items, err := r.Tests(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &testsResponse{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run-metrics",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/metrics",
		Summary:     "Metrics document of a run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *runIDInput) (*struct {
		Body sim.Metrics `json:"body"`
	}, error) {
		m, err := r.Metrics(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body sim.Metrics `json:"body"`
		}{Body: m}, nil
	})
}

// registerJourney serves the five-section text rendering directly on the
// router; it is markdown, not JSON, so it stays outside the huma surface.
func registerJourney(router chi.Router, basePath string, r repo.Repo) {
	router.Get(basePath+"/runs/{run_id}/journey", func(w http.ResponseWriter, req *http.Request) {
		runID := chi.URLParam(req, "run_id")
		res, err := r.Result(req.Context(), runID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, repo.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(export.Render(res)))
	})
}
