package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
	"github.com/go-chi/chi/v5"
)

// ImportLogReader lists importer runs. Optional; the imports route is only
// mounted when one is configured.
type ImportLogReader interface {
	QueryImportLogs(ctx context.Context, userID string, limit int) ([]models.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc    *workouts.Service
	logs   ImportLogReader
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured. logs may be nil.
func New(svc *workouts.Service, logs ImportLogReader, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logs:   logs,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(UserIdentity)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Writes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/workouts", s.handleCompleteWorkout)
			r.Delete("/records", s.handleClearRecords)
		})

		r.Post("/workouts/preview", s.handlePreviewWorkout)
		r.Post("/sets/check", s.handleCheckSet)
		r.Get("/sets", s.handleQuerySets)
		r.Get("/records", s.handleListRecords)
		r.Get("/records/{exerciseID}/{metric}", s.handleGetRecord)
		r.Get("/volume/weekly", s.handleWeeklyVolume)
		if s.logs != nil {
			r.Get("/imports", s.handleImportLogs)
		}
	})
}
