package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studymate/backend/internal/auth"
	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/llm"
	"github.com/studymate/backend/internal/service"
	"github.com/studymate/backend/internal/session"
)

// ChatOpener creates a tutoring chat session seeded with a system prompt.
type ChatOpener func(system string) *llm.ChatSession

// Server is the public HTTP API. All state lives in the services; the server
// only decodes, dispatches and maps errors to status codes.
type Server struct {
	cfg         config.Config
	log         *slog.Logger
	router      *chi.Mux
	tokens      *auth.Manager
	users       *service.UserService
	plans       *service.PlanService
	otp         *service.OTPService
	generation  *service.GenerationService
	quiz        *service.QuizService
	collections *service.CollectionService
	share       *service.ShareService
	chat        ChatOpener
	sessions    *session.Registry
	dbReady     bool
}

type Deps struct {
	Tokens      *auth.Manager
	Users       *service.UserService
	Plans       *service.PlanService
	OTP         *service.OTPService
	Generation  *service.GenerationService
	Quiz        *service.QuizService
	Collections *service.CollectionService
	Share       *service.ShareService
	Chat        ChatOpener
	Sessions    *session.Registry
	DBReady     bool
}

func NewServer(cfg config.Config, log *slog.Logger, deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		cfg:         cfg,
		log:         log,
		router:      r,
		tokens:      deps.Tokens,
		users:       deps.Users,
		plans:       deps.Plans,
		otp:         deps.OTP,
		generation:  deps.Generation,
		quiz:        deps.Quiz,
		collections: deps.Collections,
		share:       deps.Share,
		chat:        deps.Chat,
		sessions:    deps.Sessions,
		dbReady:     deps.DBReady,
	}

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/auth/send-otp", s.handleSendOTP)
	r.Post("/api/auth/verify-otp", s.handleVerifyOTP)
	r.Get("/api/plans", s.handleListPlans)
	r.Get("/api/auth/share/{id}", s.handleGetShare)

	r.Group(func(api chi.Router) {
		api.Use(s.identityMiddleware)

		api.Get("/api/profile", s.handleGetProfile)
		api.Put("/api/profile", s.handleUpdateProfile)
		api.Post("/api/profile/plan", s.handleSwitchPlan)
		api.Get("/api/credits", s.handleGetCredits)

		api.Post("/api/generate", s.handleGenerate)
		api.Post("/api/generate/quiz", s.handleGenerateQuiz)
		api.Post("/api/generate/schedule", s.handleGenerateSchedule)
		api.Post("/api/quiz/{historyID}/complete", s.handleCompleteQuiz)

		api.Get("/api/history", s.handleListHistory)
		api.Get("/api/history/{id}", s.handleGetHistoryItem)
		api.Delete("/api/history/{id}", s.handleDeleteHistoryItem)

		api.Get("/api/notes", s.handleGetNotes)
		api.Put("/api/notes", s.handleSaveNotes)
		api.Get("/api/reminders", s.handleGetReminders)
		api.Post("/api/reminders", s.handleAddReminder)
		api.Post("/api/reminders/{id}/toggle", s.handleToggleReminder)
		api.Get("/api/timetable", s.handleGetTimetable)
		api.Put("/api/timetable", s.handleSaveTimetable)
		api.Get("/api/settings", s.handleGetSettings)
		api.Put("/api/settings", s.handleSaveSettings)
		api.Get("/api/timer", s.handleGetTimer)
		api.Put("/api/timer", s.handleSaveTimer)

		api.Post("/api/auth/share", s.handleCreateShare)
		api.Get("/api/chat", s.handleChat)
	})

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Generation streams stay open well past a normal write timeout.
		WriteTimeout: s.cfg.RequestTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": s.dbReady,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("handler error", "err", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

// serviceError maps domain errors onto status codes. Unknown errors are
// logged and reported as 500 without leaking detail.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.internalError(w, err)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		if errors.Is(err, llm.ErrInvalidAPIKey) || errors.Is(err, llm.ErrQuotaExceeded) || errors.Is(err, llm.ErrMalformedResponse) {
			s.log.Error("generation backend error", "err", err)
			s.writeError(w, status, llm.UserMessage(err))
			return
		}
		s.writeError(w, status, err.Error())
	default:
		s.writeError(w, status, err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrGenerationBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, llm.ErrQuotaExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrOTPInvalid), errors.Is(err, service.ErrOTPExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrOTPMaxAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrInvalidAPIKey), errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
