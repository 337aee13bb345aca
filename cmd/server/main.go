package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/studymate/backend/internal/auth"
	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/database"
	"github.com/studymate/backend/internal/httpapi"
	"github.com/studymate/backend/internal/llm"
	"github.com/studymate/backend/internal/reminder"
	"github.com/studymate/backend/internal/repository"
	"github.com/studymate/backend/internal/service"
	"github.com/studymate/backend/internal/session"
	"github.com/studymate/backend/internal/sms"
	"github.com/studymate/backend/internal/storage"
	"github.com/studymate/backend/internal/store"
	"github.com/studymate/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database is optional. Without it (or when it is unreachable) the
	// service runs on in-memory stores: profiles and OTPs survive only until
	// restart and sharing is disabled. The choice is made once, at startup.
	var (
		users   repository.UserStore
		plans   repository.PlanStore
		codes   repository.OTPStore
		shares  repository.ShareStore
		dbReady bool
	)
	if cfg.MySQLDSN != "" {
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			logr.Error("database unavailable, falling back to in-memory stores", "err", err)
		} else {
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				log.Fatalf("database migrate: %v", err)
			}
			users = repository.NewUserRepository(db)
			plans = repository.NewPlanRepository(db)
			codes = repository.NewOTPRepository(db)
			shares = repository.NewShareRepository(db)
			dbReady = true
		}
	}
	if !dbReady {
		users = repository.NewMemoryUserStore()
		plans = repository.NewMemoryPlanStore()
		codes = repository.NewMemoryOTPStore()
		logr.Warn("running without a database; sharing is disabled")
	}

	st, err := store.New(cfg.DataDir, logr)
	if err != nil {
		log.Fatalf("document store: %v", err)
	}

	smsProvider, err := sms.NewProvider(cfg, logr)
	if err != nil {
		log.Fatalf("sms provider: %v", err)
	}

	client := llm.NewClient(cfg, logr)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	ledger := credits.NewLedger(users, logr)
	policy := credits.NewPolicy(cfg)

	var uploader service.ImageUploader
	if cfg.S3Enabled() {
		up, err := storage.NewUploader(cfg)
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = up
	}

	planService := service.NewPlanService(cfg, plans)
	if err := planService.EnsureDefaults(ctx); err != nil {
		log.Fatalf("ensure default plans: %v", err)
	}
	userService := service.NewUserService(cfg, users, plans, ledger, logr)
	if _, _, err := userService.Ensure(ctx, store.GuestIdentity, "Guest", "", ""); err != nil {
		log.Fatalf("ensure guest profile: %v", err)
	}

	generationService := service.NewGenerationService(cfg, logr, policy, ledger, client, st, session.NewSlot(), uploader)
	quizService := service.NewQuizService(policy, ledger, st, logr)
	otpService := service.NewOTPService(cfg, codes, smsProvider, tokens, logr)
	shareService := service.NewShareService(cfg, shares, logr)
	collectionService := service.NewCollectionService(st)

	poller := reminder.NewPoller(st, &reminder.LogNotifier{Log: logr}, cfg.ReminderPollInterval, logr)
	go func() { _ = poller.Run(ctx) }()
	go shareService.RunSweeper(ctx, time.Hour)

	server := httpapi.NewServer(cfg, logr, httpapi.Deps{
		Tokens:      tokens,
		Users:       userService,
		Plans:       planService,
		OTP:         otpService,
		Generation:  generationService,
		Quiz:        quizService,
		Collections: collectionService,
		Share:       shareService,
		Chat:        client.NewChatSession,
		Sessions:    session.NewRegistry(),
		DBReady:     dbReady,
	})

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api server stopped", "err", err)
	}
}
