package routes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/config"
	"github.com/arman-d/ConsultLinkBack/internal/handlers"
	"github.com/arman-d/ConsultLinkBack/internal/middleware"
	"github.com/arman-d/ConsultLinkBack/internal/models"
	"github.com/arman-d/ConsultLinkBack/internal/notify"
	"github.com/arman-d/ConsultLinkBack/internal/repository"
	"github.com/arman-d/ConsultLinkBack/internal/services"
	chatws "github.com/arman-d/ConsultLinkBack/internal/websocket"
	"github.com/arman-d/ConsultLinkBack/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes wires repositories, services, handlers, and background
// workers. Returned workers are started by the caller.
func RegisterRoutes(
	app *fiber.App,
	cfg *config.Config,
	db *pgxpool.Pool,
	logger *slog.Logger,
) (*services.ChatSweeper, error) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewConsultantProfileRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	sessionRepo := repository.NewChatSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if brokers := strings.TrimSpace(cfg.KafkaBrokers); brokers != "" {
		notifier = notify.NewKafkaNotifier(strings.Split(brokers, ","), cfg.KafkaTopic, logger)
	}

	if err := seedAdminUser(cfg, userRepo); err != nil {
		return nil, err
	}

	chatService := services.NewChatService(
		db, sessionRepo, messageRepo, appointmentRepo, ledgerRepo, storageService, notifier, logger)
	availabilityService := services.NewAvailabilityService(availabilityRepo)
	appointmentService := services.NewAppointmentService(
		appointmentRepo, availabilityRepo, userRepo, chatService, notifier)
	ratingService := services.NewRatingService(db, sessionRepo, ratingRepo)
	ledgerService := services.NewLedgerService(db, ledgerRepo, payoutRepo, appointmentRepo, notifier)
	profileService := services.NewProfileService(profileRepo, userRepo)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, storageService, cfg.JWTSecret)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	directoryHandler := handlers.NewDirectoryHandler(profileService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		limiter := middleware.NewRedisRateLimiter(
			redis.NewClient(opts), cfg.AuthRateLimit, time.Minute, "auth", logger)
		auth.Use(limiter.Handler())
	}
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	consultants := v1.Group("/consultants")
	consultants.Get("", directoryHandler.ListConsultants)
	consultants.Get("/profile", directoryHandler.GetOwnProfile)
	consultants.Put("/profile", directoryHandler.UpdateOwnProfile)
	consultants.Get("/availability", availabilityHandler.ListOwnWindows)
	consultants.Put("/availability", availabilityHandler.SetWindow)
	consultants.Delete("/availability/:weekday", availabilityHandler.RemoveWindow)
	consultants.Get("/:id", directoryHandler.GetConsultant)
	consultants.Get("/:id/availability", availabilityHandler.ListConsultantWindows)

	appointments := v1.Group("/appointments")
	appointments.Post("", appointmentHandler.Request)
	appointments.Get("", appointmentHandler.List)
	appointments.Get("/:id", appointmentHandler.Get)
	appointments.Put("/:id/respond", appointmentHandler.Respond)
	appointments.Delete("/:id", appointmentHandler.Cancel)
	appointments.Post("/:id/session", chatHandler.EnterSession)

	sessions := v1.Group("/sessions")
	sessions.Get("", chatHandler.ListSessions)
	sessions.Get("/:id", chatHandler.GetSession)
	sessions.Post("/:id/messages", chatHandler.SendMessage)
	sessions.Get("/:id/messages", chatHandler.GetMessages)
	sessions.Post("/:id/read", chatHandler.MarkRead)
	sessions.Delete("/:id/messages/:messageId", chatHandler.UnsendMessage)
	sessions.Post("/:id/complete", chatHandler.CompleteSession)
	sessions.Post("/:id/rating", ratingHandler.SubmitRating)
	sessions.Get("/:id/rating", ratingHandler.GetSessionRating)

	v1.Post("/attachments", chatHandler.UploadAttachment)

	payments := v1.Group("/payments", middleware.RoleRequired(models.RoleAdmin))
	payments.Post("/session", ledgerHandler.RecordSessionPayment)

	earnings := v1.Group("/earnings")
	earnings.Get("/balance", ledgerHandler.GetBalance)
	earnings.Get("/entries", ledgerHandler.ListEntries)

	payouts := v1.Group("/payouts")
	payouts.Post("", ledgerHandler.RequestWithdrawal)
	payouts.Get("", ledgerHandler.ListPayouts)
	payouts.Put("/:id/resolve", ledgerHandler.ResolveWithdrawal)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	sweeper := services.NewChatSweeper(sessionRepo, 5*time.Minute, logger)
	return sweeper, nil
}

// seedAdminUser creates the admin account on first boot when configured.
func seedAdminUser(cfg *config.Config, userRepo *repository.UserRepository) error {
	if cfg.DefaultAdminEmail == "" || cfg.DefaultAdminPassword == "" {
		return nil
	}

	ctx := context.Background()
	_, err := userRepo.GetByEmail(ctx, strings.ToLower(cfg.DefaultAdminEmail))
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hashed, err := utils.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}
	return userRepo.CreateUser(ctx, &models.User{
		Email:        strings.ToLower(cfg.DefaultAdminEmail),
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
	})
}
