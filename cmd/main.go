package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/Dosada05/tournify/brackets"
	"github.com/Dosada05/tournify/config"
	"github.com/Dosada05/tournify/db"
	"github.com/Dosada05/tournify/handlers"
	"github.com/Dosada05/tournify/repositories"
	api "github.com/Dosada05/tournify/routes"
	"github.com/Dosada05/tournify/services"
	"github.com/Dosada05/tournify/storage"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	tx          repositories.TxManager
	tournaments repositories.TournamentRepository
	players     repositories.PlayerRepository
	matches     repositories.MatchRepository
	close       func()
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.Bool("organizer_auth", cfg.JWTSecretKey != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close()

	// Инициализация загрузчика файлов (Cloudflare R2)
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	var uploader storage.FileUploader
	if r2Config.IsSet() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("R2 settings not provided, bracket archiving disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	var shuffler brackets.Shuffler
	if cfg.BracketSeed != nil {
		shuffler = brackets.NewSeededShuffler(*cfg.BracketSeed)
		logger.Warn("bracket draws use a fixed seed", slog.Uint64("seed", *cfg.BracketSeed))
	} else {
		shuffler = brackets.NewRandomShuffler()
	}
	generator := brackets.NewSingleEliminationGenerator(shuffler)

	// Инициализация сервисов
	bracketService := services.NewBracketService(st.tournaments, st.players, st.matches, generator, logger)
	tournamentService := services.NewTournamentService(st.tx, st.tournaments, st.players, st.matches, bracketService, logger)
	matchService := services.NewMatchService(st.tx, st.tournaments, st.players, st.matches, bracketService, wsHub, uploader, logger)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, matchService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService, originChecker(cfg.AllowedOrigins), logger)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router,
		api.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			JWTSecret:      cfg.JWTSecretKey,
			RequestTimeout: cfg.RequestTimeout,
		},
		tournamentHandler,
		matchHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		mem := repositories.NewMemoryStore()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			tx:          mem,
			tournaments: mem.Tournaments(),
			players:     mem.Players(),
			matches:     mem.Matches(),
			close:       func() {},
		}, nil
	}

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	logger.Info("database connection established")

	return &stores{
		tx:          repositories.NewSQLTxManager(dbConn),
		tournaments: repositories.NewPostgresTournamentRepository(dbConn),
		players:     repositories.NewPostgresPlayerRepository(dbConn),
		matches:     repositories.NewPostgresMatchRepository(dbConn),
		close: func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		},
	}, nil
}

// originChecker allows websocket upgrades from the configured CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
