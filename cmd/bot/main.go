package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bakery/internal/catalog"
	"bakery/internal/checkout"
	"bakery/internal/config"
	"bakery/internal/db"
	"bakery/internal/handlers"
	"bakery/internal/repo"
	"bakery/internal/session"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config not loaded", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//хранилище корзин и снимка каталога
	carts, snapshots, closeDB := openStorage(cfg, logger)
	defer closeDB()

	source, err := catalog.NewSheetsSource(ctx, catalog.SheetsConfig{
		ClientEmail:   cfg.GoogleClientEmail,
		PrivateKey:    cfg.GooglePrivateKey,
		ProjectID:     cfg.GoogleProjectID,
		SpreadsheetID: cfg.SpreadsheetID,
		Range:         cfg.SheetRange,
	})
	if err != nil {
		logger.Fatal("spreadsheet source not configured", zap.Error(err))
	}
	loader := catalog.NewLoader(source, snapshots, catalog.Options{AddonPrice: cfg.AddonPrice}, logger.Named("catalog"))

	//создание бота
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("bot not created", zap.Error(err))
	}
	bot.Debug = false
	logger.Info("authorized", zap.String("bot", bot.Self.UserName))

	tokens := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	handoff := checkout.NewHandoff(bot, cfg.OrdersChatID, logger.Named("checkout"))

	shop := handlers.NewShop(bot, loader, carts, handoff, tokens, handlers.ShopConfig{
		WebAppURL:      cfg.WebAppURL,
		CollapseWindow: cfg.CollapseWindow,
		AdminChatIDs:   cfg.AdminChatIDs,
	}, logger.Named("bot"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, If-None-Match")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	handlers.NewAPIHandler(loader, shop, tokens, handoff, carts, cfg.AdminToken, logger.Named("api")).SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	go shop.HandleUpdates(ctx, updates)

	<-ctx.Done()
	logger.Info("shutting down")
	bot.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}
	logger.Info("exited properly")
}

type cartStore interface {
	handlers.CartStore
	handlers.CartCounter
}

// openStorage falls back to memory when Postgres is not configured or down.
func openStorage(cfg *config.Config, logger *zap.Logger) (cartStore, catalog.SnapshotStore, func()) {
	if cfg.Storage == config.StorageMemory {
		logger.Info("storage: memory")
		return repo.NewMemoryRepo(), repo.NewMemoryRepo(), func() {}
	}

	conn, err := db.NewPostgresDB(cfg)
	if err != nil {
		logger.Warn("postgres unavailable, running in memory mode", zap.Error(err))
		return repo.NewMemoryRepo(), repo.NewMemoryRepo(), func() {}
	}
	logger.Info("storage: postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	return repo.NewCartRepo(conn), repo.NewSnapshotRepo(conn), closer(conn, logger)
}

func closer(conn *sql.DB, logger *zap.Logger) func() {
	return func() {
		if err := conn.Close(); err != nil {
			logger.Warn("postgres close failed", zap.Error(err))
		}
	}
}
