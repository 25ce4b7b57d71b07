package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-tms/internal/config"
	"github.com/bitfantasy/nimo-tms/internal/middleware"
	"github.com/bitfantasy/nimo-tms/internal/tms/entity"
	"github.com/bitfantasy/nimo-tms/internal/tms/handler"
	"github.com/bitfantasy/nimo-tms/internal/tms/repository"
	"github.com/bitfantasy/nimo-tms/internal/tms/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-tms service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Tender{},
		&entity.TenderLineItem{},
		&entity.Delivery{},
		&entity.DeliveryLine{},
		&entity.SerialNumberEntry{},
	); err != nil {
		zapLogger.Warn("AutoMigrate tms tables warning", zap.Error(err))
	}

	// 老库兼容：序号计数器列和剔除时间列
	db.Exec("ALTER TABLE tms_tenders ADD COLUMN IF NOT EXISTS last_sequence_no INTEGER DEFAULT 0")
	db.Exec("ALTER TABLE tms_tender_line_items ADD COLUMN IF NOT EXISTS excluded_at TIMESTAMP")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_tms_delivery_lines_item ON tms_delivery_lines(item_master_id)")

	// 初始化Redis（草稿缓冲）
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis connection warning", zap.Error(err))
	}

	// 仓库和服务
	repos := repository.NewRepositories(db)
	tenderSvc := service.NewTenderService(repos.Tender)
	reconcileSvc := service.NewReconciliationService(repos.Tender, repos.Delivery)
	pricingSvc := service.NewPricingService(repos.Tender, repos.Delivery)
	exclusionSvc := service.NewExclusionService(repos.Tender)
	deliverySvc := service.NewDeliveryService(repos.Tender, repos.Delivery)
	draftSvc := service.NewDeliveryDraftService(rdb)
	serialSvc := service.NewSerialService(repos.Serial, repos.Delivery, rdb)

	handlers := handler.NewHandlers(tenderSvc, reconcileSvc, pricingSvc, exclusionSvc, deliverySvc, draftSvc, serialSvc)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")

	tms := v1.Group("/tms")
	tms.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 标单
		tenders := tms.Group("/tenders")
		{
			tenders.GET("", h.Tender.ListTenders)
			tenders.POST("", h.Tender.CreateTender)
			tenders.GET("/:id", h.Tender.GetTender)
			tenders.GET("/:id/state", h.Tender.GetTenderState)
			tenders.GET("/:id/pricing", h.Tender.GetPricing)
			tenders.PUT("/:id/pricing-mode", h.Tender.SetPricingMode)
			tenders.PUT("/:id/items/:itemId/actual-price", h.Tender.SetItemActualPrice)
			tenders.POST("/:id/items/:itemId/exclude", h.Tender.ExcludeItem)
			tenders.POST("/:id/items/:itemId/restore", h.Tender.RestoreItem)

			// 到货登记
			tenders.GET("/:id/deliveries", h.Delivery.ListDeliveries)
			tenders.POST("/:id/deliveries", h.Delivery.CreateDelivery)

			// 到货草稿
			tenders.GET("/:id/delivery-draft", h.Delivery.GetDraft)
			tenders.PUT("/:id/delivery-draft", h.Delivery.SaveDraft)
			tenders.DELETE("/:id/delivery-draft", h.Delivery.DiscardDraft)
			tenders.POST("/:id/delivery-draft/lines", h.Delivery.AddDraftLine)
			tenders.DELETE("/:id/delivery-draft/lines/:itemMasterId", h.Delivery.RemoveDraftLine)
			tenders.POST("/:id/delivery-draft/commit", h.Delivery.CommitDraft)
		}

		// 到货
		deliveries := tms.Group("/deliveries")
		{
			deliveries.GET("/:deliveryId", h.Delivery.GetDelivery)
			deliveries.PUT("/:deliveryId", h.Delivery.EditDelivery)
			deliveries.DELETE("/:deliveryId", middleware.RequireRole("tms_admin"), h.Delivery.DeleteDelivery)
		}

		// 序列号
		lines := tms.Group("/delivery-lines")
		{
			lines.GET("/:lineId/serials", h.Serial.ListSaved)
			lines.POST("/:lineId/serials/commit", h.Serial.CommitDraft)
			lines.GET("/:lineId/serials/draft", h.Serial.GetDraft)
			lines.POST("/:lineId/serials/draft", h.Serial.AddSerial)
			lines.DELETE("/:lineId/serials/draft", h.Serial.DiscardDraft)
			lines.POST("/:lineId/serials/draft/bulk", h.Serial.AddBulk)
			lines.POST("/:lineId/serials/draft/import", h.Serial.ImportWorkbook)
			lines.DELETE("/:lineId/serials/draft/:serial", h.Serial.RemoveSerial)
			lines.GET("/:lineId/serials/export.csv", h.Serial.ExportCSV)
			lines.GET("/:lineId/serials/export.xlsx", h.Serial.ExportWorkbook)
		}
	}
}
