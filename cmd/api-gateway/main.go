package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-sheets-api/api/swagger"
	"github.com/noah-isme/exam-sheets-api/internal/evaluator"
	"github.com/noah-isme/exam-sheets-api/internal/handler"
	"github.com/noah-isme/exam-sheets-api/internal/middleware"
	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/quizxml"
	"github.com/noah-isme/exam-sheets-api/internal/repository"
	"github.com/noah-isme/exam-sheets-api/internal/roster"
	"github.com/noah-isme/exam-sheets-api/internal/service"
	"github.com/noah-isme/exam-sheets-api/internal/statistics"
	"github.com/noah-isme/exam-sheets-api/pkg/cache"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
	"github.com/noah-isme/exam-sheets-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-sheets-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-sheets-api/pkg/middleware/requestid"
)

// @title Exam Sheets API
// @version 1.0.0
// @description Generates printable answer sheets from Moodle quizzes and processes the scanned results.
// @BasePath /0
// @schemes http

const cacheKeyPrefix = "exam-sheets:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	translator, err := i18n.New(cfg.Statistics.Lang, logr.Named("i18n"))
	if err != nil {
		logr.Fatal("failed to load translations", zap.Error(err))
	}

	aggregator, err := statistics.NewAggregator(statistics.Options{Thresholds: cfg.Pipeline.GradeThresholds}, translator, logr.Named("statistics"))
	if err != nil {
		logr.Fatal("invalid statistics configuration", zap.Error(err))
	}

	extractor := quizxml.NewExtractor(quizxml.Options{AllowedTypes: questionTypes(cfg.Pipeline.AllowedQuestionTypes)}, validator.New(), logr.Named("quizxml"))
	normalizer := roster.NewNormalizer(roster.Options{
		CodePage:        cfg.Pipeline.CodePage,
		RosterSeparator: cfg.Pipeline.RosterSeparator,
		ResultSeparator: cfg.Pipeline.ResultSeparator,
	}, logr.Named("roster"))

	var observer evaluator.Observer
	if metricsSvc != nil {
		observer = metricsSvc
	}
	evaluatorClient := evaluator.NewClient(cfg.Evaluator, nil, observer, logr.Named("evaluator"))

	cacheSvc := newStatisticsCache(cfg, metricsSvc, logr)
	uploads := service.NewUploadValidator(cfg.Uploads)

	generateSvc := service.NewGenerateService(extractor, normalizer, evaluatorClient, uploads, metricsSvc, logr.Named("generate"))
	evaluationSvc := service.NewEvaluationService(evaluatorClient, uploads, cfg.Pipeline.OutputSeparator, metricsSvc, logr.Named("evaluation"))
	statisticsSvc := service.NewStatisticsService(normalizer, aggregator, translator, uploads, cacheSvc, metricsSvc, logr.Named("statistics"))

	generateHandler := handler.NewGenerateHandler(generateSvc)
	evaluationHandler := handler.NewEvaluationHandler(evaluationSvc)
	statisticsHandler := handler.NewStatisticsHandler(statisticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/healthcheck", metricsHandler.Health)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	// the generate route carries two files
	api.Use(middleware.BodyLimit(2 * cfg.Uploads.MaxFileSizeBytes))
	api.POST("/generate", generateHandler.Generate)
	api.POST("/generate/from-xml", generateHandler.FromXML)
	api.POST("/generate/statistics", statisticsHandler.Statistics)
	api.POST("/process/arks", evaluationHandler.ProcessArks)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"prefix", cfg.APIPrefix,
		"evaluator", cfg.Evaluator.BaseURL(),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// newStatisticsCache connects Redis when caching is enabled. An unreachable Redis
// leaves the service running without a cache.
func newStatisticsCache(cfg *config.Config, metricsSvc *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Statistics.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("statistics cache disabled", zap.Error(err))
		return nil
	}
	repo := repository.NewCacheRepository(client, cacheKeyPrefix, logr.Named("cache"))
	return service.NewCacheService(repo, metricsSvc, cfg.Statistics.CacheTTL, logr.Named("cache"), true)
}

func questionTypes(names []string) []models.QuestionType {
	out := make([]models.QuestionType, 0, len(names))
	for _, name := range names {
		out = append(out, models.QuestionType(name))
	}
	return out
}
