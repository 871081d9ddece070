package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/statistics"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
)

type resultParser interface {
	ParseResultRows(raw []byte) ([]models.FlatResultRecord, error)
}

type statisticsAggregator interface {
	Aggregate(rows []models.FlatResultRecord, lang string) (models.StatisticsBundle, error)
	Thresholds() []float64
}

// StatisticsRequest carries a result CSV upload and the requested label language.
type StatisticsRequest struct {
	File *Upload
	Lang string
}

// StatisticsService turns a result export into chart series, optionally cached.
type StatisticsService struct {
	parser     resultParser
	aggregator statisticsAggregator
	translator *i18n.Translator
	uploads    *UploadValidator
	cache      *CacheService
	pdf        *export.PDFExporter
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewStatisticsService constructs a StatisticsService. cache may be nil.
func NewStatisticsService(parser resultParser, aggregator statisticsAggregator, translator *i18n.Translator, uploads *UploadValidator, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uploads == nil {
		uploads = NewUploadValidator(config.UploadConfig{})
	}
	return &StatisticsService{
		parser:     parser,
		aggregator: aggregator,
		translator: translator,
		uploads:    uploads,
		cache:      cache,
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		logger:     logger,
	}
}

// Compute returns the bar and pie series for the upload. The second result reports
// whether the bundle came from the cache.
func (s *StatisticsService) Compute(ctx context.Context, req StatisticsRequest) (models.StatisticsBundle, bool, error) {
	if req.File == nil || len(req.File.Data) == 0 {
		return models.StatisticsBundle{}, false, appErrors.MissingField("file", "result file is required")
	}
	if _, err := s.uploads.Check(UploadResultCSV, *req.File); err != nil {
		return models.StatisticsBundle{}, false, err
	}
	lang := s.translator.Resolve(req.Lang)
	key := s.cacheKey(req.File.Data, lang)

	var bundle models.StatisticsBundle
	if s.cache.Get(ctx, key, &bundle) {
		return bundle, true, nil
	}

	rows, err := s.parser.ParseResultRows(req.File.Data)
	s.metrics.RecordPipelineStage("result_parse", len(rows), err)
	if err != nil {
		return models.StatisticsBundle{}, false, err
	}
	bundle, err = s.aggregator.Aggregate(rows, lang)
	s.metrics.RecordPipelineStage("aggregate", len(rows), err)
	if err != nil {
		return models.StatisticsBundle{}, false, err
	}

	s.cache.Set(ctx, key, bundle, 0)
	s.logger.Info("statistics computed",
		zap.Int("students", len(rows)),
		zap.Int("questions", len(bundle.Averages.Values)),
		zap.String("lang", lang),
	)
	return bundle, false, nil
}

// Report renders the statistics as a PDF document.
func (s *StatisticsService) Report(ctx context.Context, req StatisticsRequest) ([]byte, error) {
	bundle, _, err := s.Compute(ctx, req)
	if err != nil {
		return nil, err
	}
	lang := s.translator.Resolve(req.Lang)
	doc, err := s.pdf.RenderReport(s.translator.T(lang, i18n.MsgReportTitle), statistics.ReportSections(bundle, s.translator, lang)...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render statistics report")
	}
	return doc, nil
}

// cacheKey covers everything that shapes the bundle: input bytes, language and thresholds.
func (s *StatisticsService) cacheKey(data []byte, lang string) string {
	sum := sha256.Sum256(data)
	parts := make([]string, 0, 4)
	for _, t := range s.aggregator.Thresholds() {
		parts = append(parts, strconv.FormatFloat(t, 'g', -1, 64))
	}
	return fmt.Sprintf("statistics:%s:%s:%s", lang, strings.Join(parts, ","), hex.EncodeToString(sum[:]))
}
