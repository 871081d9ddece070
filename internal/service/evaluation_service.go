package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/evaluator"
	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/results"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
)

const (
	// ResultArchiveName is the download name of the evaluation bundle.
	ResultArchiveName = "result.zip"
	resultCSVName     = "result.csv"
	resultLogName     = "log.txt"
)

type sheetEvaluator interface {
	Evaluate(ctx context.Context, upload evaluator.Upload) (*models.EvaluationResponse, error)
}

// ProcessRequest carries a scanned answer-sheet upload. ExpectedQuestions of zero
// takes the question count from the first evaluated row.
type ProcessRequest struct {
	Scan              *Upload
	ExpectedQuestions int
}

// EvaluationService sends scans to the OCR service and packages the flattened results.
type EvaluationService struct {
	evaluator sheetEvaluator
	uploads   *UploadValidator
	csv       *export.CSVExporter
	zip       *export.ZipPackager
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEvaluationService constructs an EvaluationService. outputSeparator of zero writes ','.
func NewEvaluationService(client sheetEvaluator, uploads *UploadValidator, outputSeparator rune, metrics *MetricsService, logger *zap.Logger) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uploads == nil {
		uploads = NewUploadValidator(config.UploadConfig{})
	}
	return &EvaluationService{
		evaluator: client,
		uploads:   uploads,
		csv:       export.NewCSVExporter(outputSeparator),
		zip:       export.NewZipPackager(time.Time{}),
		metrics:   metrics,
		logger:    logger,
	}
}

// Process evaluates the scan and returns a zip holding result.csv and log.txt.
func (s *EvaluationService) Process(ctx context.Context, req ProcessRequest) ([]byte, error) {
	if req.Scan == nil || len(req.Scan.Data) == 0 {
		return nil, appErrors.MissingField("file", "scanned answer sheets are required")
	}
	if req.ExpectedQuestions < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "questions must not be negative")
	}
	contentType, err := s.uploads.Check(UploadScan, *req.Scan)
	if err != nil {
		return nil, err
	}

	resp, err := s.evaluator.Evaluate(ctx, evaluator.Upload{ContentType: contentType, Data: req.Scan.Data})
	if err != nil {
		return nil, err
	}

	flattener := results.NewFlattener(results.Options{ExpectedQuestions: req.ExpectedQuestions}, s.logger)
	flat, err := flattener.Flatten(resp.Result)
	s.metrics.RecordPipelineStage("flatten", len(flat), err)
	if err != nil {
		return nil, err
	}

	dataset, err := results.Dataset(flat)
	if err != nil {
		return nil, err
	}
	csvBytes, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render result csv")
	}
	archive, err := s.zip.Bundle(
		export.Entry{Name: resultCSVName, Data: csvBytes},
		export.Entry{Name: resultLogName, Data: []byte(resp.Log)},
	)
	s.metrics.RecordPipelineStage("archive", len(flat), err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "package results")
	}

	s.logger.Info("answer sheets evaluated",
		zap.Int("students", len(flat)),
		zap.Int("columns", len(dataset.Headers)),
		zap.Int("archive_bytes", len(archive)),
	)
	return archive, nil
}
