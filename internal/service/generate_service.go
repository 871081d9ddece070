package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/exam-sheets-api/internal/evaluator"
	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type quizExtractor interface {
	Extract(raw []byte) ([]models.Question, error)
}

type rosterParser interface {
	ParseRoster(raw []byte) ([]models.Student, error)
}

type sheetPrinter interface {
	Print(ctx context.Context, quiz models.Quiz) (*evaluator.PrintArtifact, error)
}

// GenerateRequest carries the files of one generation call. Students is nil when the
// caller generates from the quiz alone.
type GenerateRequest struct {
	Quiz     *Upload
	Students *Upload
	Date     string
}

// GenerateService builds a Quiz from uploads and asks the print service to render it.
type GenerateService struct {
	extractor quizExtractor
	roster    rosterParser
	printer   sheetPrinter
	uploads   *UploadValidator
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewGenerateService constructs a GenerateService.
func NewGenerateService(extractor quizExtractor, roster rosterParser, printer sheetPrinter, uploads *UploadValidator, metrics *MetricsService, logger *zap.Logger) *GenerateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uploads == nil {
		uploads = NewUploadValidator(config.UploadConfig{})
	}
	return &GenerateService{
		extractor: extractor,
		roster:    roster,
		printer:   printer,
		uploads:   uploads,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildQuiz validates and parses the uploads. The quiz and the roster are parsed
// concurrently; the first failure wins.
func (s *GenerateService) BuildQuiz(ctx context.Context, req GenerateRequest) (models.Quiz, error) {
	if req.Quiz == nil || len(req.Quiz.Data) == 0 {
		return models.Quiz{}, appErrors.MissingField("quiz", "quiz file is required")
	}
	if _, err := s.uploads.Check(UploadQuizXML, *req.Quiz); err != nil {
		return models.Quiz{}, err
	}
	if req.Students != nil {
		if _, err := s.uploads.Check(UploadRosterCSV, *req.Students); err != nil {
			return models.Quiz{}, err
		}
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return models.Quiz{}, err
	}

	var (
		questions []models.Question
		students  []models.Student
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.extractor.Extract(req.Quiz.Data)
		s.metrics.RecordPipelineStage("quiz_extract", len(questions), err)
		return err
	})
	if req.Students != nil {
		g.Go(func() error {
			var err error
			students, err = s.roster.ParseRoster(req.Students.Data)
			s.metrics.RecordPipelineStage("roster_parse", len(students), err)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return models.Quiz{}, err
	}

	if len(questions) == 0 {
		return models.Quiz{}, appErrors.EmptyInput("quiz contains no supported questions")
	}
	if req.Students != nil && len(students) == 0 {
		return models.Quiz{}, appErrors.EmptyInput("roster contains no students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return models.Quiz{Questions: questions, Students: students, Date: date}, nil
}

// Generate builds the quiz and returns the print artifact unchanged.
func (s *GenerateService) Generate(ctx context.Context, req GenerateRequest) (*evaluator.PrintArtifact, error) {
	quiz, err := s.BuildQuiz(ctx, req)
	if err != nil {
		return nil, err
	}
	artifact, err := s.printer.Print(ctx, quiz)
	if err != nil {
		return nil, err
	}
	s.logger.Info("answer sheets generated",
		zap.Int("questions", len(quiz.Questions)),
		zap.Int("students", len(quiz.Students)),
		zap.String("date", quiz.Date),
		zap.Int("bytes", len(artifact.Body)),
	)
	return artifact, nil
}

func (s *GenerateService) resolveDate(raw string) (string, error) {
	if raw == "" {
		return s.now().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		e := appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
		e.Data = map[string]string{"field": "date", "value": raw}
		return "", e
	}
	return raw, nil
}
