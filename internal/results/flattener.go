package results

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
)

// AnswerColumn names the detected-choices column of question i (1-indexed).
func AnswerColumn(i int) string { return "answer" + strconv.Itoa(i) }

// PointsColumn names the score column of question i (1-indexed).
func PointsColumn(i int) string { return "points" + strconv.Itoa(i) }

// Options configures the flattener.
type Options struct {
	// ExpectedQuestions is the number of questions every row must carry results for.
	// Zero takes the count from the first row.
	ExpectedQuestions int
}

// Flattener expands per-question OCR results into fixed answer{i}/points{i} columns.
// result[i] is assumed to belong to the i-th question of the printed quiz.
type Flattener struct {
	opts   Options
	logger *zap.Logger
}

// NewFlattener constructs a Flattener.
func NewFlattener(opts Options, logger *zap.Logger) *Flattener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flattener{opts: opts, logger: logger}
}

// Flatten converts every row. Scalar fields keep their received order.
func (f *Flattener) Flatten(rows []models.ResultRow) ([]models.FlatResultRecord, error) {
	if len(rows) == 0 {
		return nil, appErrors.EmptyInput("Empty results")
	}
	expected := f.opts.ExpectedQuestions
	if expected == 0 && rows[0].HasResult {
		expected = len(rows[0].Result)
	}

	flat := make([]models.FlatResultRecord, 0, len(rows))
	for idx, row := range rows {
		if !row.HasResult {
			return nil, appErrors.MissingField("result", fmt.Sprintf("row %d: Content does not contain result field!", idx+1))
		}
		if len(row.Result) != expected {
			return nil, appErrors.MissingField("result", fmt.Sprintf("row %d: expected %d question results, got %d", idx+1, expected, len(row.Result)))
		}

		rec := models.NewFlatResultRecord()
		for _, field := range row.Meta {
			rec.Set(field.Name, field.Value)
		}
		for i, res := range row.Result {
			rec.Set(AnswerColumn(i+1), strings.Join(res.Answer, ","))
			rec.Set(PointsColumn(i+1), res.Points.String())
		}
		flat = append(flat, rec)
	}

	f.logger.Debug("results flattened", zap.Int("rows", len(flat)), zap.Int("questions", expected))
	return flat, nil
}

// Dataset lays the records out for serialization: scalar columns in first-seen order across
// all rows, then answer1, points1, answer2, points2 and so on.
func Dataset(flat []models.FlatResultRecord) (export.Dataset, error) {
	if len(flat) == 0 {
		return export.Dataset{}, appErrors.EmptyInput("Empty results")
	}
	questions := 0
	var scalar []string
	seen := map[string]struct{}{}
	for _, rec := range flat {
		for _, key := range rec.Keys {
			if n, ok := questionIndex(key); ok {
				if n > questions {
					questions = n
				}
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			scalar = append(scalar, key)
		}
	}

	headers := make([]string, 0, len(scalar)+2*questions)
	headers = append(headers, scalar...)
	for i := 1; i <= questions; i++ {
		headers = append(headers, AnswerColumn(i), PointsColumn(i))
	}

	rows := make([]map[string]string, 0, len(flat))
	for _, rec := range flat {
		rows = append(rows, rec.Values)
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}

// questionIndex recognises answer{i} and points{i} columns.
func questionIndex(key string) (int, bool) {
	for _, prefix := range []string{"answer", "points"} {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		n, err := strconv.Atoi(key[len(prefix):])
		if err == nil && n > 0 && key == prefix+strconv.Itoa(n) {
			return n, true
		}
	}
	return 0, false
}
