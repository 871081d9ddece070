package statistics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/results"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
)

// DefaultThresholds are the inclusive lower bounds of the first four grade buckets.
var DefaultThresholds = []float64{0.9, 0.8, 0.7, 0.6}

const (
	totalPointsField    = "body_celkem"
	relativeScoreField  = "body_rel"
	bucketCount         = 5
	questionKeyTemplate = "question%d"
)

var bucketMessages = [bucketCount]string{
	i18n.MsgGradeBucket1,
	i18n.MsgGradeBucket2,
	i18n.MsgGradeBucket3,
	i18n.MsgGradeBucket4,
	i18n.MsgGradeBucket5,
}

// Options configures the aggregator.
type Options struct {
	// Thresholds holds four strictly descending bucket lower bounds; empty means
	// DefaultThresholds.
	Thresholds []float64
}

// Aggregator computes chart series from flattened result rows.
type Aggregator struct {
	thresholds []float64
	translator *i18n.Translator
	logger     *zap.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(opts Options, translator *i18n.Translator, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if translator == nil {
		return nil, fmt.Errorf("statistics aggregator requires a translator")
	}
	thresholds := opts.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	if len(thresholds) != bucketCount-1 {
		return nil, fmt.Errorf("expected %d grade thresholds, got %d", bucketCount-1, len(thresholds))
	}
	if !sort.SliceIsSorted(thresholds, func(i, j int) bool { return thresholds[i] > thresholds[j] }) || hasDuplicates(thresholds) {
		return nil, fmt.Errorf("grade thresholds must be strictly descending: %v", thresholds)
	}
	return &Aggregator{thresholds: append([]float64(nil), thresholds...), translator: translator, logger: logger}, nil
}

// Thresholds returns the bucket lower bounds in use, best first.
func (a *Aggregator) Thresholds() []float64 {
	return append([]float64(nil), a.thresholds...)
}

// Aggregate returns per-question averages and the grade distribution, labelled in lang.
// The quiz maximum is read from the first row's body_celkem; callers guarantee it is the
// same for every student.
func (a *Aggregator) Aggregate(rows []models.FlatResultRecord, lang string) (models.StatisticsBundle, error) {
	if len(rows) == 0 {
		return models.StatisticsBundle{}, appErrors.EmptyInput("Empty results")
	}
	questions := countQuestions(rows[0])
	total, err := number(rows[0], 1, totalPointsField)
	if err != nil {
		return models.StatisticsBundle{}, err
	}
	if total <= 0 {
		return models.StatisticsBundle{}, appErrors.MalformedInput(fmt.Sprintf("row 1: %s must be positive, got %v", totalPointsField, total), nil)
	}

	sums := make([]float64, questions)
	counts := make([]int, bucketCount)
	for idx, row := range rows {
		for q := 0; q < questions; q++ {
			points, err := number(row, idx+1, results.PointsColumn(q+1))
			if err != nil {
				return models.StatisticsBundle{}, err
			}
			sums[q] += points
		}
		rel, err := number(row, idx+1, relativeScoreField)
		if err != nil {
			return models.StatisticsBundle{}, err
		}
		counts[a.bucket(rel)]++
	}

	averages := make(models.QuestionAverages, 0, questions)
	for q, sum := range sums {
		averages = append(averages, models.QuestionAverage{
			Key:   fmt.Sprintf(questionKeyTemplate, q+1),
			Value: sum / total,
		})
	}

	slices := make([]models.PieSlice, 0, bucketCount)
	for i, count := range counts {
		slices = append(slices, models.PieSlice{ID: i, Value: count, Label: a.bucketLabel(lang, i)})
	}

	a.logger.Debug("statistics aggregated", zap.Int("students", len(rows)), zap.Int("questions", questions))
	return models.StatisticsBundle{
		Averages: models.BarSeries{Name: a.translator.T(lang, i18n.MsgAveragesSeries), Values: averages},
		Grades:   models.PieSeries{Name: a.translator.T(lang, i18n.MsgGradesSeries), Values: slices},
	}, nil
}

// bucket maps a relative score to its bucket index, best first. Lower bounds are inclusive.
func (a *Aggregator) bucket(rel float64) int {
	for i, threshold := range a.thresholds {
		if rel >= threshold {
			return i
		}
	}
	return len(a.thresholds)
}

func (a *Aggregator) bucketLabel(lang string, i int) string {
	upper := 1.0
	if i > 0 {
		upper = a.thresholds[i-1] - 0.01
	}
	lower := 0.0
	if i < len(a.thresholds) {
		lower = a.thresholds[i]
	} else {
		upper = a.thresholds[len(a.thresholds)-1]
	}
	return a.translator.Td(lang, bucketMessages[i], map[string]any{
		"Lower": formatBound(lower),
		"Upper": formatBound(upper),
	})
}

func formatBound(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// countQuestions counts the contiguous points{i} columns starting at 1.
func countQuestions(row models.FlatResultRecord) int {
	n := 0
	for {
		if _, ok := row.Get(results.PointsColumn(n + 1)); !ok {
			return n
		}
		n++
	}
}

func number(row models.FlatResultRecord, rowNum int, field string) (float64, error) {
	raw, ok := row.Get(field)
	if !ok {
		return 0, appErrors.MissingField(field, fmt.Sprintf("row %d", rowNum))
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, appErrors.MalformedInput(fmt.Sprintf("row %d: %s is not a number: %q", rowNum, field, raw), err)
	}
	return value, nil
}

func hasDuplicates(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			return true
		}
	}
	return false
}
