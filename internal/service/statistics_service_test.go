package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/roster"
	"github.com/noah-isme/exam-sheets-api/internal/statistics"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
)

const resultCSV = "os_cislo,body_celkem,body_rel,answer1,points1,answer2,points2\n" +
	"A1,2,0.95,a,1,b,1\n" +
	"A2,2,0.65,,0,c,1\n"

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	fail  bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

type countingParser struct {
	inner resultParser
	calls int
}

func (c *countingParser) ParseResultRows(raw []byte) ([]models.FlatResultRecord, error) {
	c.calls++
	return c.inner.ParseResultRows(raw)
}

func newStatisticsService(t *testing.T, cache *CacheService) (*StatisticsService, *countingParser) {
	t.Helper()
	translator, err := i18n.New("cs", nil)
	require.NoError(t, err)
	aggregator, err := statistics.NewAggregator(statistics.Options{}, translator, nil)
	require.NoError(t, err)
	parser := &countingParser{inner: roster.NewNormalizer(roster.Options{}, nil)}
	return NewStatisticsService(parser, aggregator, translator, nil, cache, nil, nil), parser
}

func resultUpload() *Upload {
	return &Upload{Field: "file", Filename: "results.csv", MimeType: "text/csv", Data: []byte(resultCSV)}
}

func TestStatisticsServiceCompute(t *testing.T) {
	svc, _ := newStatisticsService(t, nil)

	bundle, cached, err := svc.Compute(context.Background(), StatisticsRequest{File: resultUpload()})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Průměrný počet bodů za otázku", bundle.Averages.Name)
	assert.Equal(t, models.QuestionAverages{{Key: "question1", Value: 0.5}, {Key: "question2", Value: 1}}, bundle.Averages.Values)

	counts := make([]int, 0, len(bundle.Grades.Values))
	for _, slice := range bundle.Grades.Values {
		counts = append(counts, slice.Value)
	}
	assert.Equal(t, []int{1, 0, 0, 1, 0}, counts)
	assert.Equal(t, "Výborně (0.9 - 1)", bundle.Grades.Values[0].Label)
}

func TestStatisticsServiceEnglishLabels(t *testing.T) {
	svc, _ := newStatisticsService(t, nil)

	bundle, _, err := svc.Compute(context.Background(), StatisticsRequest{File: resultUpload(), Lang: "en-US,en;q=0.9"})
	require.NoError(t, err)
	assert.Equal(t, "Average points per question", bundle.Averages.Name)
	assert.Equal(t, "Student results", bundle.Grades.Name)
}

func TestStatisticsServiceUsesCache(t *testing.T) {
	store := newMemoryCache()
	cache := NewCacheService(store, nil, time.Minute, nil, true)
	svc, parser := newStatisticsService(t, cache)
	ctx := context.Background()

	first, cached, err := svc.Compute(ctx, StatisticsRequest{File: resultUpload()})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, store.items, 1)

	second, cached, err := svc.Compute(ctx, StatisticsRequest{File: resultUpload()})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, parser.calls)

	_, cached, err = svc.Compute(ctx, StatisticsRequest{File: resultUpload(), Lang: "en"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, store.items, 2)
}

func TestStatisticsServiceCacheFailureIsMiss(t *testing.T) {
	store := newMemoryCache()
	store.fail = true
	svc, parser := newStatisticsService(t, NewCacheService(store, nil, time.Minute, nil, true))

	_, cached, err := svc.Compute(context.Background(), StatisticsRequest{File: resultUpload()})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, parser.calls)
}

func TestStatisticsServiceErrors(t *testing.T) {
	svc, _ := newStatisticsService(t, nil)
	ctx := context.Background()

	_, _, err := svc.Compute(ctx, StatisticsRequest{})
	assert.ErrorIs(t, err, appErrors.ErrMissingField)

	_, _, err = svc.Compute(ctx, StatisticsRequest{File: &Upload{Field: "file", Filename: "results.csv", Data: []byte("os_cislo,body_celkem\n")}})
	assert.ErrorIs(t, err, appErrors.ErrEmptyInput)

	_, _, err = svc.Compute(ctx, StatisticsRequest{File: &Upload{Field: "file", Filename: "results.csv", Data: []byte("os_cislo,body_celkem,body_rel,points1\nA1,2,abc,1\n")}})
	assert.ErrorIs(t, err, appErrors.ErrMalformedInput)
}

func TestStatisticsServiceReport(t *testing.T) {
	svc, _ := newStatisticsService(t, nil)

	doc, err := svc.Report(context.Background(), StatisticsRequest{File: resultUpload(), Lang: "en"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	_, err = svc.Report(context.Background(), StatisticsRequest{File: &Upload{Field: "file", Filename: "results.csv", Data: []byte("os_cislo\n")}})
	assert.ErrorIs(t, err, appErrors.ErrEmptyInput)
}
