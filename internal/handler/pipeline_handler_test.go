package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-sheets-api/internal/evaluator"
	"github.com/noah-isme/exam-sheets-api/internal/middleware"
	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/service"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/response"
)

type generateServiceMock struct {
	req      service.GenerateRequest
	artifact *evaluator.PrintArtifact
	err      error
}

func (m *generateServiceMock) Generate(_ context.Context, req service.GenerateRequest) (*evaluator.PrintArtifact, error) {
	m.req = req
	return m.artifact, m.err
}

type evaluationServiceMock struct {
	req     service.ProcessRequest
	archive []byte
	err     error
}

func (m *evaluationServiceMock) Process(_ context.Context, req service.ProcessRequest) ([]byte, error) {
	m.req = req
	return m.archive, m.err
}

type statisticsServiceMock struct {
	req    service.StatisticsRequest
	bundle models.StatisticsBundle
	cached bool
	report []byte
	err    error
}

func (m *statisticsServiceMock) Compute(_ context.Context, req service.StatisticsRequest) (models.StatisticsBundle, bool, error) {
	m.req = req
	return m.bundle, m.cached, m.err
}

func (m *statisticsServiceMock) Report(_ context.Context, req service.StatisticsRequest) ([]byte, error) {
	m.req = req
	return m.report, m.err
}

type formFile struct {
	field    string
	filename string
	data     string
}

func multipartRequest(t *testing.T, target string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGenerateHandlerPassesArtifactThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &generateServiceMock{artifact: &evaluator.PrintArtifact{ContentType: "application/pdf", Body: []byte("%PDF sheets")}}
	router := gin.New()
	router.POST("/0/generate", NewGenerateHandler(mock).Generate)

	w := serve(router, multipartRequest(t, "/0/generate",
		[]formFile{{"quiz", "quiz.xml", "<quiz/>"}, {"students", "students.csv", "os_cislo\nA1\n"}},
		map[string]string{"date": "2024-06-01"},
	))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF sheets", w.Body.String())
	require.NotNil(t, mock.req.Quiz)
	require.NotNil(t, mock.req.Students)
	assert.Equal(t, "quiz.xml", mock.req.Quiz.Filename)
	assert.Equal(t, []byte("os_cislo\nA1\n"), mock.req.Students.Data)
	assert.Equal(t, "2024-06-01", mock.req.Date)
}

func TestGenerateHandlerRequiresRoster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &generateServiceMock{}
	router := gin.New()
	router.POST("/0/generate", NewGenerateHandler(mock).Generate)

	w := serve(router, multipartRequest(t, "/0/generate", []formFile{{"quiz", "quiz.xml", "<quiz/>"}}, nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, `Caught an error: missing field "students": students file is required`, body.ErrorMsg)
	assert.Equal(t, map[string]interface{}{"field": "students"}, body.ErrorData)
}

func TestGenerateHandlerFromXMLWithoutRoster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &generateServiceMock{artifact: &evaluator.PrintArtifact{ContentType: "application/pdf", Body: []byte("%PDF")}}
	router := gin.New()
	router.POST("/0/generate/from-xml", NewGenerateHandler(mock).FromXML)

	w := serve(router, multipartRequest(t, "/0/generate/from-xml", []formFile{{"file", "quiz.xml", "<quiz/>"}}, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mock.req.Students)
	assert.Equal(t, "", mock.req.Date)
}

func TestGenerateHandlerUpstreamError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &generateServiceMock{err: appErrors.Upstream("/get_print_data responded with status 500", map[string]interface{}{"status": 500, "body": "boom"}, nil)}
	router := gin.New()
	router.POST("/0/generate/from-xml", NewGenerateHandler(mock).FromXML)

	w := serve(router, multipartRequest(t, "/0/generate/from-xml", []formFile{{"file", "quiz.xml", "<quiz/>"}}, nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, "Caught an error: /get_print_data responded with status 500", body.ErrorMsg)
	assert.Equal(t, map[string]interface{}{"status": float64(500), "body": "boom"}, body.ErrorData)
}

func TestEvaluationHandlerReturnsZip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &evaluationServiceMock{archive: []byte("PK zip")}
	router := gin.New()
	router.POST("/0/process/arks", NewEvaluationHandler(mock).ProcessArks)

	w := serve(router, multipartRequest(t, "/0/process/arks",
		[]formFile{{"file", "scan.pdf", "%PDF scan"}},
		map[string]string{"questions": "12"},
	))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="result.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK zip", w.Body.String())
	assert.Equal(t, 12, mock.req.ExpectedQuestions)
	assert.Equal(t, "scan.pdf", mock.req.Scan.Filename)
}

func TestEvaluationHandlerValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/0/process/arks", NewEvaluationHandler(&evaluationServiceMock{}).ProcessArks)

	w := serve(router, multipartRequest(t, "/0/process/arks", []formFile{{"file", "scan.pdf", "%PDF"}}, map[string]string{"questions": "many"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Caught an error: questions must be a non-negative integer", decodeErrorBody(t, w).ErrorMsg)

	w = serve(router, multipartRequest(t, "/0/process/arks", nil, map[string]string{"questions": "1"}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/0/process/arks", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(router, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluationHandlerUntypedErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/0/process/arks", NewEvaluationHandler(&evaluationServiceMock{err: context.DeadlineExceeded}).ProcessArks)

	w := serve(router, multipartRequest(t, "/0/process/arks", []formFile{{"file", "scan.pdf", "%PDF"}}, nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, "Caught an error: internal server error", body.ErrorMsg)
	assert.Nil(t, body.ErrorData)
}

func TestStatisticsHandlerJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &statisticsServiceMock{
		bundle: models.StatisticsBundle{
			Averages: models.BarSeries{Name: "avg", Values: models.QuestionAverages{{Key: "question1", Value: 0.5}}},
			Grades:   models.PieSeries{Name: "grades", Values: []models.PieSlice{{ID: 0, Value: 1, Label: "top"}}},
		},
		cached: true,
	}
	router := gin.New()
	router.POST("/0/generate/statistics", NewStatisticsHandler(mock).Statistics)

	req := multipartRequest(t, "/0/generate/statistics", []formFile{{"file", "results.csv", "a,b\n1,2\n"}}, nil)
	req.Header.Set("Accept-Language", "en-US")
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))
	assert.Equal(t, "en-US", mock.req.Lang)
	assert.JSONEq(t, `[
		{"name":"avg","values":{"question1":0.5},"graphType":"BAR_CHART"},
		{"name":"grades","values":[{"id":0,"value":1,"label":"top"}],"graphType":"PIE_CHART"}
	]`, w.Body.String())
}

func TestStatisticsHandlerPDFAndLangQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &statisticsServiceMock{report: []byte("%PDF report")}
	router := gin.New()
	router.POST("/0/generate/statistics", NewStatisticsHandler(mock).Statistics)

	req := multipartRequest(t, "/0/generate/statistics?format=pdf&lang=cs", []formFile{{"file", "results.csv", "a\n1\n"}}, nil)
	req.Header.Set("Accept-Language", "en")
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF report", w.Body.String())
	assert.Equal(t, "cs", mock.req.Lang)
}

func TestStatisticsHandlerRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/0/generate/statistics", NewStatisticsHandler(&statisticsServiceMock{}).Statistics)

	w := serve(router, multipartRequest(t, "/0/generate/statistics?format=xlsx", []formFile{{"file", "results.csv", "a\n1\n"}}, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Caught an error: format must be json or pdf", decodeErrorBody(t, w).ErrorMsg)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthcheck", NewMetricsHandler(nil).Health)
	router.GET("/metrics", NewMetricsHandler(nil).Prometheus)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPrometheusHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordPipelineStage("flatten", 3, nil)
	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(metrics).Prometheus)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pipeline_runs_total")
}
