package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func TestUploadValidatorQuizXML(t *testing.T) {
	v := NewUploadValidator(config.UploadConfig{})

	mime, err := v.Check(UploadQuizXML, Upload{Field: "quiz", Filename: "quiz.xml", Data: []byte(`<?xml version="1.0"?><quiz></quiz>`)})
	require.NoError(t, err)
	assert.Equal(t, "application/xml", mime)

	_, err = v.Check(UploadQuizXML, Upload{Field: "quiz", Filename: "quiz.pdf", Data: pdfBytes})
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedType)
}

func TestUploadValidatorRosterCSV(t *testing.T) {
	v := NewUploadValidator(config.UploadConfig{})

	roster := []byte("jmeno;prijmeni;os_cislo\n\x8Aimon;Nov\xe1k;A1\n")
	_, err := v.Check(UploadRosterCSV, Upload{Field: "students", Filename: "students.csv", Data: roster})
	require.NoError(t, err)

	_, err = v.Check(UploadRosterCSV, Upload{Field: "students", Filename: "students.png", MimeType: "image/png", Data: pngBytes})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusUnsupportedMediaType, appErr.Status)
	assert.Equal(t, map[string]string{"field": "students", "filename": "students.png", "type": "image/png"}, appErr.Data)

	_, err = v.Check(UploadRosterCSV, Upload{Field: "students", Filename: "students.doc", MimeType: "application/msword", Data: []byte("a;b\n1;2\n")})
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedType)
}

func TestUploadValidatorScan(t *testing.T) {
	v := NewUploadValidator(config.UploadConfig{EvaluationMIMEs: []string{"application/pdf", "image/png"}})

	mime, err := v.Check(UploadScan, Upload{Field: "file", Filename: "scan.bin", MimeType: "application/octet-stream", Data: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	mime, err = v.Check(UploadScan, Upload{Field: "file", Filename: "scan.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = v.Check(UploadScan, Upload{Field: "file", Filename: "scan.pdf", MimeType: "application/pdf", Data: []byte("just some text")})
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedType)
}

func TestUploadValidatorLimits(t *testing.T) {
	v := NewUploadValidator(config.UploadConfig{MaxFileSizeBytes: 8})

	_, err := v.Check(UploadScan, Upload{Field: "file"})
	assert.ErrorIs(t, err, appErrors.ErrEmptyInput)

	_, err = v.Check(UploadScan, Upload{Field: "file", Data: pdfBytes})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds 8 bytes limit")
	assert.Equal(t, int64(8), v.MaxSize())
}
