package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

// Upload is one file received from the client.
type Upload struct {
	Field    string
	Filename string
	MimeType string
	Data     []byte
}

// UploadKind selects the acceptance rules for an upload.
type UploadKind string

const (
	UploadQuizXML   UploadKind = "quiz_xml"
	UploadRosterCSV UploadKind = "roster_csv"
	UploadResultCSV UploadKind = "result_csv"
	UploadScan      UploadKind = "scan"
)

var (
	xmlExtensions = map[string]struct{}{".xml": {}}
	csvExtensions = map[string]struct{}{".csv": {}, ".txt": {}}
	xmlMIMEs      = map[string]struct{}{"text/xml": {}, "application/xml": {}}
	csvMIMEs      = map[string]struct{}{"text/csv": {}, "text/plain": {}, "application/csv": {}, "application/vnd.ms-excel": {}}
)

// UploadValidator enforces size and type limits on uploads.
type UploadValidator struct {
	maxSize   int64
	scanMIMEs map[string]struct{}
}

// NewUploadValidator builds a validator from configuration.
func NewUploadValidator(cfg config.UploadConfig) *UploadValidator {
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	allowed := cfg.EvaluationMIMEs
	if len(allowed) == 0 {
		allowed = []string{"application/pdf", "image/png", "image/jpeg"}
	}
	scanMIMEs := make(map[string]struct{}, len(allowed))
	for _, mt := range allowed {
		scanMIMEs[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadValidator{maxSize: cfg.MaxFileSizeBytes, scanMIMEs: scanMIMEs}
}

// MaxSize returns the per-file byte limit.
func (v *UploadValidator) MaxSize() int64 {
	return v.maxSize
}

// Check validates the upload for kind and returns the content type to forward downstream.
func (v *UploadValidator) Check(kind UploadKind, up Upload) (string, error) {
	if len(up.Data) == 0 {
		return "", appErrors.EmptyInput(fmt.Sprintf("%s is empty", up.Field))
	}
	if int64(len(up.Data)) > v.maxSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds %d bytes limit", up.Field, v.maxSize))
	}

	detected := mimetype.Detect(up.Data)
	ext := strings.ToLower(filepath.Ext(up.Filename))
	declared := baseMIME(up.MimeType)

	switch kind {
	case UploadQuizXML:
		if !isTextual(detected) {
			return "", unsupported(up, detected.String())
		}
		_, extOK := xmlExtensions[ext]
		_, mimeOK := xmlMIMEs[declared]
		if !extOK && !mimeOK && !isXML(detected) {
			return "", unsupported(up, detected.String())
		}
		return "application/xml", nil
	case UploadRosterCSV, UploadResultCSV:
		if !isTextual(detected) {
			return "", unsupported(up, detected.String())
		}
		_, extOK := csvExtensions[ext]
		_, mimeOK := csvMIMEs[declared]
		if !extOK && !mimeOK {
			return "", unsupported(up, declared)
		}
		return "text/csv", nil
	case UploadScan:
		sniffed := baseMIME(detected.String())
		if _, ok := v.scanMIMEs[sniffed]; !ok {
			return "", unsupported(up, sniffed)
		}
		return sniffed, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown upload kind %q", kind))
	}
}

// isTextual accepts anything sniffed as text. Legacy single-byte encodings may sniff as
// octet-stream, so that generic result is accepted too.
func isTextual(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if cur.Is("text/plain") {
			return true
		}
	}
	return m.Is("application/octet-stream")
}

func isXML(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if cur.Is("text/xml") {
			return true
		}
	}
	return false
}

func baseMIME(raw string) string {
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func unsupported(up Upload, got string) *appErrors.Error {
	e := appErrors.UnsupportedType(fmt.Sprintf("%s has unsupported type %q", up.Field, got))
	e.Data = map[string]string{"field": up.Field, "filename": up.Filename, "type": got}
	return e
}
