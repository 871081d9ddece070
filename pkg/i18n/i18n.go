// Package i18n localises user-facing chart and report labels.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Message IDs.
const (
	MsgAveragesSeries = "AveragesSeries"
	MsgGradesSeries   = "GradesSeries"
	MsgGradeBucket1   = "GradeBucket1"
	MsgGradeBucket2   = "GradeBucket2"
	MsgGradeBucket3   = "GradeBucket3"
	MsgGradeBucket4   = "GradeBucket4"
	MsgGradeBucket5   = "GradeBucket5"
	MsgReportTitle    = "ReportTitle"
	MsgColumnQuestion = "ColumnQuestion"
	MsgColumnAverage  = "ColumnAverage"
	MsgColumnBucket   = "ColumnBucket"
	MsgColumnStudents = "ColumnStudents"
)

// Translator resolves message IDs for a requested language with a configured fallback.
type Translator struct {
	bundle      *i18n.Bundle
	matcher     language.Matcher
	supported   []string
	defaultLang string
	logger      *zap.Logger
}

// New loads the embedded locale files. defaultLang is used when a request names no
// language or one without a translation.
func New(defaultLang string, logger *zap.Logger) (*Translator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}

	// the default goes first so unmatched requests resolve to it
	tags := []language.Tag{tag}
	supported := []string{tag.String()}
	for _, t := range bundle.LanguageTags() {
		if t != tag {
			tags = append(tags, t)
			supported = append(supported, t.String())
		}
	}
	return &Translator{
		bundle:      bundle,
		matcher:     language.NewMatcher(tags),
		supported:   supported,
		defaultLang: tag.String(),
		logger:      logger,
	}, nil
}

// DefaultLanguage returns the fallback language tag.
func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

// Languages lists the tags with a loaded translation.
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

// Resolve maps a tag or Accept-Language value onto the loaded language that will
// serve it, e.g. "en-GB,en;q=0.8" -> "en".
func (t *Translator) Resolve(lang string) string {
	if lang == "" {
		return t.defaultLang
	}
	_, idx := language.MatchStrings(t.matcher, lang)
	if idx < 0 || idx >= len(t.supported) {
		return t.defaultLang
	}
	return t.supported[idx]
}

// T translates msgID for lang, which may be a tag or an Accept-Language value.
func (t *Translator) T(lang, msgID string) string {
	return t.Td(lang, msgID, nil)
}

// Td translates msgID with template data.
func (t *Translator) Td(lang, msgID string, data map[string]any) string {
	loc := i18n.NewLocalizer(t.bundle, lang, t.defaultLang)
	s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
	if err != nil {
		t.logger.Warn("missing translation", zap.String("id", msgID), zap.String("lang", lang), zap.Error(err))
		return msgID
	}
	return s
}
