package roster

import (
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/pkg/delimited"
	"github.com/noah-isme/exam-sheets-api/pkg/textcodec"
)

// Options configures decoding of the roster and result exports.
type Options struct {
	CodePage        string
	RosterSeparator rune
	ResultSeparator rune
}

func (o Options) withDefaults() Options {
	if o.CodePage == "" {
		o.CodePage = textcodec.DefaultCodePage
	}
	if o.RosterSeparator == 0 {
		o.RosterSeparator = ';'
	}
	if o.ResultSeparator == 0 {
		o.ResultSeparator = ','
	}
	return o
}

// Column aliases seen in faculty exports, first match wins.
var (
	osCisloColumns    = []string{"os_cislo", "osCislo"}
	jmenoColumns      = []string{"jmeno"}
	prijmeniColumns   = []string{"prijmeni"}
	vizualniIDColumns = []string{"vizualni_id", "vizualniId", "userName", "login"}
)

// Normalizer maps raw roster and result exports into typed records.
type Normalizer struct {
	opts   Options
	logger *zap.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(opts Options, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{opts: opts.withDefaults(), logger: logger}
}

// ParseRoster decodes a student roster. Rows without a personal number are dropped and
// unused columns are discarded. An empty result is not an error.
func (n *Normalizer) ParseRoster(raw []byte) ([]models.Student, error) {
	text, err := textcodec.Decode(raw, n.opts.CodePage)
	if err != nil {
		return nil, err
	}
	parsed := delimited.ParseDetailed(text, n.opts.RosterSeparator)

	students := make([]models.Student, 0, len(parsed.Records))
	missingID := 0
	for _, rec := range parsed.Records {
		student := models.Student{
			Jmeno:      lookup(rec, jmenoColumns),
			Prijmeni:   lookup(rec, prijmeniColumns),
			VizualniID: lookup(rec, vizualniIDColumns),
			OsCislo:    lookup(rec, osCisloColumns),
		}
		if student.OsCislo == "" {
			missingID++
			continue
		}
		students = append(students, student)
	}

	n.logger.Debug("roster parsed",
		zap.Int("students", len(students)),
		zap.Int("dropped_rows", parsed.Dropped),
		zap.Int("missing_id", missingID),
	)
	return students, nil
}

// ParseResultRows decodes an exported result CSV into flat records in header order.
func (n *Normalizer) ParseResultRows(raw []byte) ([]models.FlatResultRecord, error) {
	text, err := textcodec.Decode(raw, n.opts.CodePage)
	if err != nil {
		return nil, err
	}
	parsed := delimited.ParseDetailed(text, n.opts.ResultSeparator)

	rows := make([]models.FlatResultRecord, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		row := models.NewFlatResultRecord()
		for _, key := range rec.Keys {
			row.Set(key, rec.Values[key])
		}
		rows = append(rows, row)
	}

	n.logger.Debug("result rows parsed", zap.Int("rows", len(rows)), zap.Int("dropped_rows", parsed.Dropped))
	return rows, nil
}

func lookup(rec delimited.Record, names []string) string {
	for _, name := range names {
		if v, ok := rec.Get(name); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
