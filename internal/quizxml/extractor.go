package quizxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

// Options configures the extractor.
type Options struct {
	// AllowedTypes lists the question types kept; empty means models.DefaultQuestionTypes.
	AllowedTypes []models.QuestionType
}

// Extractor turns a Moodle question-bank export into printable questions.
type Extractor struct {
	allowed   map[models.QuestionType]struct{}
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(opts Options, validate *validator.Validate, logger *zap.Logger) *Extractor {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	types := opts.AllowedTypes
	if len(types) == 0 {
		types = models.DefaultQuestionTypes
	}
	allowed := make(map[models.QuestionType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	ext := &Extractor{allowed: allowed, validator: validate, logger: logger}
	if err := ext.validator.RegisterValidation("fraction", validFraction); err != nil {
		panic(fmt.Sprintf("quizxml: register fraction validation: %v", err))
	}
	return ext
}

// validFraction accepts Moodle percentage credit within 0..100. Negative penalty
// fractions are rejected.
func validFraction(fl validator.FieldLevel) bool {
	v, err := strconv.ParseFloat(fl.Field().String(), 64)
	return err == nil && v >= 0 && v <= 100
}

// Extract parses the document and returns the accepted questions in document order.
func (e *Extractor) Extract(raw []byte) ([]models.Question, error) {
	root, err := decodeTree(raw)
	if err != nil {
		return nil, err
	}
	if root.name() != "quiz" {
		return nil, appErrors.MissingSection("quiz")
	}
	nodes := root.all("question")
	if len(nodes) == 0 {
		return nil, appErrors.MissingSection("questions")
	}

	questions := make([]models.Question, 0, len(nodes))
	seen := make(map[string]int, len(nodes))
	skipped := 0
	for idx, qn := range nodes {
		qType, _ := qn.attr("type")
		if _, ok := e.allowed[models.QuestionType(qType)]; !ok {
			skipped++
			continue
		}
		question, err := e.question(qn, models.QuestionType(qType))
		if err != nil {
			return nil, appErrors.MalformedInput(fmt.Sprintf("question %d: %v", idx+1, err), nil)
		}
		if err := e.validator.Struct(question); err != nil {
			return nil, appErrors.MalformedInput(fmt.Sprintf("question %d: %s", idx+1, describeValidation(err)), err)
		}
		if first, dup := seen[question.ID]; dup {
			return nil, appErrors.MalformedInput(fmt.Sprintf("question %d: id %q already used by question %d", idx+1, question.ID, first), nil)
		}
		seen[question.ID] = idx + 1
		questions = append(questions, question)
	}

	e.logger.Debug("quiz extracted", zap.Int("questions", len(questions)), zap.Int("skipped", skipped))
	return questions, nil
}

func (e *Extractor) question(qn node, qType models.QuestionType) (models.Question, error) {
	id, err := qn.text("idnumber")
	if err != nil {
		return models.Question{}, err
	}
	name, err := qn.text("name", "text")
	if err != nil {
		return models.Question{}, err
	}
	questionText, err := qn.one("questiontext")
	if err != nil {
		return models.Question{}, err
	}
	text, err := questionText.raw("text")
	if err != nil {
		return models.Question{}, err
	}
	defaultGrade, err := qn.text("defaultgrade")
	if err != nil {
		return models.Question{}, err
	}
	penalty, err := qn.text("penalty")
	if err != nil {
		return models.Question{}, err
	}

	answerNodes := qn.all("answer")
	if len(answerNodes) == 0 {
		return models.Question{}, fmt.Errorf("expected one or more <answer> in <question>, found 0")
	}
	answers := make([]models.Answer, 0, len(answerNodes))
	for i, an := range answerNodes {
		fraction, ok := an.attr("fraction")
		if !ok {
			return models.Question{}, fmt.Errorf("answer %d: missing fraction attribute", i+1)
		}
		answerText, err := an.raw("text")
		if err != nil {
			return models.Question{}, fmt.Errorf("answer %d: %w", i+1, err)
		}
		answers = append(answers, models.Answer{
			Text:     inlineImage(answerText, attachmentsOf(an)),
			Fraction: fraction,
		})
	}

	return models.Question{
		Type:         qType,
		ID:           id,
		Text:         inlineImage(text, attachmentsOf(questionText)),
		Name:         name,
		Answers:      answers,
		DefaultGrade: defaultGrade,
		Penalty:      penalty,
	}, nil
}

func decodeTree(raw []byte) (node, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimSpace(raw)))
	dec.CharsetReader = charset.NewReaderLabel
	var root node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return node{}, appErrors.MalformedInput("error parsing XML: empty document", err)
		}
		return node{}, appErrors.MalformedInput(fmt.Sprintf("error parsing XML: %v", err), err)
	}
	return root, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("invalid %s (%s)", fe.Namespace(), fe.Tag())
}
