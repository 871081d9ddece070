package models

// QuestionType enumerates the Moodle question types the print service can lay out.
type QuestionType string

const (
	QuestionTypeMultichoice QuestionType = "multichoice"
	QuestionTypeTrueFalse   QuestionType = "truefalse"
)

// DefaultQuestionTypes is the allow-list applied when no configuration overrides it.
var DefaultQuestionTypes = []QuestionType{QuestionTypeMultichoice, QuestionTypeTrueFalse}

// Question is one printable quiz question. Answer order is positional: the OCR service
// reports detected choices by index into Answers.
type Question struct {
	Type         QuestionType `json:"type" validate:"required"`
	ID           string       `json:"id" validate:"required"`
	Text         string       `json:"text"`
	Name         string       `json:"name"`
	Answers      []Answer     `json:"answers" validate:"required,min=1,dive"`
	DefaultGrade string       `json:"defaultGrade" validate:"required,numeric"`
	Penalty      string       `json:"penalty" validate:"required,numeric"`
}

// Answer is one answer option with its percentage credit (0..100).
type Answer struct {
	Text     string `json:"text"`
	Fraction string `json:"fraction" validate:"required,numeric,fraction"`
}
