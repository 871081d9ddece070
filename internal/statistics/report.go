package statistics

import (
	"strconv"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
)

// ReportSections lays a bundle out as two PDF tables: per-question averages with bars
// scaled to 1, and bucket counts with bars scaled to the number of students.
func ReportSections(bundle models.StatisticsBundle, translator *i18n.Translator, lang string) []export.Section {
	question := translator.T(lang, i18n.MsgColumnQuestion)
	average := translator.T(lang, i18n.MsgColumnAverage)
	averages := export.Dataset{Headers: []string{question, average}}
	for _, avg := range bundle.Averages.Values {
		averages.Rows = append(averages.Rows, map[string]string{
			question: avg.Key,
			average:  strconv.FormatFloat(avg.Value, 'f', 2, 64),
		})
	}

	bucket := translator.T(lang, i18n.MsgColumnBucket)
	students := translator.T(lang, i18n.MsgColumnStudents)
	grades := export.Dataset{Headers: []string{bucket, students}}
	total := 0
	for _, slice := range bundle.Grades.Values {
		total += slice.Value
		grades.Rows = append(grades.Rows, map[string]string{
			bucket:   slice.Label,
			students: strconv.Itoa(slice.Value),
		})
	}

	return []export.Section{
		{Title: bundle.Averages.Name, Data: averages, BarColumn: average, BarMax: 1},
		{Title: bundle.Grades.Name, Data: grades, BarColumn: students, BarMax: float64(total)},
	}
}
