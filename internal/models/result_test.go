package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRowKeepsKeyOrder(t *testing.T) {
	payload := `{"prijmeni":"XXX","body":0,"body_rel":0.5,"result":[{"answer":["a",2],"points":2},{"answer":null,"points":0}],"email":"x@students.zcu.cz"}`

	var row ResultRow
	require.NoError(t, json.Unmarshal([]byte(payload), &row))

	assert.True(t, row.HasResult)
	assert.Equal(t, []Field{
		{Name: "prijmeni", Value: "XXX"},
		{Name: "body", Value: "0"},
		{Name: "body_rel", Value: "0.5"},
		{Name: "email", Value: "x@students.zcu.cz"},
	}, row.Meta)
	require.Len(t, row.Result, 2)
	assert.Equal(t, Choices{"a", "2"}, row.Result[0].Answer)
	assert.Equal(t, json.Number("2"), row.Result[0].Points)
	assert.Empty(t, row.Result[1].Answer)
}

func TestResultRowWithoutResult(t *testing.T) {
	var row ResultRow
	require.NoError(t, json.Unmarshal([]byte(`{"invalidField":"invalidValue"}`), &row))
	assert.False(t, row.HasResult)
	assert.Equal(t, []Field{{Name: "invalidField", Value: "invalidValue"}}, row.Meta)
}

func TestResultRowRejectsNonObject(t *testing.T) {
	var row ResultRow
	require.Error(t, json.Unmarshal([]byte(`["a"]`), &row))
}

func TestFlatResultRecordSetKeepsFirstSeenOrder(t *testing.T) {
	rec := NewFlatResultRecord()
	rec.Set("body", "1")
	rec.Set("email", "a@b.cz")
	rec.Set("body", "2")

	assert.Equal(t, []string{"body", "email"}, rec.Keys)
	v, ok := rec.Get("body")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestStatisticsBundleJSONShape(t *testing.T) {
	bundle := StatisticsBundle{
		Averages: BarSeries{Name: "avg", Values: QuestionAverages{{Key: "question1", Value: 0.5}, {Key: "question2", Value: 0}}},
		Grades:   PieSeries{Name: "groups", Values: []PieSlice{{ID: 0, Value: 1, Label: "A"}}},
	}

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"avg","values":{"question1":0.5,"question2":0},"graphType":"BAR_CHART"},
		{"name":"groups","values":[{"id":0,"value":1,"label":"A"}],"graphType":"PIE_CHART"}
	]`, string(raw))
	assert.Contains(t, string(raw), `{"question1":0.5,"question2":0}`)

	var decoded StatisticsBundle
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, bundle, decoded)
}
