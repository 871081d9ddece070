package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/pkg/delimited"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
)

const evaluationPayload = `{"result":[
  {"body":0,"body_celkem":3,"body_rel":0,"email":"xxxx@students.zcu.cz","jmeno":"Daniel","login":"xxxx","os_cislo":"AxxNzzzzP","prijmeni":"XXX",
   "result":[{"answer":[],"points":0},{"answer":[],"points":0}]},
  {"body":0,"body_celkem":3,"body_rel":0,"email":"xxx8@students.zcu.cz","jmeno":"Matěj","login":"xxxx","os_cislo":"AxxNzzzzP","prijmeni":"XXX",
   "result":[{"answer":[],"points":0},{"answer":[],"points":0}]}
],"log":"ok"}`

func decodeRows(t *testing.T, payload string) []models.ResultRow {
	t.Helper()
	var resp models.EvaluationResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	return resp.Result
}

func TestFlattenExpandsResults(t *testing.T) {
	rows := decodeRows(t, `{"result":[{"os_cislo":"A1","result":[{"answer":["a"],"points":2},{"answer":[],"points":0}]}]}`)

	flat, err := NewFlattener(Options{}, nil).Flatten(rows)
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, []string{"os_cislo", "answer1", "points1", "answer2", "points2"}, flat[0].Keys)
	assert.Equal(t, map[string]string{
		"os_cislo": "A1",
		"answer1":  "a",
		"points1":  "2",
		"answer2":  "",
		"points2":  "0",
	}, flat[0].Values)
}

func TestFlattenJoinsMultipleChoices(t *testing.T) {
	rows := decodeRows(t, `{"result":[{"os_cislo":"A1","result":[{"answer":["a","c"],"points":1.5}]}]}`)

	flat, err := NewFlattener(Options{}, nil).Flatten(rows)
	require.NoError(t, err)
	answer, _ := flat[0].Get("answer1")
	points, _ := flat[0].Get("points1")
	assert.Equal(t, "a,c", answer)
	assert.Equal(t, "1.5", points)
}

func TestFlattenErrors(t *testing.T) {
	flattener := NewFlattener(Options{}, nil)

	_, err := flattener.Flatten(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrEmptyInput)
	assert.Contains(t, err.Error(), "Empty results")

	_, err = flattener.Flatten(decodeRows(t, `{"result":[{"invalidField":"invalidValue"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingField)
	assert.Contains(t, err.Error(), "Content does not contain result field!")
}

func TestFlattenRejectsMisalignedResultCounts(t *testing.T) {
	rows := decodeRows(t, `{"result":[
	  {"os_cislo":"A1","result":[{"answer":["a"],"points":1},{"answer":["b"],"points":1}]},
	  {"os_cislo":"A2","result":[{"answer":["a"],"points":1}]}
	]}`)

	_, err := NewFlattener(Options{}, nil).Flatten(rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingField)

	_, err = NewFlattener(Options{ExpectedQuestions: 3}, nil).Flatten(rows[:1])
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingField)
}

func TestDatasetSerializesInColumnOrder(t *testing.T) {
	flat, err := NewFlattener(Options{}, nil).Flatten(decodeRows(t, evaluationPayload))
	require.NoError(t, err)

	data, err := Dataset(flat)
	require.NoError(t, err)
	out, err := export.NewCSVExporter(',').Render(data)
	require.NoError(t, err)

	expected := "body,body_celkem,body_rel,email,jmeno,login,os_cislo,prijmeni,answer1,points1,answer2,points2\n" +
		"0,3,0,xxxx@students.zcu.cz,Daniel,xxxx,AxxNzzzzP,XXX,,0,,0\n" +
		"0,3,0,xxx8@students.zcu.cz,Matěj,xxxx,AxxNzzzzP,XXX,,0,,0\n"
	assert.Equal(t, expected, string(out))
}

func TestDatasetRoundTripsThroughParser(t *testing.T) {
	rows := decodeRows(t, `{"result":[
	  {"jmeno":"Jan","note":"says \"hi\", twice","result":[{"answer":["a","b"],"points":2},{"answer":[],"points":0}]},
	  {"jmeno":"Eva","note":"line\nbreak","result":[{"answer":["c"],"points":1},{"answer":["d"],"points":3}]}
	]}`)
	flat, err := NewFlattener(Options{}, nil).Flatten(rows)
	require.NoError(t, err)

	data, err := Dataset(flat)
	require.NoError(t, err)
	out, err := export.NewCSVExporter(',').Render(data)
	require.NoError(t, err)

	parsed := delimited.Parse(string(out), ',')
	require.Len(t, parsed, len(flat))
	for i, rec := range parsed {
		assert.Equal(t, flat[i].Keys, rec.Keys)
		assert.Equal(t, flat[i].Values, rec.Values)
	}
}

func TestDatasetEmpty(t *testing.T) {
	_, err := Dataset(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrEmptyInput)
}
