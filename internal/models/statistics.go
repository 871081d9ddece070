package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChartType tells the client which chart renders a series.
type ChartType string

const (
	ChartTypeBar ChartType = "BAR_CHART"
	ChartTypePie ChartType = "PIE_CHART"
)

// QuestionAverage is the average score of one question relative to the quiz maximum.
type QuestionAverage struct {
	Key   string
	Value float64
}

// QuestionAverages serialises as a JSON object keyed by question, in question order.
type QuestionAverages []QuestionAverage

// MarshalJSON writes the averages as an ordered object.
func (q QuestionAverages) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, avg := range q {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(avg.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(avg.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered object back into averages.
func (q *QuestionAverages) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("question averages must be an object")
	}
	out := QuestionAverages{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return err
		}
		key, _ := keyTok.(string)
		out = append(out, QuestionAverage{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*q = out
	return nil
}

// PieSlice is the student count of one grade bucket.
type PieSlice struct {
	ID    int    `json:"id"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// BarSeries holds per-question averages.
type BarSeries struct {
	Name   string
	Values QuestionAverages
}

// PieSeries holds grade bucket counts, best bucket first.
type PieSeries struct {
	Name   string
	Values []PieSlice
}

// StatisticsBundle is the chart-ready output of the aggregator. It serialises as a JSON
// array of exactly two series: the bar series followed by the pie series.
type StatisticsBundle struct {
	Averages BarSeries
	Grades   PieSeries
}

type seriesJSON struct {
	Name      string          `json:"name"`
	Values    json.RawMessage `json:"values"`
	GraphType ChartType       `json:"graphType"`
}

// MarshalJSON implements json.Marshaler.
func (b StatisticsBundle) MarshalJSON() ([]byte, error) {
	averages, err := json.Marshal(b.Averages.Values)
	if err != nil {
		return nil, err
	}
	slices := b.Grades.Values
	if slices == nil {
		slices = []PieSlice{}
	}
	grades, err := json.Marshal(slices)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]seriesJSON{
		{Name: b.Averages.Name, Values: averages, GraphType: ChartTypeBar},
		{Name: b.Grades.Name, Values: grades, GraphType: ChartTypePie},
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *StatisticsBundle) UnmarshalJSON(data []byte) error {
	var series []seriesJSON
	if err := json.Unmarshal(data, &series); err != nil {
		return err
	}
	out := StatisticsBundle{}
	for _, s := range series {
		switch s.GraphType {
		case ChartTypeBar:
			out.Averages.Name = s.Name
			if err := json.Unmarshal(s.Values, &out.Averages.Values); err != nil {
				return err
			}
		case ChartTypePie:
			out.Grades.Name = s.Name
			if err := json.Unmarshal(s.Values, &out.Grades.Values); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown graph type %q", s.GraphType)
		}
	}
	*b = out
	return nil
}
