package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/extract"
)

func regexValues(cands []entity.Candidate) map[constants.Field]entity.Candidate {
	out := make(map[constants.Field]entity.Candidate)
	for _, c := range cands {
		if c.Source != constants.SourceRegex {
			continue
		}
		if _, ok := out[c.Field]; !ok {
			out[c.Field] = c
		}
	}
	return out
}

func TestExtract_LabeledLayout(t *testing.T) {
	text := "Patient Name: Doe, John DOB: 02/02/1950\n" +
		"MRN: A1234\n" +
		"Order #: 778899\n" +
		"01/15/2024 - 03/15/2024\n" +
		"Physician NPI: 1234567890\n" +
		"ICD-10 Codes: I10, E11.9"

	cands, err := extract.NewExtractor(nil, nil).Extract(extract.Input{DocID: "d1", Text: text})
	require.NoError(t, err)

	got := regexValues(cands)
	want := map[constants.Field]string{
		constants.PatientName:  "Doe, John",
		constants.DOB:          "02/02/1950",
		constants.MRN:          "A1234",
		constants.OrderNumber:  "778899",
		constants.EpisodeStart: "01/15/2024",
		constants.EpisodeEnd:   "03/15/2024",
		constants.NPI:          "1234567890",
		constants.ICDCodes:     "I10, E11.9",
	}
	for f, v := range want {
		assert.Equal(t, v, got[f].Value, f)
	}
	assert.Equal(t, "episode.range", got[constants.EpisodeStart].Rule)
	assert.NotContains(t, got, constants.StartOfCare)
}

func TestExtract_LeavesEpisodeEndToMapping(t *testing.T) {
	text := "Client Name: Jane Roe\nStart of Care: 01/01/2024\nDate of Birth: 3/4/1940"

	cands, err := extract.NewExtractor(nil, nil).Extract(extract.Input{DocID: "d2", Text: text})
	require.NoError(t, err)

	got := regexValues(cands)
	assert.Equal(t, "01/01/2024", got[constants.StartOfCare].Value)
	assert.Equal(t, "03/04/1940", got[constants.DOB].Value)
	assert.Equal(t, "Jane Roe", got[constants.PatientName].Value)
	assert.NotContains(t, got, constants.EpisodeEnd)
}

func TestExtract_SerialDate(t *testing.T) {
	cands, err := extract.NewExtractor(nil, nil).Extract(extract.Input{DocID: "d3", Text: "DOB: 45292"})
	require.NoError(t, err)
	assert.Equal(t, "01/01/2024", regexValues(cands)[constants.DOB].Value)
}

func TestExtract_Unreadable(t *testing.T) {
	tests := []struct {
		name string
		in   extract.Input
	}{
		{name: "no text no analysis", in: extract.Input{DocID: "d4"}},
		{name: "whitespace only", in: extract.Input{DocID: "d4", Text: " \n\t "}},
		{name: "empty analysis", in: extract.Input{DocID: "d4", Analysis: &entity.Analysis{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extract.NewExtractor(nil, nil).Extract(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrDocumentUnreadable)
		})
	}
}

func TestExtract_AnalysisCandidates(t *testing.T) {
	analysis := &entity.Analysis{
		ModelID:          "orders-v1",
		StructuredFields: map[string]string{"PatientName": "Smith, Ann"},
		KeyValuePairs:    []entity.KeyValue{{Key: "Medical Record No.", Value: "MR-55", Confidence: 0.9}},
		Tables: []entity.Table{{
			RowCount:    2,
			ColumnCount: 2,
			Cells: []entity.TableCell{
				{Row: 0, Column: 0, Content: "MRN"},
				{Row: 0, Column: 1, Content: "DOB"},
				{Row: 1, Column: 0, Content: "A77"},
				{Row: 1, Column: 1, Content: "01/02/1960"},
			},
		}},
	}

	cands, err := extract.NewExtractor(nil, nil).Extract(extract.Input{DocID: "d5", Analysis: analysis})
	require.NoError(t, err)

	assert.Contains(t, cands, entity.Candidate{Key: "PatientName", Value: "Smith, Ann", Source: constants.SourceStructured})
	assert.Contains(t, cands, entity.Candidate{Key: "Medical Record No.", Value: "MR-55", Source: constants.SourceKeyValue})
	assert.Contains(t, cands, entity.Candidate{Key: "MRN", Value: "A77", Source: constants.SourceTable})
	assert.Contains(t, cands, entity.Candidate{Key: "DOB", Value: "01/02/1960", Source: constants.SourceTable})
}

func TestExtract_ContentFallback(t *testing.T) {
	analysis := &entity.Analysis{Content: "Patient Name: Roe, Jane\nMRN: 9981"}

	cands, err := extract.NewExtractor(nil, nil).Extract(extract.Input{DocID: "d6", Analysis: analysis})
	require.NoError(t, err)

	got := regexValues(cands)
	assert.Equal(t, "Roe, Jane", got[constants.PatientName].Value)
	assert.Equal(t, "9981", got[constants.MRN].Value)
}
