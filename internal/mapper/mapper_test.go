package mapper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/mapper"
)

func TestMap_AlwaysTotal(t *testing.T) {
	rec, resolved := mapper.NewMapper(nil).Map("d1", nil)

	assert.Equal(t, "d1", rec.DocID)
	assert.Empty(t, resolved)
	require.Len(t, rec.Fields, len(constants.Fields()))
	for _, f := range constants.Fields() {
		v, ok := rec.Fields[f]
		assert.True(t, ok, f)
		assert.Empty(t, v, f)
	}
}

func TestMap_SourcePriority(t *testing.T) {
	tests := []struct {
		name       string
		cands      []entity.Candidate
		field      constants.Field
		want       string
		wantSource constants.Source
	}{
		{
			name: "structured beats regex",
			cands: []entity.Candidate{
				{Field: constants.MRN, Value: "R1", Source: constants.SourceRegex, Rule: "mrn.colon"},
				{Key: "MRN", Value: "S1", Source: constants.SourceStructured},
			},
			field:      constants.MRN,
			want:       "S1",
			wantSource: constants.SourceStructured,
		},
		{
			name: "key value beats table",
			cands: []entity.Candidate{
				{Key: "NPI", Value: "1111111111", Source: constants.SourceTable},
				{Key: "Physician NPI #", Value: "2222222222", Source: constants.SourceKeyValue},
			},
			field:      constants.NPI,
			want:       "2222222222",
			wantSource: constants.SourceKeyValue,
		},
		{
			name: "blank higher tier falls through",
			cands: []entity.Candidate{
				{Key: "DOB", Value: "N/A", Source: constants.SourceStructured},
				{Key: "Date of Birth", Value: "2/2/1950", Source: constants.SourceKeyValue},
			},
			field:      constants.DOB,
			want:       "02/02/1950",
			wantSource: constants.SourceKeyValue,
		},
		{
			name: "unparseable date falls through",
			cands: []entity.Candidate{
				{Key: "DOB", Value: "unknown", Source: constants.SourceStructured},
				{Field: constants.DOB, Value: "03/03/1953", Source: constants.SourceRegex, Rule: "dob.label"},
			},
			field:      constants.DOB,
			want:       "03/03/1953",
			wantSource: constants.SourceRegex,
		},
		{
			name: "verbose value cleaned",
			cands: []entity.Candidate{
				{Key: "Medical Record", Value: "MRN: A-991", Source: constants.SourceKeyValue},
			},
			field:      constants.MRN,
			want:       "A-991",
			wantSource: constants.SourceKeyValue,
		},
		{
			name: "iso date",
			cands: []entity.Candidate{
				{Key: "DOB", Value: "1950-02-02", Source: constants.SourceStructured},
			},
			field:      constants.DOB,
			want:       "02/02/1950",
			wantSource: constants.SourceStructured,
		},
		{
			name: "iso datetime from the platform",
			cands: []entity.Candidate{
				{Key: "certPeriodFrom", Value: "2024-01-15T00:00:00", Source: constants.SourceStructured},
			},
			field:      constants.EpisodeStart,
			want:       "01/15/2024",
			wantSource: constants.SourceStructured,
		},
		{
			name: "facility name is not the patient",
			cands: []entity.Candidate{
				{Key: "Facility Name", Value: "Sunrise Home Care", Source: constants.SourceKeyValue},
				{Field: constants.PatientName, Value: "Doe, John", Source: constants.SourceRegex, Rule: "name.label"},
			},
			field:      constants.PatientName,
			want:       "Doe, John",
			wantSource: constants.SourceRegex,
		},
		{
			name: "first within a source wins",
			cands: []entity.Candidate{
				{Key: "Order Number", Value: "100", Source: constants.SourceKeyValue},
				{Key: "Order #", Value: "200", Source: constants.SourceKeyValue},
			},
			field:      constants.OrderNumber,
			want:       "100",
			wantSource: constants.SourceKeyValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resolved := mapper.NewMapper(nil).Map("d2", tt.cands)
			assert.Equal(t, tt.want, rec.Get(tt.field))

			var found bool
			for _, r := range resolved {
				if r.Field == tt.field {
					found = true
					assert.Equal(t, tt.wantSource, r.Source)
				}
			}
			assert.True(t, found)
		})
	}
}

func TestMap_IgnoresNonPatientLabels(t *testing.T) {
	cands := []entity.Candidate{
		{Key: "Physician Name", Value: "Dr. Gregory House", Source: constants.SourceKeyValue},
		{Key: "Agency Name", Value: "Sunrise Home Care", Source: constants.SourceStructured},
	}

	rec, _ := mapper.NewMapper(nil).Map("d3", cands)
	assert.Empty(t, rec.Get(constants.PatientName))
}

func TestDefaultEpisodeEnd(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[constants.Field]string
		serviceLine string
		want        string
		changed     bool
	}{
		{
			name:        "hospice from start of care",
			fields:      map[constants.Field]string{constants.StartOfCare: "01/01/2024"},
			serviceLine: "Hospice",
			want:        "03/20/2024",
			changed:     true,
		},
		{
			name:    "home health by default",
			fields:  map[constants.Field]string{constants.StartOfCare: "01/01/2024"},
			want:    "02/29/2024",
			changed: true,
		},
		{
			name: "episode start preferred over start of care",
			fields: map[constants.Field]string{
				constants.StartOfCare:  "01/01/2023",
				constants.EpisodeStart: "01/15/2024",
			},
			want:    "03/14/2024",
			changed: true,
		},
		{
			name: "explicit end kept",
			fields: map[constants.Field]string{
				constants.EpisodeStart: "01/15/2024",
				constants.EpisodeEnd:   "04/30/2024",
			},
			want: "04/30/2024",
		},
		{
			name: "no start",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := entity.NewCanonicalRecord("d4")
			for f, v := range tt.fields {
				rec.Fields[f] = v
			}
			assert.Equal(t, tt.changed, mapper.DefaultEpisodeEnd(rec, tt.serviceLine))
			assert.Equal(t, tt.want, rec.Get(constants.EpisodeEnd))
		})
	}
}
