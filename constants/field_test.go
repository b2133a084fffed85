package constants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/orderbridge/constants"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		label string
		want  constants.Field
	}{
		{"Patient Name", constants.PatientName},
		{"patient_name", constants.PatientName},
		{"Client Name:", constants.PatientName},
		{"Name", constants.PatientName},
		{"Patient ID", constants.MRN},
		{"MRN:", constants.MRN},
		{"Medical_Record_Number", constants.MRN},
		{"D.O.B.", constants.DOB},
		{"Date of Birth", constants.DOB},
		{"Born", constants.DOB},
		{"startOfCareDate", constants.StartOfCare},
		{"SOC Date", constants.StartOfCare},
		{"certPeriodFrom", constants.EpisodeStart},
		{"From Date", constants.EpisodeStart},
		{"certPeriodTo", constants.EpisodeEnd},
		{"To Date", constants.EpisodeEnd},
		{"Episode End", constants.EpisodeEnd},
		{"Physician NPI #", constants.NPI},
		{"Order #:", constants.OrderNumber},
		{"ICDCodes", constants.ICDCodes},
		{"ICD-10 Codes", constants.ICDCodes},
		{"episodestart", constants.EpisodeStart},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := constants.Canonicalize(tt.label)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_Unmapped(t *testing.T) {
	for _, label := range []string{
		"Facility Name",
		"Insurance Name",
		"Caregiver Name",
		"Emergency Contact Name",
		"Referring Physician",
		"Physician Name",
		"Associated Diagnoses",
		"Newborn",
		"Reason for Visit to date",
		"Episode Total Visits",
		"",
	} {
		t.Run(label, func(t *testing.T) {
			got, ok := constants.Canonicalize(label)
			assert.False(t, ok, "mapped to %s", got)
		})
	}
}
