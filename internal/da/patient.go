package da

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
	"github.com/joseph-ayodele/orderbridge/internal/reconcile"
)

type patientPayload struct {
	PatientInfo    patientInfo   `json:"patientInfo"`
	PatientStatus  patientStatus `json:"patientStatus"`
	PhysicianNPI   string        `json:"physicianNpi"`
	ClinicianID    entityRef     `json:"clinicianId"`
	CareProviderID entityRef     `json:"careProviderId"`
}

type patientInfo struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	FirstName           string `json:"firstName"`
	MiddleInitial       string `json:"middleInitial"`
	LastName            string `json:"lastName"`
	Sex                 string `json:"sex"`
	DOB                 string `json:"dob"`
	PaySource           string `json:"paySource"`
	InsuranceNumber     string `json:"insuranceNumber"`
	MedicalRecordNumber string `json:"medicalRecordNumber"`
	PhysicianHelperID   int64  `json:"physicianHelperId"`
	PhysicianName       string `json:"physicianName"`
	PhysicianNPI        string `json:"physicianNpi"`
}

type patientStatus struct {
	State           string      `json:"state"`
	StartOfCareDate string      `json:"startOfCareDate"`
	CertPeriodFrom  string      `json:"certPeriodFrom"`
	CertPeriodTo    string      `json:"certPeriodTo"`
	Diagnoses       []diagnosis `json:"diagnoses"`
}

type diagnosis struct {
	Code          string `json:"code"`
	DiagnosisType string `json:"diagnosisType"`
}

type entityRef struct {
	ID         int64  `json:"id"`
	NPI        string `json:"npi,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

type createResponse struct {
	IsSuccess    bool   `json:"isSuccess"`
	ErrorMessage string `json:"errorMessage"`
	Value        *struct {
		ID         json.Number `json:"id"`
		ActionType string      `json:"actionType"`
	} `json:"value"`
}

func (c *Client) buildPatient(rec entity.CanonicalRecord) patientPayload {
	p := rec.Patient()
	var dx []diagnosis
	for i, code := range normalize.ICDCodes(rec.Get(constants.ICDCodes)) {
		kind := "other"
		if i == 0 {
			kind = "principal"
		}
		dx = append(dx, diagnosis{Code: code, DiagnosisType: kind})
	}
	return patientPayload{
		PatientInfo: patientInfo{
			Name:                p.FullName(),
			FirstName:           p.FirstName,
			MiddleInitial:       p.MiddleName,
			LastName:            p.LastName,
			Sex:                 p.Sex,
			DOB:                 p.DOB,
			PaySource:           p.Payor,
			InsuranceNumber:     p.InsuranceNumber,
			MedicalRecordNumber: p.MRN,
			PhysicianNPI:        p.PhysicianNPI,
		},
		PatientStatus: patientStatus{
			State:           "admitted",
			StartOfCareDate: p.StartOfCare,
			CertPeriodFrom:  p.CertFrom,
			CertPeriodTo:    p.CertTo,
			Diagnoses:       dx,
		},
		PhysicianNPI:   p.PhysicianNPI,
		ClinicianID:    entityRef{ID: c.cfg.ClinicianID},
		CareProviderID: entityRef{ID: c.cfg.CaretakerID},
	}
}

// CreatePatient posts the admission for rec. A response with isSuccess
// false becomes a CollaboratorError carrying the platform's errorMessage.
func (c *Client) CreatePatient(ctx context.Context, rec entity.CanonicalRecord) (reconcile.Creation, error) {
	endpoint := c.cfg.BaseURL + "/" + strings.TrimLeft(c.cfg.PatientPath, "/")
	raw, status, err := c.send(ctx, http.MethodPost, endpoint, c.buildPatient(rec))
	if err != nil {
		return reconcile.Creation{}, err
	}
	if status/100 != 2 {
		return reconcile.Creation{}, statusError(status, raw)
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return reconcile.Creation{}, common.NewCollaboratorError(service, status, "decode response: "+err.Error())
	}
	if !resp.IsSuccess {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "patient creation rejected"
		}
		return reconcile.Creation{}, common.NewCollaboratorError(service, status, msg)
	}

	created := reconcile.Creation{}
	if resp.Value != nil {
		created.ExternalID = resp.Value.ID.String()
		created.Message = fmt.Sprintf("%s:%s", resp.Value.ActionType, created.ExternalID)
	}
	c.logger.Info("da.patient.created", "doc_id", rec.DocID, "external_id", created.ExternalID)
	return created, nil
}

// Create makes the client a reconcile.Creator for patient runs.
func (c *Client) Create(ctx context.Context, rec entity.CanonicalRecord) (reconcile.Creation, error) {
	return c.CreatePatient(ctx, rec)
}
