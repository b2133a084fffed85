package entity

import (
	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
)

// DefaultInsuranceNumber is sent when the input row carries none.
const DefaultInsuranceNumber = "0000"

// Patient is the admission view of a record: the name split into parts and
// the certification period resolved.
type Patient struct {
	FirstName       string
	MiddleName      string
	LastName        string
	DOB             string
	Sex             string
	Payor           string
	InsuranceNumber string
	MRN             string
	PhysicianNPI    string
	StartOfCare     string
	CertFrom        string
	CertTo          string
}

// Patient derives the admission view. The certification period starts at
// the episode start, or the start of care when no episode start exists.
func (r CanonicalRecord) Patient() Patient {
	name := normalize.SplitName(r.Get(constants.PatientName))
	p := Patient{
		FirstName:       name.First,
		MiddleName:      name.Middle,
		LastName:        name.Last,
		DOB:             r.Get(constants.DOB),
		Sex:             normalize.Null(r.Attr(AttrSex)),
		Payor:           normalize.Null(r.Attr(AttrPayor)),
		InsuranceNumber: normalize.Null(r.Attr(AttrInsuranceNumber)),
		MRN:             r.Get(constants.MRN),
		PhysicianNPI:    r.Get(constants.NPI),
		StartOfCare:     r.Get(constants.StartOfCare),
		CertFrom:        r.Get(constants.EpisodeStart),
	}
	if p.CertFrom == "" {
		p.CertFrom = p.StartOfCare
	}
	if p.StartOfCare == "" {
		p.StartOfCare = p.CertFrom
	}
	if p.InsuranceNumber == "" {
		p.InsuranceNumber = DefaultInsuranceNumber
	}
	if end, err := normalize.EpisodeEnd(r.Get(constants.EpisodeEnd), p.CertFrom, r.Attr(AttrServiceLine)); err == nil {
		p.CertTo = end
	}
	return p
}

// FullName renders "First Middle Last".
func (p Patient) FullName() string {
	return normalize.PersonName{First: p.FirstName, Middle: p.MiddleName, Last: p.LastName}.Full()
}
