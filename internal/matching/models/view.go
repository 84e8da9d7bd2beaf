package models

import (
	"encoding/json"
	"strings"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// JoinKind selects which counterparty data a MatchView carries. It is fixed
// by the query that built the view, never inferred from populated fields.
type JoinKind int

const (
	JoinNone JoinKind = iota
	// JoinRequester is the donor-facing shape: the request and who asked.
	JoinRequester
	// JoinDonor is the requester-facing shape: who was matched and where.
	JoinDonor
)

var joinKindNames = map[JoinKind]string{
	JoinNone:      "none",
	JoinRequester: "requester",
	JoinDonor:     "donor",
}

func (k JoinKind) String() string {
	return joinKindNames[k]
}

func (k JoinKind) MarshalText() ([]byte, error) {
	name, ok := joinKindNames[k]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "unknown join kind")
	}
	return []byte(name), nil
}

// RequesterJoin is the request side of a match as shown to the donor.
type RequesterJoin struct {
	RequesterID   id.UserID       `json:"requester_id"`
	RequesterName string          `json:"requester_name"`
	PatientName   string          `json:"patient_name,omitempty"`
	BloodType     id.BloodType    `json:"blood_type"`
	UnitsNeeded   int             `json:"units_needed"`
	Urgency       id.UrgencyLevel `json:"urgency"`
	RequestStatus string          `json:"request_status"`
	HospitalName  string          `json:"hospital_name"`
	HospitalCity  string          `json:"hospital_city"`
	HospitalState string          `json:"hospital_state"`
}

// DonorJoin is the donor side of a match as shown to the requester.
type DonorJoin struct {
	DonorName string       `json:"donor_name"`
	BloodType id.BloodType `json:"blood_type"`
	City      string       `json:"city"`
	State     string       `json:"state"`
}

// MatchView is a match plus at most one counterparty join.
type MatchView struct {
	Match     DonationMatch
	kind      JoinKind
	requester RequesterJoin
	donor     DonorJoin
}

func CoreView(m DonationMatch) MatchView {
	return MatchView{Match: m, kind: JoinNone}
}

func WithRequester(m DonationMatch, join RequesterJoin) MatchView {
	return MatchView{Match: m, kind: JoinRequester, requester: join}
}

func WithDonor(m DonationMatch, join DonorJoin) MatchView {
	return MatchView{Match: m, kind: JoinDonor, donor: join}
}

func (v MatchView) Kind() JoinKind {
	return v.kind
}

// Requester returns the requester join when the view carries one.
func (v MatchView) Requester() (RequesterJoin, bool) {
	return v.requester, v.kind == JoinRequester
}

// Donor returns the donor join when the view carries one.
func (v MatchView) Donor() (DonorJoin, bool) {
	return v.donor, v.kind == JoinDonor
}

// RequesterName is empty unless the view carries the requester join.
func (v MatchView) RequesterName() string {
	if v.kind != JoinRequester {
		return ""
	}
	return v.requester.RequesterName
}

// DonorName is empty unless the view carries the donor join.
func (v MatchView) DonorName() string {
	if v.kind != JoinDonor {
		return ""
	}
	return v.donor.DonorName
}

// CounterpartyName is the other party's display name for the viewer.
func (v MatchView) CounterpartyName() string {
	switch v.kind {
	case JoinRequester:
		return v.requester.RequesterName
	case JoinDonor:
		return v.donor.DonorName
	}
	return ""
}

// BloodType is the requested type on donor-facing views and the donor's
// type on requester-facing views.
func (v MatchView) BloodType() id.BloodType {
	switch v.kind {
	case JoinRequester:
		return v.requester.BloodType
	case JoinDonor:
		return v.donor.BloodType
	}
	return ""
}

// City is the hospital city for donors and the donor's city for requesters.
func (v MatchView) City() string {
	switch v.kind {
	case JoinRequester:
		return v.requester.HospitalCity
	case JoinDonor:
		return v.donor.City
	}
	return ""
}

func (v MatchView) State() string {
	switch v.kind {
	case JoinRequester:
		return v.requester.HospitalState
	case JoinDonor:
		return v.donor.State
	}
	return ""
}

// Location concatenates city and state for display and sorting.
func (v MatchView) Location() string {
	return strings.TrimSpace(v.City() + " " + v.State())
}

func (v MatchView) MarshalJSON() ([]byte, error) {
	type core DonationMatch
	out := struct {
		core
		Join      JoinKind       `json:"join"`
		Requester *RequesterJoin `json:"requester,omitempty"`
		Donor     *DonorJoin     `json:"donor,omitempty"`
	}{core: core(v.Match), Join: v.kind}
	switch v.kind {
	case JoinRequester:
		out.Requester = &v.requester
	case JoinDonor:
		out.Donor = &v.donor
	}
	return json.Marshal(out)
}
