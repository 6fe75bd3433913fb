package agent

import (
	"strings"

	"oncology-console/internal/timeline"
)

// CareProtocol carries the clinical criteria a triage run matches patient
// observations against: numeric severity thresholds plus named red flags.
type CareProtocol struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Complaint         string   `json:"complaint"`
	RedSeverity       int      `json:"red_severity"`
	YellowSeverity    int      `json:"yellow_severity"`
	YellowOnWorsening bool     `json:"yellow_on_worsening"`
	RedFlags          []string `json:"red_flags"`
	CommonSideEffects []string `json:"common_side_effects"`
	SupportiveCare    []string `json:"supportive_care"`
}

// Red flags that apply to every oncology patient regardless of regimen.
var generalRedFlags = []string{
	"fever",
	"severe shortness of breath",
	"chest pain",
	"confusion",
	"uncontrolled bleeding",
}

// ProtocolsFor returns the protocols relevant to a patient's current
// regimen and chief complaint. A general fallback protocol is always
// appended so a triage run never operates without criteria.
func ProtocolsFor(profile *timeline.PatientProfile, chiefComplaint string) []CareProtocol {
	var protocols []CareProtocol
	regimen := profile.CurrentTreatment.Regimen
	complaint := strings.ToLower(chiefComplaint)

	matches := func(symptom string) bool {
		return complaint == "" || strings.Contains(complaint, symptom)
	}

	if strings.Contains(regimen, "Carboplatin") || strings.Contains(regimen, "Pemetrexed") {
		if matches("headache") {
			protocols = append(protocols, CareProtocol{
				Name:              "NSCLC Symptom Management - Neurological",
				Description:       "Guidelines for neurological symptoms during Carboplatin/Pemetrexed",
				Complaint:         "Headache",
				RedSeverity:       8,
				YellowSeverity:    4,
				YellowOnWorsening: true,
				RedFlags:          append([]string{"new focal neurological deficit", "thunderclap headache"}, generalRedFlags...),
				CommonSideEffects: []string{"Fatigue", "Dizziness"},
				SupportiveCare:    []string{"Acetaminophen per oncology guidelines", "Quiet, dark room"},
			})
		}
		if matches("nausea") {
			protocols = append(protocols, CareProtocol{
				Name:              "NSCLC Symptom Management - GI",
				Description:       "Guidelines for GI distress during Carboplatin/Pemetrexed",
				Complaint:         "Nausea",
				RedSeverity:       8,
				YellowSeverity:    5,
				RedFlags:          append([]string{"severe abdominal pain", "coffee-ground emesis"}, generalRedFlags...),
				CommonSideEffects: []string{"Decreased appetite"},
				SupportiveCare:    []string{"Ondansetron 8mg every 8h PRN", "Small, frequent meals"},
			})
		}
	}

	if strings.Contains(regimen, "FOLFOX") && matches("neuropathy") {
		protocols = append(protocols, CareProtocol{
			Name:              "FOLFOX Neuropathy Protocol",
			Description:       "Oxaliplatin-induced peripheral neuropathy monitoring",
			Complaint:         "Neuropathy",
			RedSeverity:       7,
			YellowSeverity:    4,
			YellowOnWorsening: true,
			RedFlags:          append([]string{"severe muscle cramps", "laryngopharyngeal dysesthesia"}, generalRedFlags...),
			CommonSideEffects: []string{"Tingling in hands/feet"},
			SupportiveCare:    []string{"Avoid cold foods/drinks for 5 days", "Wear gloves when reaching into freezer"},
		})
	}

	protocols = append(protocols, CareProtocol{
		Name:              "General Oncology Triage",
		Description:       "Standard monitoring for oncology patients",
		Complaint:         chiefComplaint,
		RedSeverity:       8,
		YellowSeverity:    5,
		YellowOnWorsening: true,
		RedFlags:          generalRedFlags,
		CommonSideEffects: []string{"Fatigue", "Mild nausea"},
		SupportiveCare:    []string{"Hydration", "Rest", "Log symptoms"},
	})
	return protocols
}

// protocolFor picks the protocol whose complaint matches the symptom, or the
// general fallback (always last).
func protocolFor(protocols []CareProtocol, symptom string) CareProtocol {
	lowered := strings.ToLower(symptom)
	for _, p := range protocols {
		if p.Complaint != "" && strings.Contains(lowered, strings.ToLower(p.Complaint)) {
			return p
		}
	}
	return protocols[len(protocols)-1]
}
