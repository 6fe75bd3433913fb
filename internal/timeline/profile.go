package timeline

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MeasurableDisease struct {
	IsMeasurable bool   `json:"is_measurable"`
	Description  string `json:"description,omitempty"`
}

type PriorTherapy struct {
	Regimen   string `json:"regimen"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type CurrentTreatment struct {
	IsActive bool   `json:"is_active"`
	Regimen  string `json:"regimen,omitempty"`
}

type SmokingHistory struct {
	PackYears float64 `json:"pack_years"`
	QuitDate  string  `json:"quit_date,omitempty"`
}

// PatientProfile is the demographic and clinical-history record events hang
// off of. Profiles are replaced whole on save, never partially patched.
type PatientProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Race   string `json:"race,omitempty"`
	Height string `json:"height,omitempty"`
	Weight string `json:"weight,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`

	CancerType           string            `json:"cancer_type"`
	DiagnosisDate        string            `json:"diagnosis_date,omitempty"`
	FirstOccurrence      bool              `json:"first_occurrence"`
	Stage                string            `json:"stage,omitempty"`
	MeasurableDisease    MeasurableDisease `json:"measurable_disease"`
	TumorMarkersFound    []string          `json:"tumor_markers_found"`
	TumorMarkersRuledOut []string          `json:"tumor_markers_ruled_out"`

	FamilyHistory    string           `json:"family_history,omitempty"`
	PriorTherapies   []PriorTherapy   `json:"prior_therapies"`
	CurrentTreatment CurrentTreatment `json:"current_treatment"`
	ECOGScore        *int             `json:"ecog_score,omitempty"`

	SmokingHistory     *SmokingHistory `json:"smoking_history,omitempty"`
	AlcoholConsumption string          `json:"alcohol_consumption,omitempty"`

	Concerns            string `json:"concerns,omitempty"`
	PrognosisPreference string `json:"prognosis_preference,omitempty"` // show_stats, avoid_stats, neutral

	MedicalRecordsText string `json:"medical_records_text,omitempty"`
}

// clinicalSeed pairs a cancer type with regimens, stages and tumor markers
// that are plausible together, so generated profiles are internally
// consistent.
type clinicalSeed struct {
	cancerType      string
	regimens        []string
	stages          []string
	markersFound    []string
	markersRuledOut []string
}

var clinicalSeeds = []clinicalSeed{
	{
		cancerType:      "Non-small cell lung cancer",
		regimens:        []string{"Carboplatin + Pemetrexed", "Pembrolizumab maintenance"},
		stages:          []string{"IIIA", "IIIB", "IV"},
		markersFound:    []string{"PD-L1 55%"},
		markersRuledOut: []string{"EGFR", "ALK"},
	},
	{
		cancerType:      "Colorectal cancer",
		regimens:        []string{"FOLFOX", "FOLFIRI"},
		stages:          []string{"IIB", "IIIA", "IIIC"},
		markersFound:    []string{"CEA elevated"},
		markersRuledOut: []string{"MSI-H"},
	},
	{
		cancerType:      "Breast cancer",
		regimens:        []string{"AC-T", "Paclitaxel + Trastuzumab"},
		stages:          []string{"IIA", "IIB", "IIIA"},
		markersFound:    []string{"ER+", "PR+"},
		markersRuledOut: []string{"HER2"},
	},
}

// SeedRegimens returns every regimen the profile generator can assign.
func SeedRegimens() []string {
	return lo.FlatMap(clinicalSeeds, func(s clinicalSeed, _ int) []string {
		return s.regimens
	})
}

// newSeedProfile synthesizes a complete profile with randomly sampled but
// internally consistent clinical fields and a fresh id.
func newSeedProfile(name string) *PatientProfile {
	seed := clinicalSeeds[rand.Intn(len(clinicalSeeds))]
	ecog := rand.Intn(3) // 0-2: well enough for remote monitoring
	genders := []string{"Male", "Female"}

	return &PatientProfile{
		ID:              uuid.New().String(),
		Name:            name,
		Age:             35 + rand.Intn(45),
		Gender:          genders[rand.Intn(len(genders))],
		CancerType:      seed.cancerType,
		DiagnosisDate:   time.Now().AddDate(0, -(3 + rand.Intn(18)), 0).Format("2006-01-02"),
		FirstOccurrence: true,
		Stage:           seed.stages[rand.Intn(len(seed.stages))],
		MeasurableDisease: MeasurableDisease{
			IsMeasurable: true,
			Description:  "Target lesion on baseline CT",
		},
		TumorMarkersFound:    seed.markersFound,
		TumorMarkersRuledOut: seed.markersRuledOut,
		PriorTherapies:       []PriorTherapy{},
		CurrentTreatment: CurrentTreatment{
			IsActive: true,
			Regimen:  seed.regimens[rand.Intn(len(seed.regimens))],
		},
		ECOGScore: &ecog,
		SmokingHistory: &SmokingHistory{
			PackYears: float64(rand.Intn(41)),
		},
		AlcoholConsumption:  "Occasional",
		PrognosisPreference: "neutral",
	}
}
