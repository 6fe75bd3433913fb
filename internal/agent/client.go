package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"oncology-console/internal/timeline"
	"oncology-console/internal/triage"
)

// RuleEngine is a deterministic stand-in for an LLM triage agent. It matches
// the worst recent symptom observation against the care-protocol criteria
// for the patient's regimen. In a real deployment this would call a chat
// completion API with the protocol criteria in the system prompt.
type RuleEngine struct{}

var _ triage.Engine = (*RuleEngine)(nil)

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

type observation struct {
	event       *timeline.SymptomEvent
	measurement timeline.SymptomMeasurement
	severity    int
}

func (e *RuleEngine) RunTriage(ctx context.Context, profile *timeline.PatientProfile, recent []timeline.Event) (*triage.Decision, error) {
	if profile == nil {
		return nil, fmt.Errorf("triage requires a patient profile")
	}

	var observations []observation
	distress := false
	for _, event := range recent {
		switch ev := event.(type) {
		case *timeline.SymptomEvent:
			for _, m := range ev.Measurements {
				obs := observation{event: ev, measurement: m}
				if m.Severity != nil {
					obs.severity = m.Severity.Value
				}
				observations = append(observations, obs)
			}
		case *timeline.WellnessEvent:
			if ev.Anxiety >= 8 || ev.Mood <= 2 {
				distress = true
			}
		}
	}

	if len(observations) == 0 {
		decision := &triage.Decision{
			Route:            timeline.RouteGreen,
			PatientSummary:   "Thanks for checking in. Nothing concerning came up today.",
			ClinicianSummary: "Routine check-in. No symptom observations in the review window.",
			Confidence:       0.95,
		}
		if distress {
			decision.Route = timeline.RouteYellow
			decision.PatientSummary = "Thanks for sharing how you're feeling. A member of your care team will reach out."
			decision.ClinicianSummary = "No symptom observations, but the patient reported elevated distress in a wellness check-in."
			decision.EscalationTrigger = "elevated distress on wellness check-in"
			decision.SafetyFlags = []string{"elevated_distress"}
			decision.Confidence = 0.8
		}
		return decision, nil
	}

	worst := lo.MaxBy(observations, func(a, b observation) bool {
		return a.severity > b.severity
	})
	name := worst.measurement.Name

	protocols := ProtocolsFor(profile, name)
	protocol := protocolFor(protocols, name)

	related := lo.Filter(observations, func(o observation, _ int) bool {
		return strings.EqualFold(o.measurement.Name, name)
	})
	worsening := lo.SomeBy(related, func(o observation) bool {
		return o.measurement.Trend == "worsening"
	})
	flag, flagged := matchRedFlag(observations, protocol.RedFlags)

	decision := &triage.Decision{
		Route:      timeline.RouteGreen,
		Confidence: 0.9,
	}
	switch {
	case flagged:
		decision.Route = timeline.RouteRed
		decision.EscalationTrigger = fmt.Sprintf("red flag symptom reported: %s", flag)
		decision.SafetyFlags = []string{"red_flag_present"}
	case worst.severity >= protocol.RedSeverity:
		decision.Route = timeline.RouteRed
		decision.EscalationTrigger = fmt.Sprintf("%s severity %d/10 meets red criteria (>= %d)", name, worst.severity, protocol.RedSeverity)
		decision.SafetyFlags = []string{"severity_threshold_exceeded"}
	case worst.severity >= protocol.YellowSeverity:
		decision.Route = timeline.RouteYellow
		decision.EscalationTrigger = fmt.Sprintf("%s severity %d/10 meets yellow criteria (>= %d)", name, worst.severity, protocol.YellowSeverity)
	case protocol.YellowOnWorsening && worsening:
		decision.Route = timeline.RouteYellow
		decision.EscalationTrigger = fmt.Sprintf("%s reported with worsening trend", name)
	case distress:
		decision.Route = timeline.RouteYellow
		decision.EscalationTrigger = "elevated distress on wellness check-in"
		decision.SafetyFlags = []string{"elevated_distress"}
	}
	if worsening && decision.Route != timeline.RouteGreen {
		decision.SafetyFlags = append(decision.SafetyFlags, "worsening_trend")
	}

	switch decision.Route {
	case timeline.RouteRed:
		decision.PatientSummary = "This needs prompt attention. Your care team has been alerted and will contact you shortly."
		decision.ClinicianSummary = fmt.Sprintf("RED: %s. Worst observation: %s %d/10 under %s.",
			decision.EscalationTrigger, name, worst.severity, profile.CurrentTreatment.Regimen)
	case timeline.RouteYellow:
		decision.PatientSummary = "Thanks for checking in. A clinician will review your report and follow up."
		decision.ClinicianSummary = fmt.Sprintf("YELLOW: %s. Protocol: %s.", decision.EscalationTrigger, protocol.Name)
		decision.Confidence = 0.85
	default:
		decision.PatientSummary = "Thanks for checking in. Your symptoms look stable, keep up the supportive care."
		decision.ClinicianSummary = fmt.Sprintf("GREEN: worst observation %s %d/10, below protocol thresholds.", name, worst.severity)
	}

	if decision.Route != timeline.RouteGreen {
		decision.Signals = []timeline.DerivedSignal{symptomSignal(name, related, worsening, protocol)}
	}
	return decision, nil
}

// symptomSignal summarizes the observations behind a non-green route, with
// evidence pointers back to the source events.
func symptomSignal(name string, related []observation, worsening bool, protocol CareProtocol) timeline.DerivedSignal {
	evidence := lo.Map(related, func(o observation, _ int) timeline.EvidenceRef {
		return timeline.EvidenceRef{EventID: o.event.ID, Field: "measurements"}
	})
	timestamps := lo.Map(related, func(o observation, _ int) string {
		return o.event.Timestamp
	})

	trend := "reported"
	if worsening {
		trend = "worsening"
	}
	return timeline.DerivedSignal{
		Type:     "symptom_trend",
		Title:    fmt.Sprintf("%s %s", name, trend),
		Severity: "moderate",
		Summary:  fmt.Sprintf("%d observation(s) of %s in the review window", len(related), name),
		Window: &timeline.SignalWindow{
			Start: lo.Min(timestamps),
			End:   lo.Max(timestamps),
		},
		Evidence:        evidence,
		SuggestedAction: strings.Join(protocol.SupportiveCare, "; "),
	}
}

func matchRedFlag(observations []observation, redFlags []string) (string, bool) {
	for _, o := range observations {
		lowered := strings.ToLower(o.measurement.Name)
		for _, flag := range redFlags {
			if strings.Contains(lowered, flag) {
				return flag, true
			}
		}
	}
	return "", false
}
