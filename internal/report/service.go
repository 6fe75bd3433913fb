package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"oncology-console/internal/timeline"
)

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service renders clinician-facing triage reports and delivers them to the
// care-team chat.
type Service struct {
	tgClient       TelegramClient
	careTeamChatID int64
}

func NewService(tg TelegramClient, careTeamChatID int64) *Service {
	return &Service{
		tgClient:       tg,
		careTeamChatID: careTeamChatID,
	}
}

// SendEscalation alerts the care team about a red-route result and attaches
// the full PDF report.
func (s *Service) SendEscalation(ctx context.Context, profile *timeline.PatientProfile, result *timeline.WorkflowResultEvent) error {
	alert := fmt.Sprintf("RED route for %s (%s): %s", profile.Name, profile.CancerType, result.EscalationTrigger)
	if err := s.tgClient.SendMessage(s.careTeamChatID, alert); err != nil {
		return fmt.Errorf("send escalation alert: %w", err)
	}

	pdfData, err := s.renderReport(profile, result)
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("triage_%s.pdf", result.ID)
	log.Printf("Sending triage report %s to care-team chat %d...", fileName, s.careTeamChatID)
	if err := s.tgClient.SendDocument(s.careTeamChatID, pdfData, fileName); err != nil {
		return fmt.Errorf("send triage report: %w", err)
	}
	return nil
}

func (s *Service) renderReport(profile *timeline.PatientProfile, result *timeline.WorkflowResultEvent) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// Try multiple common paths for Alpine/Debian images.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Oncology Triage Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02 Jan 2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient: %s (%s)", profile.Name, profile.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Diagnosis: %s, stage %s", profile.CancerType, profile.Stage))
	pdf.Br(15)
	if profile.CurrentTreatment.IsActive {
		pdf.Cell(nil, fmt.Sprintf("Current regimen: %s", profile.CurrentTreatment.Regimen))
		pdf.Br(15)
	}
	pdf.Cell(nil, fmt.Sprintf("Route: %s (confidence %.2f)", strings.ToUpper(string(result.Route)), result.TriageConfidence))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Escalation trigger:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	writeWrapped(&pdf, result.EscalationTrigger)
	pdf.Br(10)

	if len(result.SafetyFlags) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Safety flags:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		for _, flag := range result.SafetyFlags {
			pdf.Cell(nil, "- "+flag)
			pdf.Br(12)
		}
		pdf.Br(10)
	}

	if result.ClinicianSummary != "" {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Clinician summary:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		writeWrapped(&pdf, result.ClinicianSummary)
		pdf.Br(10)
	}

	if len(result.Signals) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Derived signals:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		for _, signal := range result.Signals {
			line := fmt.Sprintf("- [%s] %s: %s", signal.Type, signal.Title, signal.Summary)
			if signal.SuggestedAction != "" {
				line += " | Suggested: " + signal.SuggestedAction
			}
			writeWrapped(&pdf, line)
			pdf.Br(5)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(12)
	}
}
