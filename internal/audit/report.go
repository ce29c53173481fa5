package audit

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/stockpod/stockpodgo/internal/models"
)

// ReportConfig holds configuration for the audit PDF
type ReportConfig struct {
	Title  string // defaults to "Inventory Review Audit"
	RunURL string // optional link encoded as a QR code on the report
}

// GenerateReportPDF renders a run's audit trail as a printable PDF
func GenerateReportPDF(run *models.InventoryAnalysisRun, trail *Trail, cfg ReportConfig) ([]byte, error) {
	if run == nil {
		return nil, fmt.Errorf("run is required")
	}
	if cfg.Title == "" {
		cfg.Title = "Inventory Review Audit"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, cfg.Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Run: %s", run.RunID), "", 1, "L", false, 0, "")
	if run.ContainerID != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Container: %s", run.ContainerID), "", 1, "L", false, 0, "")
	}
	if run.SessionID != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Session: %s", run.SessionID), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", run.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if trail == nil {
		pdf.SetFont("Arial", "I", 11)
		pdf.CellFormat(0, 8, "No review recorded for this run (audit data missing).", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Reviewed by %s", trail.Reviewer), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Action: %s", trail.Action), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Reviewed at: %s", trail.ReviewedAt.Format(time.RFC3339)), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		if trail.NoCorrections {
			pdf.SetFont("Arial", "I", 10)
			pdf.CellFormat(0, 6, "No corrections.", "", 1, "L", false, 0, "")
		} else {
			// Corrections table
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(60, 7, "Item", "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, "Kind", "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, "Original", "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 7, "Corrected", "1", 1, "R", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			for _, e := range trail.Entries {
				name := e.Name
				if e.SKU != "" {
					name = fmt.Sprintf("%s (%s)", e.Name, e.SKU)
				}
				pdf.CellFormat(60, 7, name, "1", 0, "L", false, 0, "")
				pdf.CellFormat(30, 7, string(e.Kind), "1", 0, "L", false, 0, "")
				pdf.CellFormat(30, 7, fmt.Sprintf("%d", e.Original), "1", 0, "R", false, 0, "")
				pdf.CellFormat(30, 7, fmt.Sprintf("%d", e.Corrected), "1", 1, "R", false, 0, "")
			}
		}

		if trail.Note != "" {
			pdf.Ln(3)
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("Note: %s", trail.Note), "", "L", false)
		}
	}

	if cfg.RunURL != "" {
		qrPng, err := qrcode.Encode(cfg.RunURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode run QR: %w", err)
		}
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		_ = pdf.RegisterImageOptionsReader("run_qr", imgOptions, bytes.NewReader(qrPng))
		// Bottom-right corner
		pdf.ImageOptions("run_qr", 165, 250, 30, 30, false, imgOptions, 0, "")
		pdf.SetXY(165, 280)
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(30, 4, "scan for run detail", "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
