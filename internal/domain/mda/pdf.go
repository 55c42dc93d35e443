package mda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	cryptoutil "hrflow/internal/platform/crypto"
)

// GenerateAdvicePDF renders the advice as a PDF under storage/advices and
// returns the file path. When crypto is configured the plaintext file is
// replaced with an encrypted .enc copy.
func (s *Service) GenerateAdvicePDF(ctx context.Context, tenantID, adviceID string, crypto *cryptoutil.Service) (string, error) {
	advice, err := s.Get(ctx, tenantID, adviceID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll("storage/advices", 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join("storage/advices", advice.ID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Movement and Designation Advice")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Reference: %s", advice.ReferenceNumber))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", advice.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Nature of action: %s", advice.NatureOfAction))
	pdf.Ln(7)
	if advice.EffectiveDate != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Effective date: %s", advice.EffectiveDate.Format("2006-01-02")))
		pdf.Ln(7)
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "From")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Position: %s", advice.FromPositionTitle))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Department: %s / %s", advice.FromDepartment, advice.FromSubUnit))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Job rate: %.2f  Allowance: %.2f", advice.FromJobRate, advice.FromAllowance))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "To")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Position: %s", advice.ToPositionTitle))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Department: %s / %s", advice.ToDepartment, advice.ToSubUnit))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	if crypto != nil && crypto.Configured() {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		return encryptedPath, nil
	}

	return filePath, nil
}
