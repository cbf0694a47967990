// Package certificate renders the completion certificate of a signed envelope.
package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

const (
	pageMargin   = 40.0
	lineHeight   = 14.0
	headerSize   = 16.0
	sectionSize  = 11.0
	bodySize     = 8.0
	timeLayout   = "2006-01-02 15:04:05 MST"
	defaultTitle = "esign"
)

// Input is everything printed on a certificate. Envelope must carry its signers.
type Input struct {
	Envelope    *envelopeDomain.Envelope
	Document    *docDomain.Document
	Steps       []*ledgerDomain.Step
	AuditLogs   []*auditDomain.AuditLog
	GeneratedAt time.Time
}

// Generator renders certificates with fpdf on Letter pages.
type Generator struct {
	applicationName string
}

// NewGenerator creates a Generator that prints applicationName in the title.
func NewGenerator(applicationName string) *Generator {
	if applicationName == "" {
		applicationName = defaultTitle
	}
	return &Generator{applicationName: applicationName}
}

// Generate renders the certificate for a completed envelope.
func (g *Generator) Generate(in Input) ([]byte, error) {
	if in.Envelope == nil || in.Document == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "certificate requires an envelope and a document")
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(g.applicationName+" completion certificate", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", headerSize)
	pdf.CellFormat(0, headerSize+6, g.applicationName+" - Certificate of Completion", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	g.section(pdf, "Envelope")
	g.pair(pdf, "Envelope ID", in.Envelope.ID.String())
	g.pair(pdf, "Subject", in.Envelope.Subject)
	g.pair(pdf, "Status", string(in.Envelope.Status))
	if in.Envelope.SentAt != nil {
		g.pair(pdf, "Sent", formatTime(*in.Envelope.SentAt))
	}
	if in.Envelope.CompletedAt != nil {
		g.pair(pdf, "Completed", formatTime(*in.Envelope.CompletedAt))
	}

	g.section(pdf, "Document")
	g.pair(pdf, "Name", in.Document.Filename)
	g.pair(pdf, "Document ID", in.Document.ID.String())
	g.pair(pdf, "Original SHA-256", in.Document.OriginalHash)
	if in.Document.SignedHash != nil {
		g.pair(pdf, "Final SHA-256", *in.Document.SignedHash)
	}

	g.section(pdf, "Signers")
	g.table(pdf, []float64{130, 170, 60, 172}, []string{"Name", "Email", "Role", "Outcome"}, signerRows(in.Envelope.Signers))

	g.section(pdf, "Signing history")
	g.table(pdf, []float64{34, 150, 348}, []string{"Step", "Signer", "Artifact SHA-256"}, stepRows(in.Steps))

	g.section(pdf, "Audit trail")
	g.table(pdf, []float64{120, 150, 170, 92}, []string{"Time", "Event", "Actor", "IP"}, auditRows(in.AuditLogs))

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", bodySize)
	pdf.CellFormat(0, lineHeight, "Generated "+formatTime(in.GeneratedAt), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.Wrap(err, "failed to render certificate")
	}
	return buf.Bytes(), nil
}

func (g *Generator) section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", sectionSize)
	pdf.CellFormat(0, lineHeight+2, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (g *Generator) pair(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", bodySize)
	pdf.CellFormat(110, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", bodySize)
	pdf.CellFormat(0, lineHeight, value, "", 1, "L", false, 0, "")
}

func (g *Generator) table(pdf *fpdf.Fpdf, widths []float64, header []string, rows [][]string) {
	pdf.SetFont("Helvetica", "B", bodySize)
	for i, h := range header {
		pdf.CellFormat(widths[i], lineHeight, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", bodySize)
	if len(rows) == 0 {
		pdf.CellFormat(sum(widths), lineHeight, "none", "1", 1, "L", false, 0, "")
		return
	}
	for _, row := range rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], lineHeight, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func signerRows(signers []*envelopeDomain.Signer) [][]string {
	rows := make([][]string, 0, len(signers))
	for _, s := range signers {
		outcome := "pending"
		switch {
		case s.SignedAt != nil:
			outcome = "signed " + formatTime(*s.SignedAt)
		case s.DeclinedAt != nil:
			outcome = "declined " + formatTime(*s.DeclinedAt)
		}
		rows = append(rows, []string{s.Name, s.Email, string(s.Role), outcome})
	}
	return rows
}

func stepRows(steps []*ledgerDomain.Step) [][]string {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{fmt.Sprintf("%d", s.Step), s.SignerEmail, s.ArtifactHash})
	}
	return rows
}

func auditRows(logs []*auditDomain.AuditLog) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{formatTime(l.CreatedAt), string(l.Event), l.Actor, l.IPAddress})
	}
	return rows
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
