package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

// DocumentVerifier re-hashes stored artifacts of a document. VerifyCurrent returns
// the verification together with an integrity violation on mismatch.
type DocumentVerifier interface {
	VerifyCurrent(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Verification, error)
	VerifyHistory(ctx context.Context, documentID uuid.UUID) ([]ledgerDomain.StepVerification, error)
}

// RunVerifyDocument re-hashes the current artifact and every recorded step of a
// document and reports any mismatch. It fails when any artifact does not match its
// recorded hash.
func RunVerifyDocument(
	ctx context.Context,
	verifier DocumentVerifier,
	logger *slog.Logger,
	writer io.Writer,
	documentIDStr string,
	format string,
) error {
	documentID, err := uuid.Parse(documentIDStr)
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	logger.Info("verifying document", slog.String("document_id", documentID.String()))

	current, err := verifier.VerifyCurrent(ctx, documentID)
	if err != nil && (current == nil || !apperrors.Is(err, apperrors.ErrIntegrityViolation)) {
		return fmt.Errorf("failed to verify current artifact: %w", err)
	}
	steps, err := verifier.VerifyHistory(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to verify signing history: %w", err)
	}

	invalid := 0
	if !current.Valid {
		invalid++
	}
	for _, s := range steps {
		if !s.Verification.Valid {
			invalid++
		}
	}

	if format == "json" {
		if err := outputVerifyDocumentJSON(writer, documentID, current, steps, invalid); err != nil {
			return err
		}
	} else {
		outputVerifyDocumentText(writer, documentID, current, steps, invalid)
	}

	logger.Info("document verification completed",
		slog.String("document_id", documentID.String()),
		slog.Int("steps", len(steps)),
		slog.Int("invalid", invalid),
	)

	if invalid > 0 {
		return fmt.Errorf("integrity check failed: %d artifact(s) do not match", invalid)
	}
	return nil
}

func outputVerifyDocumentText(
	writer io.Writer,
	documentID uuid.UUID,
	current *ledgerDomain.Verification,
	steps []ledgerDomain.StepVerification,
	invalid int,
) {
	_, _ = fmt.Fprintf(writer, "Document Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "===============================\n\n")
	_, _ = fmt.Fprintf(writer, "Document: %s\n\n", documentID)

	_, _ = fmt.Fprintf(writer, "Current artifact: %s\n", current.Path)
	_, _ = fmt.Fprintf(writer, "  recorded %s\n", current.RecordedHash)
	_, _ = fmt.Fprintf(writer, "  current  %s\n", current.CurrentHash)
	_, _ = fmt.Fprintf(writer, "  %s\n\n", verdict(current.Valid))

	for _, s := range steps {
		_, _ = fmt.Fprintf(writer, "Step %d signed by %s <%s>: %s\n",
			s.Step.Step, s.Step.SignerName, s.Step.SignerEmail, verdict(s.Verification.Valid))
	}

	if invalid > 0 {
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED (%d mismatch(es))\n", invalid)
		return
	}
	_, _ = fmt.Fprintf(writer, "\nStatus: PASSED\n")
}

func outputVerifyDocumentJSON(
	writer io.Writer,
	documentID uuid.UUID,
	current *ledgerDomain.Verification,
	steps []ledgerDomain.StepVerification,
	invalid int,
) error {
	type stepResult struct {
		Step         int    `json:"step"`
		SignerEmail  string `json:"signer_email"`
		ArtifactPath string `json:"artifact_path"`
		ledgerDomain.Verification
	}

	results := make([]stepResult, 0, len(steps))
	for _, s := range steps {
		results = append(results, stepResult{
			Step:         s.Step.Step,
			SignerEmail:  s.Step.SignerEmail,
			ArtifactPath: s.Step.ArtifactPath,
			Verification: s.Verification,
		})
	}

	return writeJSON(writer, map[string]any{
		"document_id":   documentID,
		"current":       current,
		"steps":         results,
		"invalid_count": invalid,
		"passed":        invalid == 0,
	})
}

func verdict(valid bool) string {
	if valid {
		return "OK"
	}
	return "MISMATCH"
}
