package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

func TestRunVerifyDocument(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	documentID := uuid.New()

	current := &ledgerDomain.Verification{
		Path:         "documents/x/steps/2.pdf",
		RecordedHash: "abc",
		CurrentHash:  "abc",
		Valid:        true,
	}
	steps := []ledgerDomain.StepVerification{
		{
			Step:         &ledgerDomain.Step{Step: 1, SignerEmail: "ana@example.com", SignerName: "Ana"},
			Verification: ledgerDomain.Verification{RecordedHash: "h1", CurrentHash: "h1", Valid: true},
		},
		{
			Step:         &ledgerDomain.Step{Step: 2, SignerEmail: "bo@example.com", SignerName: "Bo"},
			Verification: ledgerDomain.Verification{RecordedHash: "abc", CurrentHash: "abc", Valid: true},
		},
	}

	t.Run("passed-text", func(t *testing.T) {
		verifier := &MockDocumentVerifier{}
		verifier.On("VerifyCurrent", ctx, documentID).Return(current, nil)
		verifier.On("VerifyHistory", ctx, documentID).Return(steps, nil)

		var out bytes.Buffer
		err := RunVerifyDocument(ctx, verifier, logger, &out, documentID.String(), "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Step 1 signed by Ana <ana@example.com>: OK")
		require.Contains(t, out.String(), "Status: PASSED")
		verifier.AssertExpectations(t)
	})

	t.Run("tampered-json", func(t *testing.T) {
		tampered := []ledgerDomain.StepVerification{
			steps[0],
			{
				Step:         steps[1].Step,
				Verification: ledgerDomain.Verification{RecordedHash: "abc", CurrentHash: "zzz", Valid: false},
			},
		}
		verifier := &MockDocumentVerifier{}
		verifier.On("VerifyCurrent", ctx, documentID).
			Return(&ledgerDomain.Verification{RecordedHash: "abc", CurrentHash: "zzz"}, ledgerDomain.ErrIntegrityMismatch)
		verifier.On("VerifyHistory", ctx, documentID).Return(tampered, nil)

		var out bytes.Buffer
		err := RunVerifyDocument(ctx, verifier, logger, &out, documentID.String(), "json")
		require.ErrorContains(t, err, "2 artifact(s) do not match")

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, false, result["passed"])
		require.Equal(t, float64(2), result["invalid_count"])
		require.Len(t, result["steps"], 2)
	})

	t.Run("invalid-id", func(t *testing.T) {
		err := RunVerifyDocument(ctx, &MockDocumentVerifier{}, logger, &bytes.Buffer{}, "nope", "text")
		require.ErrorContains(t, err, "invalid document id")
	})

	t.Run("verifier-error", func(t *testing.T) {
		verifier := &MockDocumentVerifier{}
		verifier.On("VerifyCurrent", ctx, documentID).Return(nil, errors.New("not found"))

		err := RunVerifyDocument(ctx, verifier, logger, &bytes.Buffer{}, documentID.String(), "text")
		require.ErrorContains(t, err, "failed to verify current artifact")
	})
}
