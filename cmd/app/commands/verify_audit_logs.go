package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	auditUseCase "github.com/allisson/esign/internal/audit/usecase"
)

// timeBoundLayouts are tried in order when parsing --start-date and --end-date.
var timeBoundLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

type auditVerificationOutput struct {
	Start         time.Time   `json:"start"`
	End           time.Time   `json:"end"`
	TotalChecked  int64       `json:"total_checked"`
	SignedCount   int64       `json:"signed_count"`
	UnsignedCount int64       `json:"unsigned_count"`
	ValidCount    int64       `json:"valid_count"`
	InvalidCount  int64       `json:"invalid_count"`
	InvalidLogs   []uuid.UUID `json:"invalid_logs"`
	Passed        bool        `json:"passed"`
}

// RunVerifyAuditLogs re-checks the HMAC signature of every envelope audit entry created
// in [startDate, endDate). Any entry that fails verification makes the command fail.
func RunVerifyAuditLogs(
	ctx context.Context,
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	startDate, endDate string,
	format string,
) error {
	start, err := parseTimeBound(startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseTimeBound(endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if !end.After(start) {
		return errors.New("end date must be after start date")
	}

	logger.Info("verifying audit logs", slog.Time("start", start), slog.Time("end", end))

	report, err := auditLogUseCase.VerifyBatch(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to verify audit logs: %w", err)
	}

	out := auditVerificationOutput{
		Start:         start,
		End:           end,
		TotalChecked:  report.TotalChecked,
		SignedCount:   report.SignedCount,
		UnsignedCount: report.UnsignedCount,
		ValidCount:    report.ValidCount,
		InvalidCount:  report.InvalidCount,
		InvalidLogs:   report.InvalidLogs,
		Passed:        report.InvalidCount == 0,
	}
	if out.InvalidLogs == nil {
		out.InvalidLogs = []uuid.UUID{}
	}

	if format == "json" {
		if err := writeJSON(writer, out); err != nil {
			return err
		}
	} else {
		writeAuditVerificationText(writer, out)
	}

	logger.Info("audit log verification finished",
		slog.Int64("total_checked", report.TotalChecked),
		slog.Int64("invalid", report.InvalidCount),
		slog.Int64("unsigned", report.UnsignedCount),
	)

	if !out.Passed {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", report.InvalidCount)
	}
	return nil
}

// parseTimeBound accepts RFC 3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD" (UTC).
func parseTimeBound(value string) (time.Time, error) {
	for _, layout := range timeBoundLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC 3339", value)
}

func writeAuditVerificationText(writer io.Writer, out auditVerificationOutput) {
	_, _ = fmt.Fprintln(writer, "Envelope Audit Log Verification")
	_, _ = fmt.Fprintf(writer, "%s .. %s\n\n", out.Start.Format(time.RFC3339), out.End.Format(time.RFC3339))

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Total Checked:\t%d\n", out.TotalChecked)
	_, _ = fmt.Fprintf(tw, "Signed:\t%d\n", out.SignedCount)
	_, _ = fmt.Fprintf(tw, "Unsigned:\t%d\n", out.UnsignedCount)
	_, _ = fmt.Fprintf(tw, "Valid:\t%d\n", out.ValidCount)
	_, _ = fmt.Fprintf(tw, "Invalid:\t%d\n", out.InvalidCount)
	_ = tw.Flush()
	_, _ = fmt.Fprintln(writer)

	switch {
	case !out.Passed:
		_, _ = fmt.Fprintf(writer, "WARNING: %d log(s) failed integrity check!\n", out.InvalidCount)
		for _, id := range out.InvalidLogs {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintln(writer, "Status: FAILED")
	case out.TotalChecked == 0:
		_, _ = fmt.Fprintln(writer, "Status: No logs found in the given range")
	default:
		_, _ = fmt.Fprintln(writer, "Status: PASSED")
	}
}
