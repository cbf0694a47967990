package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	authUseCase "github.com/allisson/esign/internal/auth/usecase"
)

// RunCreateOwner creates an envelope owner and prints its ID and generated secret.
// The secret is shown only once.
//
// Requirements: Database must be migrated and accessible.
func RunCreateOwner(
	ctx context.Context,
	ownerUseCase authUseCase.OwnerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	isActive bool,
	format string,
) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}

	logger.Info("creating new owner", slog.String("name", name))

	output, err := ownerUseCase.Create(ctx, &authDomain.CreateOwnerInput{
		Name:     name,
		IsActive: isActive,
	})
	if err != nil {
		return fmt.Errorf("failed to create owner: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]string{
			"owner_id": output.ID.String(),
			"secret":   output.PlainSecret,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "\nOwner created successfully!")
		_, _ = fmt.Fprintf(writer, "Owner ID: %s\n", output.ID.String())
		_, _ = fmt.Fprintf(writer, "Secret: %s\n", output.PlainSecret)
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}

	logger.Info("owner created successfully",
		slog.String("owner_id", output.ID.String()),
		slog.Bool("is_active", isActive),
	)

	return nil
}
