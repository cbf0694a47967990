package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func sampleEnvelope() *envelopeDomain.Envelope {
	now := time.Now().UTC()
	return &envelopeDomain.Envelope{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    uuid.Must(uuid.NewV7()),
		DocumentID: uuid.Must(uuid.NewV7()),
		Status:     envelopeDomain.StatusDraft,
		Subject:    "NDA",
		Message:    "please review",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func envelopeRows(env *envelopeDomain.Envelope, sentAt any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "document_id", "status", "subject", "message", "sequential",
		"sent_at", "completed_at", "voided_at", "void_reason", "created_at", "updated_at",
	}).AddRow(
		env.ID.String(), env.OwnerID.String(), env.DocumentID.String(), string(env.Status),
		env.Subject, env.Message, env.Sequential, sentAt, nil, nil, nil, env.CreatedAt, env.UpdatedAt,
	)
}

func signerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "envelope_id", "email", "name", "role", "routing_order", "signing_token",
		"otp_hash", "otp_expires_at", "otp_verified_at", "signed_at", "declined_at",
		"decline_reason", "created_at",
	})
}

func TestPostgreSQLEnvelopeRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEnvelopeRepository(db)
		env := sampleEnvelope()

		mock.ExpectExec(`INSERT INTO envelopes`).
			WithArgs(
				env.ID, env.OwnerID, env.DocumentID, string(env.Status), env.Subject, env.Message, false,
				nil, nil, nil, nil, env.CreatedAt, env.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, env))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_GetForUpdate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEnvelopeRepository(db)
		env := sampleEnvelope()
		sentAt := env.CreatedAt.Add(time.Minute)

		mock.ExpectQuery(`SELECT (.+) FROM envelopes WHERE id = \$1 FOR UPDATE`).
			WithArgs(env.ID).
			WillReturnRows(envelopeRows(env, sentAt))

		got, err := repo.GetForUpdate(ctx, env.ID)
		require.NoError(t, err)
		assert.Equal(t, env.ID, got.ID)
		assert.Equal(t, envelopeDomain.StatusDraft, got.Status)
		require.NotNil(t, got.SentAt)
		assert.True(t, sentAt.Equal(*got.SentAt))
		assert.Nil(t, got.VoidReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_GetNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEnvelopeRepository(db)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(`SELECT (.+) FROM envelopes WHERE id = \$1$`).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, id)
		assert.ErrorIs(t, err, envelopeDomain.ErrEnvelopeNotFound)
	})

	t.Run("Error_UpdateMissingRow", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEnvelopeRepository(db)
		env := sampleEnvelope()

		mock.ExpectExec(`UPDATE envelopes`).
			WithArgs(string(env.Status), nil, nil, nil, nil, env.UpdatedAt, env.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, env)
		assert.ErrorIs(t, err, envelopeDomain.ErrEnvelopeNotFound)
	})
}

func TestPostgreSQLSignerRepository(t *testing.T) {
	ctx := context.Background()
	envelopeID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	t.Run("Success_ListByEnvelopeOrdered", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLSignerRepository(db)
		a, b := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())

		mock.ExpectQuery(`SELECT (.+) FROM envelope_signers\s+WHERE envelope_id = \$1\s+ORDER BY routing_order ASC`).
			WithArgs(envelopeID).
			WillReturnRows(signerRows().
				AddRow(a.String(), envelopeID.String(), "a@example.com", "A", "SIGNER", 1, "tok-a",
					"hash", now.Add(10*time.Minute), now, nil, nil, nil, now).
				AddRow(b.String(), envelopeID.String(), "b@example.com", "B", "CC", 2, nil,
					nil, nil, nil, nil, nil, nil, now))

		signers, err := repo.ListByEnvelope(ctx, envelopeID)
		require.NoError(t, err)
		require.Len(t, signers, 2)
		assert.Equal(t, envelopeDomain.RoleSigner, signers[0].Role)
		require.NotNil(t, signers[0].SigningToken)
		assert.Equal(t, "tok-a", *signers[0].SigningToken)
		assert.NotNil(t, signers[0].OTPVerifiedAt)
		assert.Nil(t, signers[1].SigningToken)
		assert.Equal(t, 2, signers[1].RoutingOrder)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UnknownToken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLSignerRepository(db)

		mock.ExpectQuery(`WHERE signing_token = \$1`).
			WithArgs("missing").
			WillReturnRows(signerRows())

		_, err := repo.GetBySigningToken(ctx, "missing")
		assert.ErrorIs(t, err, envelopeDomain.ErrSignerNotFound)
	})

	t.Run("Success_UpdateClearsCode", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLSignerRepository(db)
		token := "tok"
		signer := &envelopeDomain.Signer{ID: uuid.Must(uuid.NewV7()), SigningToken: &token, SignedAt: &now}

		mock.ExpectExec(`UPDATE envelope_signers`).
			WithArgs("tok", nil, nil, nil, now, nil, nil, signer.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, signer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLFieldRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_DeleteMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLFieldRepository(db)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectExec(`DELETE FROM document_fields WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), envelopeDomain.ErrFieldNotFound)
	})

	t.Run("Success_ListByEnvelope", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLFieldRepository(db)
		envelopeID, signerID := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT (.+) FROM document_fields`).
			WithArgs(envelopeID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "envelope_id", "document_id", "signer_id", "field_type", "page", "x", "y",
				"width", "height", "required", "created_at", "updated_at",
			}).AddRow(
				uuid.Must(uuid.NewV7()).String(), envelopeID.String(), uuid.Must(uuid.NewV7()).String(),
				signerID.String(), "DATE", 2, 0.1, 0.2, 0.3, 0.04, true, now, now,
			))

		fields, err := repo.ListByEnvelope(ctx, envelopeID)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, envelopeDomain.FieldDate, fields[0].Type)
		assert.Equal(t, signerID, fields[0].SignerID)
		assert.Equal(t, 2, fields[0].Page)
		assert.InDelta(t, 0.04, fields[0].Height, 1e-9)
		assert.True(t, fields[0].Required)
	})
}

func TestPostgreSQLSignatureRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	fieldID := uuid.Must(uuid.NewV7())

	t.Run("Success_Upsert", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLSignatureRepository(db)
		text := "Signed"
		sig := &envelopeDomain.Signature{
			ID:          uuid.Must(uuid.NewV7()),
			SignerID:    uuid.Must(uuid.NewV7()),
			EnvelopeID:  uuid.Must(uuid.NewV7()),
			Consent:     true,
			ConsentText: "I agree",
			MarkType:    envelopeDomain.MarkText,
			TextContent: &text,
			Placements:  []envelopeDomain.Placement{{Page: 1, X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05}},
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		mock.ExpectExec(`INSERT INTO signatures (.+) ON CONFLICT \(signer_id\) DO UPDATE`).
			WithArgs(
				sig.ID, sig.SignerID, sig.EnvelopeID, true, "I agree", string(envelopeDomain.MarkText), nil, "Signed",
				[]byte(`[{"page":1,"x":0.1,"y":0.2,"width":0.3,"height":0.05}]`), now, now,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(ctx, sig))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_ListByEnvelope", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLSignatureRepository(db)
		envelopeID := uuid.Must(uuid.NewV7())

		placements := `[{"field_id":"` + fieldID.String() + `","page":1,"x":0.1,"y":0.2,"width":0.3,"height":0.05},` +
			`{"page":1,"x":0.5,"y":0.5,"width":0.2,"height":0.05}]`
		mock.ExpectQuery(`SELECT (.+) FROM signatures`).
			WithArgs(envelopeID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "signer_id", "envelope_id", "consent", "consent_text", "mark_type", "image_path",
				"text_content", "placements", "created_at", "updated_at",
			}).AddRow(
				uuid.Must(uuid.NewV7()).String(), uuid.Must(uuid.NewV7()).String(), envelopeID.String(),
				true, "I agree", "IMAGE", "marks/a.png", nil, []byte(placements), now, now,
			))

		signatures, err := repo.ListByEnvelope(ctx, envelopeID)
		require.NoError(t, err)
		require.Len(t, signatures, 1)
		require.NotNil(t, signatures[0].ImagePath)
		assert.Equal(t, "marks/a.png", *signatures[0].ImagePath)
		require.Len(t, signatures[0].Placements, 2)
		assert.Equal(t, fieldID, *signatures[0].Placements[0].FieldID)
		assert.Len(t, signatures[0].FreePlacements(), 1)
	})
}

func TestMySQLEnvelopeRepositories(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EnvelopeCreateUsesBinaryUUID", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLEnvelopeRepository(db)
		env := sampleEnvelope()

		mock.ExpectExec(`INSERT INTO envelopes`).
			WithArgs(
				database.BinaryUUID(env.ID), database.BinaryUUID(env.OwnerID), database.BinaryUUID(env.DocumentID),
				string(env.Status), env.Subject, env.Message, false, nil, nil, nil, nil, env.CreatedAt, env.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, env))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_EnvelopeGetForUpdate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLEnvelopeRepository(db)
		env := sampleEnvelope()

		mock.ExpectQuery(`SELECT (.+) FROM envelopes WHERE id = \? FOR UPDATE`).
			WithArgs(database.BinaryUUID(env.ID)).
			WillReturnRows(envelopeRows(env, nil))

		got, err := repo.GetForUpdate(ctx, env.ID)
		require.NoError(t, err)
		assert.Equal(t, env.OwnerID, got.OwnerID)
		assert.Nil(t, got.SentAt)
	})

	t.Run("Error_SignerDuplicateEmail", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLSignerRepository(db)
		signer := &envelopeDomain.Signer{
			ID:         uuid.Must(uuid.NewV7()),
			EnvelopeID: uuid.Must(uuid.NewV7()),
			Email:      "a@example.com",
			Role:       envelopeDomain.RoleSigner,
		}

		mock.ExpectExec(`INSERT INTO envelope_signers`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err := repo.Create(ctx, signer)
		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	})

	t.Run("Success_SignatureUpsertOnDuplicateKey", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLSignatureRepository(db)
		now := time.Now().UTC()
		sig := &envelopeDomain.Signature{
			ID:         uuid.Must(uuid.NewV7()),
			SignerID:   uuid.Must(uuid.NewV7()),
			EnvelopeID: uuid.Must(uuid.NewV7()),
			MarkType:   envelopeDomain.MarkText,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		mock.ExpectExec(`INSERT INTO signatures (.+) ON DUPLICATE KEY UPDATE`).
			WithArgs(
				database.BinaryUUID(sig.ID), database.BinaryUUID(sig.SignerID), database.BinaryUUID(sig.EnvelopeID),
				false, "", string(envelopeDomain.MarkText), nil, nil, []byte("null"), now, now,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(ctx, sig))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_FieldUpdate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLFieldRepository(db)
		now := time.Now().UTC()
		field := &envelopeDomain.Field{
			ID:       uuid.Must(uuid.NewV7()),
			SignerID: uuid.Must(uuid.NewV7()),
			Type:     envelopeDomain.FieldCheckbox,
			Page:     1, X: 0.1, Y: 0.1, Width: 0.03, Height: 0.03,
			UpdatedAt: now,
		}

		mock.ExpectExec(`UPDATE document_fields`).
			WithArgs(
				database.BinaryUUID(field.SignerID), "CHECKBOX", 1, 0.1, 0.1, 0.03, 0.03, false, now,
				database.BinaryUUID(field.ID),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, field))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
