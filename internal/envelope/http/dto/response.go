package dto

import (
	"time"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	docDTO "github.com/allisson/esign/internal/document/http/dto"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/service"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
)

// SignerResponse is one party of an envelope. SigningLink is only set for owners
// once the envelope was sent.
type SignerResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	RoutingOrder  int        `json:"routing_order"`
	SigningLink   string     `json:"signing_link,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	DeclineReason *string    `json:"decline_reason,omitempty"`
}

// FieldResponse is a field of an envelope.
type FieldResponse struct {
	ID       string  `json:"id"`
	SignerID string  `json:"signer_id"`
	Type     string  `json:"type"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Required bool    `json:"required"`
}

// EnvelopeResponse is the owner view of an envelope.
type EnvelopeResponse struct {
	ID          string           `json:"id"`
	DocumentID  string           `json:"document_id"`
	Status      string           `json:"status"`
	Subject     string           `json:"subject"`
	Message     string           `json:"message"`
	Sequential  bool             `json:"sequential"`
	Signers     []SignerResponse `json:"signers"`
	Fields      []FieldResponse  `json:"fields"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	VoidedAt    *time.Time       `json:"voided_at,omitempty"`
	VoidReason  *string          `json:"void_reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MapFieldToResponse converts a domain field to an API response.
func MapFieldToResponse(f *envelopeDomain.Field) FieldResponse {
	return FieldResponse{
		ID:       f.ID.String(),
		SignerID: f.SignerID.String(),
		Type:     string(f.Type),
		Page:     f.Page,
		X:        f.X,
		Y:        f.Y,
		Width:    f.Width,
		Height:   f.Height,
		Required: f.Required,
	}
}

func mapFields(fields []*envelopeDomain.Field) []FieldResponse {
	out := make([]FieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, MapFieldToResponse(f))
	}
	return out
}

func mapSigner(s *envelopeDomain.Signer, publicBaseURL string) SignerResponse {
	resp := SignerResponse{
		ID:            s.ID.String(),
		Email:         s.Email,
		Name:          s.Name,
		Role:          string(s.Role),
		RoutingOrder:  s.RoutingOrder,
		SignedAt:      s.SignedAt,
		DeclinedAt:    s.DeclinedAt,
		DeclineReason: s.DeclineReason,
	}
	if publicBaseURL != "" && s.SigningToken != nil {
		resp.SigningLink = service.SigningLink(publicBaseURL, *s.SigningToken)
	}
	return resp
}

// MapEnvelopeToResponse converts a domain envelope to the owner view. Signing links
// are built from publicBaseURL.
func MapEnvelopeToResponse(env *envelopeDomain.Envelope, publicBaseURL string) EnvelopeResponse {
	signers := make([]SignerResponse, 0, len(env.Signers))
	for _, s := range env.Signers {
		signers = append(signers, mapSigner(s, publicBaseURL))
	}
	return EnvelopeResponse{
		ID:          env.ID.String(),
		DocumentID:  env.DocumentID.String(),
		Status:      string(env.Status),
		Subject:     env.Subject,
		Message:     env.Message,
		Sequential:  env.Sequential,
		Signers:     signers,
		Fields:      mapFields(env.Fields),
		SentAt:      env.SentAt,
		CompletedAt: env.CompletedAt,
		VoidedAt:    env.VoidedAt,
		VoidReason:  env.VoidReason,
		CreatedAt:   env.CreatedAt,
		UpdatedAt:   env.UpdatedAt,
	}
}

// AuditLogResponse is one audit trail entry.
type AuditLogResponse struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Actor     string         `json:"actor"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IsSigned  bool           `json:"is_signed"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListAuditLogsResponse is a page of audit entries.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToResponse converts audit entries to an API response.
func MapAuditLogsToResponse(logs []*auditDomain.AuditLog) ListAuditLogsResponse {
	data := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		data = append(data, AuditLogResponse{
			ID:        l.ID.String(),
			Event:     string(l.Event),
			Actor:     l.Actor,
			IPAddress: l.IPAddress,
			UserAgent: l.UserAgent,
			RequestID: l.RequestID,
			Details:   l.Details,
			IsSigned:  l.IsSigned,
			CreatedAt: l.CreatedAt,
		})
	}
	return ListAuditLogsResponse{Data: data}
}

// SigningViewResponse is what a signer sees when opening a link.
type SigningViewResponse struct {
	EnvelopeID string                  `json:"envelope_id"`
	Status     string                  `json:"status"`
	Subject    string                  `json:"subject"`
	Message    string                  `json:"message"`
	Signer     SignerResponse          `json:"signer"`
	Document   docDTO.DocumentResponse `json:"document"`
	Fields     []FieldResponse         `json:"fields"`
}

// MapSigningViewToResponse converts a signing view to an API response.
func MapSigningViewToResponse(view *envelopeUseCase.SigningView) SigningViewResponse {
	return SigningViewResponse{
		EnvelopeID: view.Envelope.ID.String(),
		Status:     string(view.Envelope.Status),
		Subject:    view.Envelope.Subject,
		Message:    view.Envelope.Message,
		Signer:     mapSigner(view.Signer, ""),
		Document:   docDTO.MapDocumentToResponse(view.Document),
		Fields:     mapFields(view.Fields),
	}
}

// SessionResponse is returned after a successful code verification.
type SessionResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignResponse describes the recorded signing step.
type SignResponse struct {
	SignedAt     time.Time `json:"signed_at"`
	ArtifactHash string    `json:"artifact_hash"`
	Step         int       `json:"step"`
	Status       string    `json:"status"`
}

// MapSignResultToResponse converts a sign result to an API response.
func MapSignResultToResponse(r *envelopeUseCase.SignResult) SignResponse {
	return SignResponse{
		SignedAt:     r.SignedAt,
		ArtifactHash: r.ArtifactHash,
		Step:         r.Step,
		Status:       string(r.Status),
	}
}
