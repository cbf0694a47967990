package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeEnvelopeRepository struct {
	mu        sync.Mutex
	envelopes map[uuid.UUID]envelopeDomain.Envelope
}

func newFakeEnvelopeRepository() *fakeEnvelopeRepository {
	return &fakeEnvelopeRepository{envelopes: make(map[uuid.UUID]envelopeDomain.Envelope)}
}

func (f *fakeEnvelopeRepository) Create(ctx context.Context, env *envelopeDomain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := *env
	row.Signers, row.Fields = nil, nil
	f.envelopes[env.ID] = row
	return nil
}

func (f *fakeEnvelopeRepository) Get(ctx context.Context, id uuid.UUID) (*envelopeDomain.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.envelopes[id]
	if !ok {
		return nil, envelopeDomain.ErrEnvelopeNotFound
	}
	return &row, nil
}

func (f *fakeEnvelopeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*envelopeDomain.Envelope, error) {
	return f.Get(ctx, id)
}

func (f *fakeEnvelopeRepository) Update(ctx context.Context, env *envelopeDomain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.envelopes[env.ID]; !ok {
		return envelopeDomain.ErrEnvelopeNotFound
	}
	row := *env
	row.Signers, row.Fields = nil, nil
	f.envelopes[env.ID] = row
	return nil
}

type fakeSignerRepository struct {
	mu      sync.Mutex
	signers map[uuid.UUID]envelopeDomain.Signer
}

func newFakeSignerRepository() *fakeSignerRepository {
	return &fakeSignerRepository{signers: make(map[uuid.UUID]envelopeDomain.Signer)}
}

func (f *fakeSignerRepository) Create(ctx context.Context, s *envelopeDomain.Signer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signers[s.ID] = *s
	return nil
}

func (f *fakeSignerRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*envelopeDomain.Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*envelopeDomain.Signer, 0)
	for _, s := range f.signers {
		if s.EnvelopeID == envelopeID {
			row := s
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoutingOrder != out[j].RoutingOrder {
			return out[i].RoutingOrder < out[j].RoutingOrder
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (f *fakeSignerRepository) GetBySigningToken(ctx context.Context, token string) (*envelopeDomain.Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.signers {
		if s.SigningToken != nil && *s.SigningToken == token {
			row := s
			return &row, nil
		}
	}
	return nil, envelopeDomain.ErrSignerNotFound
}

func (f *fakeSignerRepository) Update(ctx context.Context, s *envelopeDomain.Signer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.signers[s.ID]; !ok {
		return envelopeDomain.ErrSignerNotFound
	}
	f.signers[s.ID] = *s
	return nil
}

func (f *fakeSignerRepository) byEmail(email string) envelopeDomain.Signer {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.signers {
		if s.Email == email {
			return s
		}
	}
	return envelopeDomain.Signer{}
}

type fakeFieldRepository struct {
	mu     sync.Mutex
	fields map[uuid.UUID]envelopeDomain.Field
}

func newFakeFieldRepository() *fakeFieldRepository {
	return &fakeFieldRepository{fields: make(map[uuid.UUID]envelopeDomain.Field)}
}

func (f *fakeFieldRepository) Create(ctx context.Context, field *envelopeDomain.Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields[field.ID] = *field
	return nil
}

func (f *fakeFieldRepository) Update(ctx context.Context, field *envelopeDomain.Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fields[field.ID]; !ok {
		return envelopeDomain.ErrFieldNotFound
	}
	f.fields[field.ID] = *field
	return nil
}

func (f *fakeFieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fields[id]; !ok {
		return envelopeDomain.ErrFieldNotFound
	}
	delete(f.fields, id)
	return nil
}

func (f *fakeFieldRepository) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*envelopeDomain.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*envelopeDomain.Field, 0)
	for _, field := range f.fields {
		if field.EnvelopeID == envelopeID {
			row := field
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type fakeSignatureRepository struct {
	mu         sync.Mutex
	signatures map[uuid.UUID]envelopeDomain.Signature
}

func newFakeSignatureRepository() *fakeSignatureRepository {
	return &fakeSignatureRepository{signatures: make(map[uuid.UUID]envelopeDomain.Signature)}
}

func (f *fakeSignatureRepository) Upsert(ctx context.Context, sig *envelopeDomain.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signatures[sig.SignerID] = *sig
	return nil
}

func (f *fakeSignatureRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*envelopeDomain.Signature, 0)
	for _, sig := range f.signatures {
		if sig.EnvelopeID == envelopeID {
			row := sig
			out = append(out, &row)
		}
	}
	return out, nil
}

type fakeDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]docDomain.Document
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{docs: make(map[uuid.UUID]docDomain.Document)}
}

func (f *fakeDocumentRepository) Create(ctx context.Context, doc *docDomain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*docDomain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, docDomain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (f *fakeDocumentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*docDomain.Document, error) {
	return f.Get(ctx, id)
}

func (f *fakeDocumentRepository) UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.docs[doc.ID]
	if !ok {
		return docDomain.ErrDocumentNotFound
	}
	row.SignedPath, row.SignedHash, row.UpdatedAt = doc.SignedPath, doc.SignedHash, doc.UpdatedAt
	f.docs[doc.ID] = row
	return nil
}

type fakeOutboxRepository struct {
	mu     sync.Mutex
	events []*notificationDomain.OutboxEvent
}

func (f *fakeOutboxRepository) Create(ctx context.Context, event *notificationDomain.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepository) ofType(eventType string) []*notificationDomain.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notificationDomain.OutboxEvent
	for _, e := range f.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeStepRepository struct {
	mu    sync.Mutex
	steps []*ledgerDomain.Step
}

func (f *fakeStepRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.steps {
		if s.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStepRepository) Create(ctx context.Context, step *ledgerDomain.Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.steps {
		if s.DocumentID == step.DocumentID && s.Step == step.Step {
			return ledgerDomain.ErrStepConflict
		}
	}
	f.steps = append(f.steps, step)
	return nil
}

func (f *fakeStepRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*ledgerDomain.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ledgerDomain.Step, 0)
	for _, s := range f.steps {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

type fakeAuditLogRepository struct {
	mu   sync.Mutex
	logs []*auditDomain.AuditLog
}

func (f *fakeAuditLogRepository) Create(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, auditLog)
	return nil
}

func (f *fakeAuditLogRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*auditDomain.AuditLog
	for _, l := range f.logs {
		if l.EnvelopeID == envelopeID {
			matched = append(matched, l)
		}
	}
	return page(matched, offset, limit), nil
}

func (f *fakeAuditLogRepository) ListByTimeRange(
	ctx context.Context,
	start, end time.Time,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*auditDomain.AuditLog
	for _, l := range f.logs {
		if !l.CreatedAt.Before(start) && !l.CreatedAt.After(end) {
			matched = append(matched, l)
		}
	}
	return page(matched, offset, limit), nil
}

func (f *fakeAuditLogRepository) events(envelopeID uuid.UUID) []auditDomain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auditDomain.Event
	for _, l := range f.logs {
		if l.EnvelopeID == envelopeID {
			out = append(out, l.Event)
		}
	}
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
