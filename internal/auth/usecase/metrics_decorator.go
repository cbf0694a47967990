package usecase

import (
	"context"
	"time"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	"github.com/allisson/esign/internal/metrics"
)

const authMetricsDomain = "auth"

type ownerUseCaseWithMetrics struct {
	next    OwnerUseCase
	metrics metrics.BusinessMetrics
}

// NewOwnerUseCaseWithMetrics wraps an OwnerUseCase with metrics recording.
func NewOwnerUseCaseWithMetrics(useCase OwnerUseCase, m metrics.BusinessMetrics) OwnerUseCase {
	return &ownerUseCaseWithMetrics{next: useCase, metrics: m}
}

func (o *ownerUseCaseWithMetrics) Create(
	ctx context.Context,
	input *authDomain.CreateOwnerInput,
) (out *authDomain.CreateOwnerOutput, err error) {
	err = metrics.Track(ctx, o.metrics, authMetricsDomain, "owner_create", func() error {
		out, err = o.next.Create(ctx, input)
		return err
	})
	return out, err
}

type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *tokenUseCaseWithMetrics) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (out *authDomain.IssueTokenOutput, err error) {
	err = metrics.Track(ctx, t.metrics, authMetricsDomain, "token_issue", func() error {
		out, err = t.next.Issue(ctx, input)
		return err
	})
	return out, err
}

func (t *tokenUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	tokenHash string,
) (owner *authDomain.Owner, err error) {
	err = metrics.Track(ctx, t.metrics, authMetricsDomain, "token_authenticate", func() error {
		owner, err = t.next.Authenticate(ctx, tokenHash)
		return err
	})
	return owner, err
}

func (t *tokenUseCaseWithMetrics) PurgeExpired(ctx context.Context, olderThan time.Duration) (n int64, err error) {
	err = metrics.Track(ctx, t.metrics, authMetricsDomain, "token_purge", func() error {
		n, err = t.next.PurgeExpired(ctx, olderThan)
		return err
	})
	return n, err
}
