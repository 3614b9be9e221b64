package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// Grant is the upload grant pushed back to the requesting client.
type Grant struct {
	URL           string `json:"url"`
	Expires       int    `json:"expires"`
	TransactionID string `json:"transactionId"`
}

// GrantService issues one-time upload grants and the transactions that
// track them.
type GrantService struct {
	transactions domain.TransactionStore
	objects      domain.ObjectStore
	notifier     domain.Notifier
	urlExpiry    time.Duration
	ttl          time.Duration
	logger       *logger.Logger
}

func NewGrantService(
	transactions domain.TransactionStore,
	objects domain.ObjectStore,
	notifier domain.Notifier,
	urlExpiry, ttl time.Duration,
	log *logger.Logger,
) *GrantService {
	return &GrantService{
		transactions: transactions,
		objects:      objects,
		notifier:     notifier,
		urlExpiry:    urlExpiry,
		ttl:          ttl,
		logger:       log,
	}
}

// IssueGrant generates a fresh upload key, presigns a write URL for it,
// creates the GENERATED transaction and pushes the grant to the caller.
// Store and object-store failures propagate; nothing is retried.
func (s *GrantService) IssueGrant(ctx context.Context, connectionID, requestID string) (*Grant, error) {
	key := uuid.New().String()
	ctx = logger.WithTransactionID(ctx, key)

	url, err := s.objects.PresignPut(ctx, key, s.urlExpiry)
	if err != nil {
		s.logger.Error(ctx, "Failed to presign upload URL",
			"error", err,
		)
		return nil, err
	}

	now := time.Now()
	transaction := domain.Transaction{
		ID:           key,
		Status:       domain.TransactionStatusGenerated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		ExpiresIn:    int(s.urlExpiry.Seconds()),
		ConnectionID: connectionID,
		RequestID:    requestID,
	}

	if err := s.transactions.Create(ctx, transaction); err != nil {
		s.logger.Error(ctx, "Failed to create transaction",
			"error", err,
		)
		return nil, err
	}

	grant := &Grant{
		URL:           url,
		Expires:       int(s.urlExpiry.Seconds()),
		TransactionID: key,
	}

	s.notifier.Push(ctx, connectionID, grant)

	s.logger.Info(ctx, "Upload grant issued",
		"connection_id", connectionID,
		"expires", grant.Expires,
	)

	return grant, nil
}
