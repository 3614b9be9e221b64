package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/internal/objectstore"
	"github.com/grachmannico95/invoice-import-be/internal/storage"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

func TestIssueGrant(t *testing.T) {
	transactions := storage.NewTransactionStore(logger.NewNop())
	objects := objectstore.NewMemoryStore("")
	notifier := &fakeNotifier{}
	svc := NewGrantService(transactions, objects, notifier,
		5*time.Minute, 2*time.Minute, logger.NewNop())

	before := time.Now()
	grant, err := svc.IssueGrant(context.Background(), "conn-1", "req-1")
	require.NoError(t, err)

	assert.NotEmpty(t, grant.TransactionID)
	assert.Equal(t, 300, grant.Expires)
	assert.True(t, strings.HasPrefix(grant.URL, "/uploads/"+grant.TransactionID))

	tx, err := transactions.Get(context.Background(), grant.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusGenerated, tx.Status)
	assert.Equal(t, "conn-1", tx.ConnectionID)
	assert.Equal(t, "req-1", tx.RequestID)

	// TTL lands two minutes out, independent of the grant URL window.
	assert.WithinDuration(t, before.Add(2*time.Minute), tx.ExpiresAt, time.Second)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.pushes, 1)
	pushed, ok := notifier.pushes[0].(*Grant)
	require.True(t, ok)
	assert.Equal(t, grant.TransactionID, pushed.TransactionID)
}

func TestIssueGrant_FreshKeyPerGrant(t *testing.T) {
	transactions := storage.NewTransactionStore(logger.NewNop())
	objects := objectstore.NewMemoryStore("")
	notifier := &fakeNotifier{}
	svc := NewGrantService(transactions, objects, notifier,
		5*time.Minute, 2*time.Minute, logger.NewNop())

	first, err := svc.IssueGrant(context.Background(), "conn-1", "req-1")
	require.NoError(t, err)
	second, err := svc.IssueGrant(context.Background(), "conn-1", "req-2")
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionID, second.TransactionID)
}
