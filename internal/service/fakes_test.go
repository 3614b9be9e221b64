package service

import (
	"context"
	"sync"

	"github.com/grachmannico95/invoice-import-be/internal/audit"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
)

type statusPush struct {
	TransactionID string
	ConnectionID  string
	Status        domain.TransactionStatus
}

// fakeNotifier records every push and termination. Always reports
// delivery success, matching the best-effort channel contract.
type fakeNotifier struct {
	mu         sync.Mutex
	pushes     []interface{}
	statuses   []statusPush
	terminated []string
}

func (f *fakeNotifier) Push(ctx context.Context, connectionID string, payload interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, payload)
	return true
}

func (f *fakeNotifier) PushStatus(ctx context.Context, transactionID, connectionID string, status domain.TransactionStatus) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusPush{
		TransactionID: transactionID,
		ConnectionID:  connectionID,
		Status:        status,
	})
	return true
}

func (f *fakeNotifier) Terminate(ctx context.Context, connectionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, connectionID)
	return true
}

func (f *fakeNotifier) statusSequence() []domain.TransactionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	sequence := make([]domain.TransactionStatus, 0, len(f.statuses))
	for _, push := range f.statuses {
		sequence = append(sequence, push.Status)
	}
	return sequence
}

func (f *fakeNotifier) terminatedConnections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.terminated...)
}

type fakeAuditPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeAuditPublisher) Emit(ctx context.Context, event audit.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeAuditPublisher) emitted() []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Event{}, f.events...)
}
