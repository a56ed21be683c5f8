package services_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/getmentor/getmentor-sessions/internal/models"
	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event models.TransitionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// barrierStore holds every GetRequest caller until n of them have read,
// so concurrent transitions all observe the same prior status
type barrierStore struct {
	repository.Store
	arrived sync.WaitGroup
}

func newBarrierStore(inner repository.Store, n int) *barrierStore {
	b := &barrierStore{Store: inner}
	b.arrived.Add(n)
	return b
}

func (b *barrierStore) GetRequest(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	req, err := b.Store.GetRequest(ctx, id)
	b.arrived.Done()
	b.arrived.Wait()
	return req, err
}

// sessionBarrierStore holds every GetSession caller until n of them have read
type sessionBarrierStore struct {
	repository.Store
	arrived sync.WaitGroup
}

func newSessionBarrierStore(inner repository.Store, n int) *sessionBarrierStore {
	b := &sessionBarrierStore{Store: inner}
	b.arrived.Add(n)
	return b
}

func (b *sessionBarrierStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := b.Store.GetSession(ctx, id)
	b.arrived.Done()
	b.arrived.Wait()
	return sess, err
}

// failingSessionStore fails every session insert made inside a transaction
type failingSessionStore struct {
	repository.Store
}

func (f *failingSessionStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingSessionTx{Store: tx})
	})
}

type failingSessionTx struct {
	repository.Store
}

func (f *failingSessionTx) CreateSession(ctx context.Context, s *models.Session) error {
	return errors.StorageError("insert session", fmt.Errorf("connection reset by peer"))
}
