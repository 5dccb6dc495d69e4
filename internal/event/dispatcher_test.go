package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	pkgkafka "github.com/REVIVAL-MIMI/psychology/pkg/kafka"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, params)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type capturingPusher struct {
	mu     sync.Mutex
	pushed []*domain.Notification
}

func (p *capturingPusher) PushNotification(_ context.Context, _ string, n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, n)
}

func testEvent(t *testing.T, data NotificationCreatedData) *pkgkafka.Event {
	t.Helper()
	event, err := pkgkafka.NewEvent(TopicNotificationCreated, data.ID, AggregateTypeNotification, SourcePlatform, data)
	require.NoError(t, err)
	return event
}

func TestDispatcher_PersistsAndPushes(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := &capturingPusher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatcher := NewDispatcher(repo, pusher, logger)
	handler := dispatcher.Handler(pkgkafka.NewMemoryIdempotencyStore(time.Minute))

	data := NotificationCreatedData{
		ID:        "n-1",
		UserID:    "u-1",
		Type:      domain.NotificationNewMessage,
		Title:     "New message",
		Body:      "You have a new message",
		CreatedAt: time.Now().UTC(),
	}

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.ID == "n-1" && n.UserID == "u-1" && n.Type == domain.NotificationNewMessage
	})).Return(nil).Once()

	err := handler(context.Background(), testEvent(t, data))
	require.NoError(t, err)

	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "n-1", pusher.pushed[0].ID)
	repo.AssertExpectations(t)
}

func TestDispatcher_DuplicateEventProcessedOnce(t *testing.T) {
	repo := new(mockNotificationRepo)
	pusher := &capturingPusher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatcher := NewDispatcher(repo, pusher, logger)
	handler := dispatcher.Handler(pkgkafka.NewMemoryIdempotencyStore(time.Minute))

	event := testEvent(t, NotificationCreatedData{
		ID:     "n-1",
		UserID: "u-1",
		Type:   domain.NotificationInfo,
	})

	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))

	assert.Len(t, pusher.pushed, 1)
	repo.AssertExpectations(t)
}

func TestDispatcher_PersistFailurePropagates(t *testing.T) {
	repo := new(mockNotificationRepo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatcher := NewDispatcher(repo, nil, logger)
	handler := dispatcher.Handler(pkgkafka.NewMemoryIdempotencyStore(time.Minute))

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := handler(context.Background(), testEvent(t, NotificationCreatedData{ID: "n-1", UserID: "u-1"}))
	require.Error(t, err)
	repo.AssertExpectations(t)
}
