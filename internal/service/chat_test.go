package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

type fakePusher struct {
	mu       sync.Mutex
	messages []*domain.Message
	reads    []string
}

func (p *fakePusher) PushMessage(_ context.Context, userID string, msg *domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *fakePusher) PushRead(_ context.Context, userID, readerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = append(p.reads, userID+"<-"+readerID)
}

type chatFixture struct {
	messages      *mockMessageRepo
	clients       *mockClientRepo
	notifications *mockNotificationRepo
	pusher        *fakePusher
	svc           *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		messages:      &mockMessageRepo{},
		clients:       &mockClientRepo{},
		notifications: &mockNotificationRepo{},
		pusher:        &fakePusher{},
	}
	notify := NewNotificationService(f.notifications, nil, testLogger())
	f.svc = NewChatService(f.messages, f.clients, notify, f.pusher, testLogger())

	f.notifications.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

// pair binds client-1 to psy-1 in the mock profile store.
func (f *chatFixture) pair() {
	f.clients.On("GetByUserID", mock.Anything, "client-1").
		Return(pairedClientProfile("client-1", "psy-1"), nil)
	f.clients.On("GetByUserID", mock.Anything, "psy-1").
		Return(nil, apperrors.ErrNotFound)
}

func TestChatService_Send_PsychologistToOwnClient(t *testing.T) {
	f := newChatFixture()
	f.pair()
	f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.SenderID == "psy-1" && m.RecipientID == "client-1" && m.Text == "hello"
	})).Return(nil)

	msg, err := f.svc.Send(context.Background(), "psy-1", "client-1", "hello")

	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	require.Len(t, f.pusher.messages, 1)
	assert.Equal(t, msg.ID, f.pusher.messages[0].ID)
}

func TestChatService_Send_ClientToOwnPsychologist(t *testing.T) {
	f := newChatFixture()
	f.pair()
	f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Send(context.Background(), "client-1", "psy-1", "hello")

	require.NoError(t, err)
}

func TestChatService_Send_UnpairedUsers(t *testing.T) {
	f := newChatFixture()
	f.clients.On("GetByUserID", mock.Anything, "client-2").
		Return(pairedClientProfile("client-2", "another-psy"), nil)
	f.clients.On("GetByUserID", mock.Anything, "psy-1").
		Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.Send(context.Background(), "psy-1", "client-2", "hello")

	require.ErrorIs(t, err, apperrors.ErrForbidden)
	f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Send_TwoClients(t *testing.T) {
	f := newChatFixture()
	f.clients.On("GetByUserID", mock.Anything, "client-1").
		Return(pairedClientProfile("client-1", "psy-1"), nil)
	f.clients.On("GetByUserID", mock.Anything, "client-2").
		Return(pairedClientProfile("client-2", "psy-1"), nil)

	_, err := f.svc.Send(context.Background(), "client-1", "client-2", "hello")

	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestChatService_Send_TooLong(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.Send(context.Background(), "psy-1", "client-1",
		strings.Repeat("a", domain.MaxMessageLength+1))

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestChatService_Send_ToSelf(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.Send(context.Background(), "psy-1", "psy-1", "hello me")

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestChatService_History_Paged(t *testing.T) {
	f := newChatFixture()
	f.pair()
	params := pagination.Params{Page: 1, PerPage: 20}
	f.messages.On("GetConversation", mock.Anything, "client-1", "psy-1", params).
		Return([]domain.Message{{ID: "m1"}, {ID: "m2"}}, 2, nil)

	result, err := f.svc.History(context.Background(), "client-1", "psy-1", params)

	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 2, result.TotalCount)
}

func TestChatService_History_Unpaired(t *testing.T) {
	f := newChatFixture()
	f.clients.On("GetByUserID", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.History(context.Background(), "psy-1", "stranger", pagination.Params{Page: 1, PerPage: 20})

	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestChatService_MarkRead_EchoesReceipt(t *testing.T) {
	f := newChatFixture()
	f.messages.On("MarkConversationRead", mock.Anything, "client-1", "psy-1").
		Return(int64(3), nil)

	updated, err := f.svc.MarkRead(context.Background(), "client-1", "psy-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	require.Len(t, f.pusher.reads, 1)
	assert.Equal(t, "psy-1<-client-1", f.pusher.reads[0])
}

func TestChatService_MarkRead_NothingUnread(t *testing.T) {
	f := newChatFixture()
	f.messages.On("MarkConversationRead", mock.Anything, "client-1", "psy-1").
		Return(int64(0), nil)

	updated, err := f.svc.MarkRead(context.Background(), "client-1", "psy-1")

	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Empty(t, f.pusher.reads)
}
