package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Repository mocks
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePhone(ctx context.Context, id, phone string) error {
	return m.Called(ctx, id, phone).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, role string, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, role, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockPsychologistRepo struct {
	mock.Mock
}

func (m *mockPsychologistRepo) Create(ctx context.Context, profile *domain.PsychologistProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockPsychologistRepo) GetByUserID(ctx context.Context, userID string) (*domain.PsychologistProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PsychologistProfile), args.Error(1)
}

func (m *mockPsychologistRepo) Update(ctx context.Context, profile *domain.PsychologistProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockPsychologistRepo) ListUnverified(ctx context.Context) ([]domain.PsychologistProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PsychologistProfile), args.Error(1)
}

func (m *mockPsychologistRepo) SetVerification(ctx context.Context, userID, status, reason string) error {
	return m.Called(ctx, userID, status, reason).Error(0)
}

func (m *mockPsychologistRepo) SetVerificationDocument(ctx context.Context, userID, documentKey string) error {
	return m.Called(ctx, userID, documentKey).Error(0)
}

type mockClientRepo struct {
	mock.Mock
}

func (m *mockClientRepo) Create(ctx context.Context, profile *domain.ClientProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockClientRepo) GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClientProfile), args.Error(1)
}

func (m *mockClientRepo) Update(ctx context.Context, profile *domain.ClientProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockClientRepo) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.ClientProfile, error) {
	args := m.Called(ctx, psychologistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ClientProfile), args.Error(1)
}

type mockInviteRepo struct {
	mock.Mock
}

func (m *mockInviteRepo) Create(ctx context.Context, invite *domain.Invite) error {
	return m.Called(ctx, invite).Error(0)
}

func (m *mockInviteRepo) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invite), args.Error(1)
}

func (m *mockInviteRepo) MarkUsed(ctx context.Context, id, usedBy string) error {
	return m.Called(ctx, id, usedBy).Error(0)
}

func (m *mockInviteRepo) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Invite, error) {
	args := m.Called(ctx, psychologistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invite), args.Error(1)
}

func (m *mockInviteRepo) Delete(ctx context.Context, id, psychologistID string) error {
	return m.Called(ctx, id, psychologistID).Error(0)
}

func (m *mockInviteRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, session *domain.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) ListByPsychologist(ctx context.Context, psychologistID string, from, to time.Time) ([]domain.Session, error) {
	args := m.Called(ctx, psychologistID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *mockSessionRepo) ListByClient(ctx context.Context, clientID string, from, to time.Time) ([]domain.Session, error) {
	args := m.Called(ctx, clientID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *mockSessionRepo) ListNeedingReminder(ctx context.Context, now time.Time, window time.Duration) ([]domain.Session, error) {
	args := m.Called(ctx, now, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *mockSessionRepo) MarkReminderSent(ctx context.Context, id string, window time.Duration) error {
	return m.Called(ctx, id, window).Error(0)
}

type mockRecommendationRepo struct {
	mock.Mock
}

func (m *mockRecommendationRepo) Create(ctx context.Context, rec *domain.Recommendation) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRecommendationRepo) GetByID(ctx context.Context, id string) (*domain.Recommendation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recommendation), args.Error(1)
}

func (m *mockRecommendationRepo) Update(ctx context.Context, rec *domain.Recommendation) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRecommendationRepo) Delete(ctx context.Context, id, psychologistID string) error {
	return m.Called(ctx, id, psychologistID).Error(0)
}

func (m *mockRecommendationRepo) ListByClient(ctx context.Context, clientID string) ([]domain.Recommendation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *mockRecommendationRepo) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Recommendation, error) {
	args := m.Called(ctx, psychologistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *mockRecommendationRepo) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Recommendation, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

type mockJournalRepo struct {
	mock.Mock
}

func (m *mockJournalRepo) Create(ctx context.Context, entry *domain.JournalEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockJournalRepo) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *mockJournalRepo) Update(ctx context.Context, entry *domain.JournalEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockJournalRepo) Delete(ctx context.Context, id, clientID string) error {
	return m.Called(ctx, id, clientID).Error(0)
}

func (m *mockJournalRepo) ListByClient(ctx context.Context, clientID string, params pagination.Params) ([]domain.JournalEntry, int, error) {
	args := m.Called(ctx, clientID, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.JournalEntry), args.Int(1), args.Error(2)
}

func (m *mockJournalRepo) CountForDay(ctx context.Context, clientID string, day time.Time) (int, error) {
	args := m.Called(ctx, clientID, day)
	return args.Int(0), args.Error(1)
}

func (m *mockJournalRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageRepo) GetConversation(ctx context.Context, userA, userB string, params pagination.Params) ([]domain.Message, int, error) {
	args := m.Called(ctx, userA, userB, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Message), args.Int(1), args.Error(2)
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepo) CountUnreadFrom(ctx context.Context, userID, peerID string) (int, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepo) MarkConversationRead(ctx context.Context, userID, peerID string) (int64, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *mockNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// ---------------------------------------------------------------------------
// Redis-backed store mocks
// ---------------------------------------------------------------------------

type mockOTPStore struct {
	mock.Mock
}

func (m *mockOTPStore) Issue(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *mockOTPStore) Verify(ctx context.Context, phone, code string) error {
	return m.Called(ctx, phone, code).Error(0)
}

func (m *mockOTPStore) LastCode(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *mockOTPStore) RecentCodes(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockOTPStore) ActiveCodes(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type mockTokenRegistry struct {
	mock.Mock
}

func (m *mockTokenRegistry) StoreRefresh(ctx context.Context, phone, token string, ttl time.Duration) error {
	return m.Called(ctx, phone, token, ttl).Error(0)
}

func (m *mockTokenRegistry) CurrentRefresh(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *mockTokenRegistry) DeleteRefresh(ctx context.Context, phone string) error {
	return m.Called(ctx, phone).Error(0)
}

func (m *mockTokenRegistry) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	return m.Called(ctx, token, ttl).Error(0)
}

func (m *mockTokenRegistry) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
