package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

func newJournalFixture() (*mockJournalRepo, *JournalService) {
	repo := &mockJournalRepo{}
	return repo, NewJournalService(repo, testLogger())
}

func TestJournalService_Create_Success(t *testing.T) {
	repo, svc := newJournalFixture()
	repo.On("CountForDay", mock.Anything, "client-1", mock.Anything).Return(3, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.JournalEntry) bool {
		return e.ClientID == "client-1" && e.Mood == domain.MoodGood
	})).Return(nil)

	entry, err := svc.Create(context.Background(), "client-1", CreateEntryInput{
		Text: "Slept well, felt calmer today.",
		Mood: domain.MoodGood,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	repo.AssertExpectations(t)
}

func TestJournalService_Create_DailyCapReached(t *testing.T) {
	repo, svc := newJournalFixture()
	repo.On("CountForDay", mock.Anything, "client-1", mock.Anything).
		Return(domain.MaxJournalEntriesPerDay, nil)

	_, err := svc.Create(context.Background(), "client-1", CreateEntryInput{
		Text: "One entry too many.",
		Mood: domain.MoodNeutral,
	})

	require.ErrorIs(t, err, apperrors.ErrThrottled)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestJournalService_Create_TextTooLong(t *testing.T) {
	_, svc := newJournalFixture()

	_, err := svc.Create(context.Background(), "client-1", CreateEntryInput{
		Text: strings.Repeat("a", domain.MaxJournalEntryLength+1),
		Mood: domain.MoodGood,
	})

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestJournalService_Create_InvalidMood(t *testing.T) {
	_, svc := newJournalFixture()

	_, err := svc.Create(context.Background(), "client-1", CreateEntryInput{
		Text: "fine",
		Mood: "ECSTATIC",
	})

	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestJournalService_Get_ForeignEntry(t *testing.T) {
	repo, svc := newJournalFixture()
	repo.On("GetByID", mock.Anything, "entry-1").Return(&domain.JournalEntry{
		ID:       "entry-1",
		ClientID: "someone-else",
	}, nil)

	_, err := svc.Get(context.Background(), "client-1", "entry-1")

	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestJournalService_Update_Success(t *testing.T) {
	repo, svc := newJournalFixture()
	repo.On("GetByID", mock.Anything, "entry-1").Return(&domain.JournalEntry{
		ID:       "entry-1",
		ClientID: "client-1",
		Text:     "old",
		Mood:     domain.MoodBad,
	}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.JournalEntry) bool {
		return e.Text == "new text" && e.Mood == domain.MoodGood
	})).Return(nil)

	text, mood := "new text", domain.MoodGood
	entry, err := svc.Update(context.Background(), "client-1", "entry-1", UpdateEntryInput{
		Text: &text,
		Mood: &mood,
	})

	require.NoError(t, err)
	assert.Equal(t, "new text", entry.Text)
	repo.AssertExpectations(t)
}
