package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// JournalService implements the client-private diary.
type JournalService struct {
	journal repository.JournalRepository
	logger  *slog.Logger
}

// NewJournalService creates a new journal service.
func NewJournalService(journal repository.JournalRepository, logger *slog.Logger) *JournalService {
	return &JournalService{
		journal: journal,
		logger:  logger,
	}
}

// CreateEntryInput holds the parameters for a new journal entry.
type CreateEntryInput struct {
	Text string
	Mood string
}

// UpdateEntryInput holds the editable journal entry fields.
type UpdateEntryInput struct {
	Text *string
	Mood *string
}

// Create adds a journal entry for the client. At most ten entries per day are
// allowed.
func (s *JournalService) Create(ctx context.Context, clientID string, input CreateEntryInput) (*domain.JournalEntry, error) {
	if err := validateEntryText(input.Text); err != nil {
		return nil, err
	}
	if !domain.IsValidMood(input.Mood) {
		return nil, apperrors.InvalidInput("invalid mood value")
	}

	now := time.Now().UTC()
	count, err := s.journal.CountForDay(ctx, clientID, now)
	if err != nil {
		return nil, fmt.Errorf("count today's entries: %w", err)
	}
	if count >= domain.MaxJournalEntriesPerDay {
		return nil, apperrors.Throttled(fmt.Sprintf("no more than %d journal entries per day", domain.MaxJournalEntriesPerDay))
	}

	entry := &domain.JournalEntry{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Text:      input.Text,
		Mood:      input.Mood,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.journal.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create journal entry: %w", err)
	}

	s.logger.InfoContext(ctx, "journal entry created",
		slog.String("entry_id", entry.ID),
		slog.String("client_id", clientID),
	)

	return entry, nil
}

// Get returns an entry if it belongs to the client.
func (s *JournalService) Get(ctx context.Context, clientID, id string) (*domain.JournalEntry, error) {
	entry, err := s.journal.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	if entry.ClientID != clientID {
		return nil, apperrors.NotFound("journal entry", id)
	}
	return entry, nil
}

// Update edits an entry owned by the client.
func (s *JournalService) Update(ctx context.Context, clientID, id string, input UpdateEntryInput) (*domain.JournalEntry, error) {
	entry, err := s.Get(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		if err := validateEntryText(*input.Text); err != nil {
			return nil, err
		}
		entry.Text = *input.Text
	}
	if input.Mood != nil {
		if !domain.IsValidMood(*input.Mood) {
			return nil, apperrors.InvalidInput("invalid mood value")
		}
		entry.Mood = *input.Mood
	}

	if err := s.journal.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}

	return entry, nil
}

// Delete removes an entry owned by the client.
func (s *JournalService) Delete(ctx context.Context, clientID, id string) error {
	if err := s.journal.Delete(ctx, id, clientID); err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}

// List returns a page of the client's entries, newest first.
func (s *JournalService) List(ctx context.Context, clientID string, params pagination.Params) (pagination.Result[domain.JournalEntry], error) {
	entries, total, err := s.journal.ListByClient(ctx, clientID, params)
	if err != nil {
		return pagination.Result[domain.JournalEntry]{}, fmt.Errorf("list journal entries: %w", err)
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	return pagination.NewResult(entries, total, params), nil
}

func validateEntryText(text string) error {
	if text == "" {
		return apperrors.InvalidInput("text is required")
	}
	if len([]rune(text)) > domain.MaxJournalEntryLength {
		return apperrors.InvalidInput(fmt.Sprintf("text must not exceed %d characters", domain.MaxJournalEntryLength))
	}
	return nil
}
