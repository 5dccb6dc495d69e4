package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/storage"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/slug"
)

// MaxDocumentSize caps verification document uploads at 5 MB.
const MaxDocumentSize = 5 << 20

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// ProfileService implements profile management for both roles.
type ProfileService struct {
	psychologists repository.PsychologistProfileRepository
	clients       repository.ClientProfileRepository
	store         storage.Storage
	logger        *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(
	psychologists repository.PsychologistProfileRepository,
	clients repository.ClientProfileRepository,
	store storage.Storage,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		psychologists: psychologists,
		clients:       clients,
		store:         store,
		logger:        logger,
	}
}

// UpdatePsychologistInput holds the editable psychologist profile fields.
type UpdatePsychologistInput struct {
	FullName        *string
	About           *string
	Specializations *[]string
	Education       *string
	ExperienceYears *int
	SessionPrice    *int64
}

// UpdateClientInput holds the editable client profile fields.
type UpdateClientInput struct {
	FullName  *string
	BirthDate *time.Time
}

// VerificationStatus is the psychologist's verification state view.
type VerificationStatus struct {
	Status          string `json:"status"`
	Verified        bool   `json:"verified"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	HasDocument     bool   `json:"has_document"`
}

// GetPsychologist returns the psychologist profile for the user.
func (s *ProfileService) GetPsychologist(ctx context.Context, userID string) (*domain.PsychologistProfile, error) {
	profile, err := s.psychologists.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get psychologist profile: %w", err)
	}
	return profile, nil
}

// UpdatePsychologist applies the given changes to the psychologist's profile.
func (s *ProfileService) UpdatePsychologist(ctx context.Context, userID string, input UpdatePsychologistInput) (*domain.PsychologistProfile, error) {
	profile, err := s.psychologists.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get psychologist profile for update: %w", err)
	}

	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, apperrors.InvalidInput("full name must not be empty")
		}
		profile.FullName = *input.FullName
	}
	if input.About != nil {
		profile.About = *input.About
	}
	if input.Specializations != nil {
		profile.Specializations = *input.Specializations
	}
	if input.Education != nil {
		profile.Education = *input.Education
	}
	if input.ExperienceYears != nil {
		if *input.ExperienceYears < 0 {
			return nil, apperrors.InvalidInput("experience years must not be negative")
		}
		profile.ExperienceYears = *input.ExperienceYears
	}
	if input.SessionPrice != nil {
		if *input.SessionPrice < 0 {
			return nil, apperrors.InvalidInput("session price must not be negative")
		}
		profile.SessionPrice = *input.SessionPrice
	}

	if err := s.psychologists.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update psychologist profile: %w", err)
	}

	s.logger.InfoContext(ctx, "psychologist profile updated", slog.String("user_id", userID))
	return profile, nil
}

// GetClient returns the client profile for the user.
func (s *ProfileService) GetClient(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	profile, err := s.clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	return profile, nil
}

// UpdateClient applies the given changes to the client's profile.
func (s *ProfileService) UpdateClient(ctx context.Context, userID string, input UpdateClientInput) (*domain.ClientProfile, error) {
	profile, err := s.clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get client profile for update: %w", err)
	}

	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, apperrors.InvalidInput("full name must not be empty")
		}
		profile.FullName = *input.FullName
	}
	if input.BirthDate != nil {
		profile.BirthDate = input.BirthDate
	}

	if err := s.clients.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update client profile: %w", err)
	}

	s.logger.InfoContext(ctx, "client profile updated", slog.String("user_id", userID))
	return profile, nil
}

// UploadVerificationDocument stores the document and resets the verification
// status to pending review.
func (s *ProfileService) UploadVerificationDocument(ctx context.Context, userID, fileName, contentType string, size int64, data io.Reader) (string, error) {
	if size <= 0 {
		return "", apperrors.InvalidInput("document is empty")
	}
	if size > MaxDocumentSize {
		return "", apperrors.InvalidInput("document exceeds the 5 MB limit")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedDocumentExtensions[ext] {
		return "", apperrors.InvalidInput("document must be a PDF, DOC or DOCX file")
	}

	base := slug.Generate(strings.TrimSuffix(filepath.Base(fileName), ext))
	if base == "" {
		base = "document"
	}
	key := fmt.Sprintf("documents/%s/%s-%s%s", userID, base, uuid.New().String()[:8], ext)

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Size:        size,
		Data:        io.LimitReader(data, MaxDocumentSize),
	})
	if err != nil {
		return "", fmt.Errorf("upload verification document: %w", err)
	}

	if err := s.psychologists.SetVerificationDocument(ctx, userID, result.Key); err != nil {
		return "", fmt.Errorf("record verification document: %w", err)
	}

	s.logger.InfoContext(ctx, "verification document uploaded",
		slog.String("user_id", userID),
		slog.String("key", result.Key),
	)

	return result.URL, nil
}

// GetVerificationStatus returns the psychologist's verification state.
func (s *ProfileService) GetVerificationStatus(ctx context.Context, userID string) (*VerificationStatus, error) {
	profile, err := s.psychologists.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get psychologist profile: %w", err)
	}

	return &VerificationStatus{
		Status:          profile.VerificationStatus,
		Verified:        profile.Verified,
		RejectionReason: profile.RejectionReason,
		HasDocument:     profile.VerificationDocument != "",
	}, nil
}
