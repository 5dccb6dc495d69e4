package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/storage"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// adminUserID is the synthetic identity of the console operator. The admin
// account lives in configuration, not in the users table.
const adminUserID = "admin"

// AdminConfig holds the console credentials.
type AdminConfig struct {
	Login        string
	PasswordHash string
	Phone        string
}

// AdminService implements the operator console: login, psychologist
// verification review, user listing, platform stats and OTP debugging.
type AdminService struct {
	users         repository.UserRepository
	psychologists repository.PsychologistProfileRepository
	otp           repository.OTPStore
	registry      repository.TokenRegistry
	jwtManager    *auth.JWTManager
	notifications *NotificationService
	store         storage.Storage
	cfg           AdminConfig
	development   bool
	logger        *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	users repository.UserRepository,
	psychologists repository.PsychologistProfileRepository,
	otp repository.OTPStore,
	registry repository.TokenRegistry,
	jwtManager *auth.JWTManager,
	notifications *NotificationService,
	store storage.Storage,
	cfg AdminConfig,
	development bool,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:         users,
		psychologists: psychologists,
		otp:           otp,
		registry:      registry,
		jwtManager:    jwtManager,
		notifications: notifications,
		store:         store,
		cfg:           cfg,
		development:   development,
		logger:        logger,
	}
}

// Login checks the console credentials and issues an admin token pair.
func (s *AdminService) Login(ctx context.Context, login, password string) (*domain.TokenPair, error) {
	if login != s.cfg.Login {
		return nil, apperrors.InvalidCredentials("invalid login or password")
	}

	if s.cfg.PasswordHash == "" {
		// Local setups run without a configured hash. Production startup
		// refuses an empty ADMIN_PASSWORD_HASH.
		if !s.development || password != "admin" {
			return nil, apperrors.InvalidCredentials("invalid login or password")
		}
		s.logger.WarnContext(ctx, "admin login with development fallback password")
	} else if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidCredentials("invalid login or password")
	}

	pair, err := s.issuePair(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "admin logged in", slog.String("login", login))
	return pair, nil
}

// Refresh rotates the admin refresh token. The presented token must match the
// one on record and is revoked for the rest of its lifetime.
func (s *AdminService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	blacklisted, err := s.registry.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if blacklisted {
		return nil, apperrors.Blacklisted("refresh token has been revoked")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.UserID != adminUserID || claims.Subject != s.cfg.Phone {
		return nil, apperrors.InvalidToken("not an admin refresh token")
	}

	current, err := s.registry.CurrentRefresh(ctx, s.cfg.Phone)
	if err != nil {
		return nil, apperrors.Mismatch("no active refresh token on record")
	}
	if current != refreshToken {
		return nil, apperrors.Mismatch("refresh token has already been used")
	}

	if err := s.registry.Blacklist(ctx, refreshToken, time.Until(claims.ExpiresAt.Time)); err != nil {
		return nil, fmt.Errorf("blacklist used refresh token: %w", err)
	}

	return s.issuePair(ctx)
}

// Logout revokes the admin access token and drops the refresh record.
func (s *AdminService) Logout(ctx context.Context, accessToken string) error {
	if err := s.registry.Blacklist(ctx, accessToken, logoutRevocationTTL); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	if err := s.registry.DeleteRefresh(ctx, s.cfg.Phone); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// PendingVerification is one row in the verification review queue.
type PendingVerification struct {
	Profile     domain.PsychologistProfile `json:"profile"`
	DocumentURL string                     `json:"document_url,omitempty"`
}

// ListPendingVerifications returns psychologists awaiting review, with their
// document download links.
func (s *AdminService) ListPendingVerifications(ctx context.Context) ([]PendingVerification, error) {
	profiles, err := s.psychologists.ListUnverified(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unverified psychologists: %w", err)
	}

	pending := make([]PendingVerification, 0, len(profiles))
	for _, profile := range profiles {
		row := PendingVerification{Profile: profile}
		if profile.VerificationDocument != "" {
			url, err := s.store.GetURL(ctx, profile.VerificationDocument)
			if err != nil {
				s.logger.WarnContext(ctx, "verification document missing from storage",
					slog.String("user_id", profile.UserID),
					slog.String("key", profile.VerificationDocument),
				)
			} else {
				row.DocumentURL = url
			}
		}
		pending = append(pending, row)
	}

	return pending, nil
}

// ApproveVerification marks the psychologist as verified.
func (s *AdminService) ApproveVerification(ctx context.Context, userID string) error {
	if _, err := s.psychologists.GetByUserID(ctx, userID); err != nil {
		return fmt.Errorf("get psychologist profile: %w", err)
	}

	if err := s.psychologists.SetVerification(ctx, userID, domain.VerificationApproved, ""); err != nil {
		return fmt.Errorf("approve verification: %w", err)
	}

	s.notifications.Notify(ctx, userID, domain.NotificationVerificationApproved,
		"Verification approved", "Your account has been verified, the platform is now fully available")

	s.logger.InfoContext(ctx, "psychologist verified", slog.String("user_id", userID))
	return nil
}

// RejectVerification declines the psychologist's verification with a reason.
func (s *AdminService) RejectVerification(ctx context.Context, userID, reason string) error {
	if reason == "" {
		return apperrors.InvalidInput("rejection reason is required")
	}
	if _, err := s.psychologists.GetByUserID(ctx, userID); err != nil {
		return fmt.Errorf("get psychologist profile: %w", err)
	}

	if err := s.psychologists.SetVerification(ctx, userID, domain.VerificationRejected, reason); err != nil {
		return fmt.Errorf("reject verification: %w", err)
	}

	s.notifications.Notify(ctx, userID, domain.NotificationVerificationRejected,
		"Verification rejected", reason)

	s.logger.InfoContext(ctx, "psychologist verification rejected",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
	return nil
}

// ListUsers returns a page of users, optionally filtered by role.
func (s *AdminService) ListUsers(ctx context.Context, role string, params pagination.Params) (pagination.Result[domain.User], error) {
	if role != "" && role != domain.RolePsychologist && role != domain.RoleClient {
		return pagination.Result[domain.User]{}, apperrors.InvalidInput("unknown role filter")
	}

	users, total, err := s.users.List(ctx, role, params)
	if err != nil {
		return pagination.Result[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return pagination.NewResult(users, total, params), nil
}

// DeleteUser removes a user and their dependent rows.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted by admin", slog.String("user_id", userID))
	return nil
}

// PlatformStats is the console overview.
type PlatformStats struct {
	Psychologists        int `json:"psychologists"`
	Clients              int `json:"clients"`
	PendingVerifications int `json:"pending_verifications"`
}

// Stats returns platform-wide counters.
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	psychologists, err := s.users.CountByRole(ctx, domain.RolePsychologist)
	if err != nil {
		return nil, fmt.Errorf("count psychologists: %w", err)
	}
	clients, err := s.users.CountByRole(ctx, domain.RoleClient)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	pending, err := s.psychologists.ListUnverified(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unverified psychologists: %w", err)
	}

	return &PlatformStats{
		Psychologists:        psychologists,
		Clients:              clients,
		PendingVerifications: len(pending),
	}, nil
}

// LastOTP returns the active code for a phone, for debugging delivery issues.
func (s *AdminService) LastOTP(ctx context.Context, phone string) (string, error) {
	code, err := s.otp.LastCode(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("get last otp: %w", err)
	}
	return code, nil
}

// RecentOTPs returns the most recently issued codes, newest first.
func (s *AdminService) RecentOTPs(ctx context.Context, limit int) ([]string, error) {
	codes, err := s.otp.RecentCodes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent otps: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// ActiveOTPs returns every phone with a live code.
func (s *AdminService) ActiveOTPs(ctx context.Context) (map[string]string, error) {
	codes, err := s.otp.ActiveCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active otps: %w", err)
	}
	return codes, nil
}

func (s *AdminService) issuePair(ctx context.Context) (*domain.TokenPair, error) {
	access, err := s.jwtManager.GenerateAccessToken(adminUserID, s.cfg.Phone, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("generate admin access token: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(adminUserID, s.cfg.Phone)
	if err != nil {
		return nil, fmt.Errorf("generate admin refresh token: %w", err)
	}
	if err := s.registry.StoreRefresh(ctx, s.cfg.Phone, refresh, s.jwtManager.RefreshExpiry()); err != nil {
		return nil, fmt.Errorf("store admin refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
