package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/sms"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

var phoneRegexp = regexp.MustCompile(`^\+[0-9]{10,15}$`)

const inviteTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const inviteTokenLength = 32

// logoutRevocationTTL is how long an access token presented at logout stays
// blacklisted. Fixed at 30 minutes regardless of the configured access token
// lifetime.
const logoutRevocationTTL = 30 * time.Minute

// AuthService implements phone+OTP authentication and the token lifecycle.
type AuthService struct {
	users          repository.UserRepository
	psychologists  repository.PsychologistProfileRepository
	clients        repository.ClientProfileRepository
	invites        repository.InviteRepository
	otp            repository.OTPStore
	registry       repository.TokenRegistry
	jwtManager     *auth.JWTManager
	sender         sms.Sender
	development    bool
	logger         *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	psychologists repository.PsychologistProfileRepository,
	clients repository.ClientProfileRepository,
	invites repository.InviteRepository,
	otp repository.OTPStore,
	registry repository.TokenRegistry,
	jwtManager *auth.JWTManager,
	sender sms.Sender,
	development bool,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		psychologists: psychologists,
		clients:       clients,
		invites:       invites,
		otp:           otp,
		registry:      registry,
		jwtManager:    jwtManager,
		sender:        sender,
		development:   development,
		logger:        logger,
	}
}

// RegisterPsychologistInput holds the parameters for psychologist registration.
type RegisterPsychologistInput struct {
	Phone    string
	Code     string
	FullName string
}

// RegisterClientInput holds the parameters for invite-based client registration.
type RegisterClientInput struct {
	Phone       string
	Code        string
	InviteToken string
	FullName    string
	BirthDate   *time.Time
}

// SendOTP issues a verification code for the phone and delivers it by SMS.
func (s *AuthService) SendOTP(ctx context.Context, phone string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}

	code, err := s.otp.Issue(ctx, phone)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	message := fmt.Sprintf("Your verification code is %s", code)
	if err := s.sender.Send(ctx, phone, message); err != nil {
		s.logger.ErrorContext(ctx, "failed to send otp sms",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
		// In development the code stays readable through the admin console,
		// so a dead gateway must not break the login flow.
		if !s.development {
			return fmt.Errorf("send otp sms: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "otp issued", slog.String("phone", phone))
	return nil
}

// Login verifies the code and issues a token pair for an existing account.
func (s *AuthService) Login(ctx context.Context, phone, code string) (*domain.User, *domain.TokenPair, error) {
	if err := validatePhone(phone); err != nil {
		return nil, nil, err
	}
	if code == "" {
		return nil, nil, apperrors.InvalidInput("verification code is required")
	}

	if err := s.otp.Verify(ctx, phone, code); err != nil {
		return nil, nil, fmt.Errorf("verify otp: %w", err)
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("account", phone)
		}
		return nil, nil, fmt.Errorf("get user by phone: %w", err)
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, tokens, nil
}

// RegisterPsychologist verifies the code, creates a psychologist account with
// a pending verification profile and issues a token pair.
func (s *AuthService) RegisterPsychologist(ctx context.Context, input RegisterPsychologistInput) (*domain.User, *domain.TokenPair, error) {
	if err := validatePhone(input.Phone); err != nil {
		return nil, nil, err
	}
	if input.FullName == "" {
		return nil, nil, apperrors.InvalidInput("full name is required")
	}

	if err := s.otp.Verify(ctx, input.Phone, input.Code); err != nil {
		return nil, nil, fmt.Errorf("verify otp: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New().String(),
		Phone:     input.Phone,
		Role:      domain.RolePsychologist,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	profile := &domain.PsychologistProfile{
		UserID:             user.ID,
		FullName:           input.FullName,
		VerificationStatus: domain.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.psychologists.Create(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("create psychologist profile: %w", err)
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "psychologist registered",
		slog.String("user_id", user.ID),
	)

	return user, tokens, nil
}

// RegisterClient verifies the code, consumes the invite and creates a client
// account bound to the inviting psychologist.
func (s *AuthService) RegisterClient(ctx context.Context, input RegisterClientInput) (*domain.User, *domain.TokenPair, error) {
	if err := validatePhone(input.Phone); err != nil {
		return nil, nil, err
	}
	if input.FullName == "" {
		return nil, nil, apperrors.InvalidInput("full name is required")
	}
	if input.InviteToken == "" {
		return nil, nil, apperrors.InvalidInput("invite token is required")
	}

	invite, err := s.invites.GetByToken(ctx, input.InviteToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("invite", input.InviteToken)
		}
		return nil, nil, fmt.Errorf("get invite: %w", err)
	}

	now := time.Now().UTC()
	if !invite.IsUsable(now) {
		return nil, nil, apperrors.Gone("invite is expired or already used")
	}

	if err := s.otp.Verify(ctx, input.Phone, input.Code); err != nil {
		return nil, nil, fmt.Errorf("verify otp: %w", err)
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Phone:     input.Phone,
		Role:      domain.RoleClient,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	// Consuming the invite is atomic; a concurrent registration with the same
	// token loses here.
	if err := s.invites.MarkUsed(ctx, invite.ID, user.ID); err != nil {
		return nil, nil, fmt.Errorf("consume invite: %w", err)
	}

	profile := &domain.ClientProfile{
		UserID:         user.ID,
		FullName:       input.FullName,
		BirthDate:      input.BirthDate,
		PsychologistID: &invite.PsychologistID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.clients.Create(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("create client profile: %w", err)
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "client registered",
		slog.String("user_id", user.ID),
		slog.String("psychologist_id", invite.PsychologistID),
	)

	return user, tokens, nil
}

// Refresh rotates a refresh token. The presented token must be the current
// one on record; the old token is blacklisted for its remaining lifetime so
// every refresh token is single use.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	if presented == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	revoked, err := s.registry.IsBlacklisted(ctx, presented)
	if err != nil {
		return nil, fmt.Errorf("check token blacklist: %w", err)
	}
	if revoked {
		return nil, apperrors.Blacklisted("refresh token has been revoked")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(presented)
	if err != nil {
		return nil, fmt.Errorf("validate refresh token: %w", err)
	}

	phone := claims.Subject
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken("account no longer exists")
		}
		return nil, fmt.Errorf("get user for refresh: %w", err)
	}

	current, err := s.registry.CurrentRefresh(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Mismatch("no active refresh token on record")
		}
		return nil, fmt.Errorf("get current refresh token: %w", err)
	}
	if current != presented {
		return nil, apperrors.Mismatch("refresh token is not the current one")
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if err := s.registry.Blacklist(ctx, presented, remaining); err != nil {
		return nil, fmt.Errorf("blacklist rotated token: %w", err)
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens rotated", slog.String("user_id", user.ID))
	return tokens, nil
}

// Logout revokes the access token for its remaining usefulness and drops the
// account's refresh token record.
func (s *AuthService) Logout(ctx context.Context, accessToken, phone string) error {
	if accessToken != "" {
		if err := s.registry.Blacklist(ctx, accessToken, logoutRevocationTTL); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}

	if err := s.registry.DeleteRefresh(ctx, phone); err != nil {
		return fmt.Errorf("delete refresh record: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("phone", phone))
	return nil
}

// RequestPhoneChange sends a verification code to the new number.
func (s *AuthService) RequestPhoneChange(ctx context.Context, userID, newPhone string) error {
	if err := validatePhone(newPhone); err != nil {
		return err
	}

	if _, err := s.users.GetByPhone(ctx, newPhone); err == nil {
		return apperrors.AlreadyExists("user", "phone", newPhone)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("check phone availability: %w", err)
	}

	return s.SendOTP(ctx, newPhone)
}

// ConfirmPhoneChange verifies the code sent to the new number, re-keys the
// account and issues a fresh token pair bound to the new phone. Tokens issued
// against the old phone die with the old registry record.
func (s *AuthService) ConfirmPhoneChange(ctx context.Context, user *domain.User, newPhone, code string) (*domain.TokenPair, error) {
	if err := validatePhone(newPhone); err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, newPhone, code); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	oldPhone := user.Phone
	if err := s.users.UpdatePhone(ctx, user.ID, newPhone); err != nil {
		return nil, fmt.Errorf("update phone: %w", err)
	}
	user.Phone = newPhone

	if err := s.registry.DeleteRefresh(ctx, oldPhone); err != nil {
		s.logger.ErrorContext(ctx, "failed to drop old refresh record",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	tokens, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "phone changed", slog.String("user_id", user.ID))
	return tokens, nil
}

// issuePair generates an access/refresh pair and records the refresh token as
// the account's current one.
func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Phone, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Phone)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.registry.StoreRefresh(ctx, user.Phone, refreshToken, s.jwtManager.RefreshExpiry()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// generateInviteToken returns a random alphanumeric token.
func generateInviteToken() (string, error) {
	buf := make([]byte, inviteTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteTokenAlphabet[int(b)%len(inviteTokenAlphabet)]
	}
	return string(buf), nil
}

func validatePhone(phone string) error {
	if !phoneRegexp.MatchString(phone) {
		return apperrors.InvalidInput("phone must be in international format, e.g. +79991234567")
	}
	return nil
}
