package redis

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// Key layout for the OTP store. The otp_admin:* mirror keys exist only for
// the admin debug console and never participate in verification.
const (
	otpKeyPrefix      = "otp:"
	attemptsKeyPrefix = "otp_attempts:"
	blockedKeyPrefix  = "blocked:"
	cooldownKeyPrefix = "otp_timeout:"
	adminKeyPrefix    = "otp_admin:"
	adminRecentKey    = "otp_admin_recent"
)

const (
	codeTTL         = 5 * time.Minute
	attemptsTTL     = time.Hour
	blockTTL        = time.Hour
	resendCooldown  = 60 * time.Second
	maxAttempts     = 3
	adminRecentSize = 50
)

// OTPStore implements repository.OTPStore using Redis.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore creates a new Redis-backed OTP store.
func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Issue generates and stores a fresh six digit code for the phone. A new code
// replaces any previous one, so at most one code per phone is ever valid.
func (s *OTPStore) Issue(ctx context.Context, phone string) (string, error) {
	blocked, err := s.isBlocked(ctx, phone)
	if err != nil {
		return "", err
	}
	if blocked {
		return "", apperrors.Blocked("phone is temporarily blocked")
	}

	onCooldown, err := s.client.Exists(ctx, cooldownKeyPrefix+phone).Result()
	if err != nil {
		return "", fmt.Errorf("redis check otp cooldown: %w", err)
	}
	if onCooldown > 0 {
		return "", apperrors.Throttled("code was requested too recently")
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKeyPrefix+phone, code, codeTTL)
	pipe.Set(ctx, cooldownKeyPrefix+phone, "1", resendCooldown)
	pipe.Set(ctx, adminKeyPrefix+phone, code, codeTTL)
	pipe.LPush(ctx, adminRecentKey, phone+":"+code+":"+time.Now().UTC().Format(time.RFC3339))
	pipe.LTrim(ctx, adminRecentKey, 0, adminRecentSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis store otp: %w", err)
	}

	return code, nil
}

// Verify checks the submitted code. A correct code is consumed and the
// attempt counter cleared. A wrong code increments the counter and the third
// failure blocks the phone for an hour.
func (s *OTPStore) Verify(ctx context.Context, phone, code string) error {
	blocked, err := s.isBlocked(ctx, phone)
	if err != nil {
		return err
	}
	if blocked {
		return apperrors.Blocked("phone is temporarily blocked")
	}

	stored, err := s.client.Get(ctx, otpKeyPrefix+phone).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// An expired or never issued code is not a wrong guess, so it
			// does not count against the attempt budget.
			return apperrors.InvalidCredentials("verification code expired or not issued")
		}
		return fmt.Errorf("redis get otp: %w", err)
	}

	if stored != code {
		return s.recordFailure(ctx, phone)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, otpKeyPrefix+phone)
	pipe.Del(ctx, attemptsKeyPrefix+phone)
	pipe.Del(ctx, adminKeyPrefix+phone)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis consume otp: %w", err)
	}

	return nil
}

// LastCode returns the most recent code issued to the phone. Empty when none
// is active.
func (s *OTPStore) LastCode(ctx context.Context, phone string) (string, error) {
	code, err := s.client.Get(ctx, adminKeyPrefix+phone).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get last otp: %w", err)
	}
	return code, nil
}

// RecentCodes returns the most recently issued codes, newest first, in
// "phone:code" form.
func (s *OTPStore) RecentCodes(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > adminRecentSize {
		limit = adminRecentSize
	}

	codes, err := s.client.LRange(ctx, adminRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list recent otp codes: %w", err)
	}
	return codes, nil
}

// ActiveCodes returns all phones with a currently active code.
func (s *OTPStore) ActiveCodes(ctx context.Context) (map[string]string, error) {
	active := make(map[string]string)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, adminKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan otp keys: %w", err)
		}

		for _, key := range keys {
			code, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("redis get otp key %s: %w", key, err)
			}
			active[strings.TrimPrefix(key, adminKeyPrefix)] = code
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return active, nil
}

func (s *OTPStore) isBlocked(ctx context.Context, phone string) (bool, error) {
	n, err := s.client.Exists(ctx, blockedKeyPrefix+phone).Result()
	if err != nil {
		return false, fmt.Errorf("redis check otp block: %w", err)
	}
	return n > 0, nil
}

// recordFailure bumps the attempt counter. The counter window starts at the
// first failure and the third failure inside it blocks the phone.
func (s *OTPStore) recordFailure(ctx context.Context, phone string) error {
	key := attemptsKeyPrefix + phone

	attempts, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis incr otp attempts: %w", err)
	}
	if attempts == 1 {
		if err := s.client.Expire(ctx, key, attemptsTTL).Err(); err != nil {
			return fmt.Errorf("redis expire otp attempts: %w", err)
		}
	}

	if attempts >= maxAttempts {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, blockedKeyPrefix+phone, "1", blockTTL)
		pipe.Del(ctx, otpKeyPrefix+phone)
		pipe.Del(ctx, attemptsKeyPrefix+phone)
		pipe.Del(ctx, adminKeyPrefix+phone)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis block phone: %w", err)
		}
		return apperrors.TooManyAttempts("too many failed verification attempts")
	}

	return apperrors.InvalidCredentials("invalid verification code")
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
