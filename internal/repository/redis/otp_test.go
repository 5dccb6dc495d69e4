package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

func setupOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOTPStore(client), mr
}

const testPhone = "+79991234567"

// ---------------------------------------------------------------------------
// Issue
// ---------------------------------------------------------------------------

func TestOTPStore_Issue_GeneratesSixDigitCode(t *testing.T) {
	store, mr := setupOTPStore(t)

	code, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	stored, err := mr.Get("otp:" + testPhone)
	require.NoError(t, err)
	assert.Equal(t, code, stored)

	// The admin mirror and cooldown marker are written alongside the code.
	mirror, err := mr.Get("otp_admin:" + testPhone)
	require.NoError(t, err)
	assert.Equal(t, code, mirror)
	assert.True(t, mr.Exists("otp_timeout:"+testPhone))
}

func TestOTPStore_Issue_Cooldown(t *testing.T) {
	store, mr := setupOTPStore(t)

	_, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	_, err = store.Issue(context.Background(), testPhone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrThrottled), "expected ErrThrottled, got: %v", err)

	// After the cooldown window a new code can be requested.
	mr.FastForward(61 * time.Second)
	_, err = store.Issue(context.Background(), testPhone)
	assert.NoError(t, err)
}

func TestOTPStore_Issue_Blocked(t *testing.T) {
	store, mr := setupOTPStore(t)

	require.NoError(t, mr.Set("blocked:"+testPhone, "1"))

	_, err := store.Issue(context.Background(), testPhone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBlocked), "expected ErrBlocked, got: %v", err)
}

func TestOTPStore_Issue_ReplacesPreviousCode(t *testing.T) {
	store, mr := setupOTPStore(t)

	first, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	second, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	// The first code no longer verifies once replaced.
	err = store.Verify(context.Background(), testPhone, first)
	if first != second {
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	}
}

// ---------------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------------

func TestOTPStore_Verify_Success(t *testing.T) {
	store, mr := setupOTPStore(t)

	code, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	err = store.Verify(context.Background(), testPhone, code)
	require.NoError(t, err)

	// The code is single use.
	assert.False(t, mr.Exists("otp:"+testPhone))
	assert.False(t, mr.Exists("otp_admin:"+testPhone))

	err = store.Verify(context.Background(), testPhone, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestOTPStore_Verify_WrongCode(t *testing.T) {
	store, _ := setupOTPStore(t)

	_, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	err = store.Verify(context.Background(), testPhone, "000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials), "expected ErrInvalidCredentials, got: %v", err)
}

func TestOTPStore_Verify_ThirdFailureBlocks(t *testing.T) {
	store, mr := setupOTPStore(t)

	code, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	for i := 0; i < 2; i++ {
		err = store.Verify(context.Background(), testPhone, wrong)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	}

	err = store.Verify(context.Background(), testPhone, wrong)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTooManyAttempts), "expected ErrTooManyAttempts, got: %v", err)

	// The phone is now blocked and even the correct code is rejected.
	assert.True(t, mr.Exists("blocked:"+testPhone))
	err = store.Verify(context.Background(), testPhone, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBlocked))
}

func TestOTPStore_Verify_BlockExpires(t *testing.T) {
	store, mr := setupOTPStore(t)

	require.NoError(t, mr.Set("blocked:"+testPhone, "1"))
	mr.SetTTL("blocked:"+testPhone, time.Hour)

	_, err := store.Issue(context.Background(), testPhone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBlocked))

	mr.FastForward(time.Hour + time.Second)

	_, err = store.Issue(context.Background(), testPhone)
	assert.NoError(t, err)
}

func TestOTPStore_Verify_SuccessClearsAttempts(t *testing.T) {
	store, mr := setupOTPStore(t)

	code, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	require.Error(t, store.Verify(context.Background(), testPhone, wrong))
	require.NoError(t, store.Verify(context.Background(), testPhone, code))

	assert.False(t, mr.Exists("otp_attempts:"+testPhone))
}

func TestOTPStore_Verify_CodeExpires(t *testing.T) {
	store, mr := setupOTPStore(t)

	code, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	mr.FastForward(5*time.Minute + time.Second)

	err = store.Verify(context.Background(), testPhone, code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
}

// ---------------------------------------------------------------------------
// Admin console helpers
// ---------------------------------------------------------------------------

func TestOTPStore_LastCode(t *testing.T) {
	store, _ := setupOTPStore(t)

	code, err := store.LastCode(context.Background(), testPhone)
	require.NoError(t, err)
	assert.Empty(t, code)

	issued, err := store.Issue(context.Background(), testPhone)
	require.NoError(t, err)

	code, err = store.LastCode(context.Background(), testPhone)
	require.NoError(t, err)
	assert.Equal(t, issued, code)
}

func TestOTPStore_RecentCodes(t *testing.T) {
	store, mr := setupOTPStore(t)

	first, err := store.Issue(context.Background(), "+79990000001")
	require.NoError(t, err)
	mr.FastForward(61 * time.Second)
	second, err := store.Issue(context.Background(), "+79990000002")
	require.NoError(t, err)

	codes, err := store.RecentCodes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.True(t, strings.HasPrefix(codes[0], "+79990000002:"+second+":"))
	assert.True(t, strings.HasPrefix(codes[1], "+79990000001:"+first+":"))
}

func TestOTPStore_ActiveCodes(t *testing.T) {
	store, _ := setupOTPStore(t)

	codeA, err := store.Issue(context.Background(), "+79990000001")
	require.NoError(t, err)
	codeB, err := store.Issue(context.Background(), "+79990000002")
	require.NoError(t, err)

	active, err := store.ActiveCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"+79990000001": codeA,
		"+79990000002": codeB,
	}, active)
}
