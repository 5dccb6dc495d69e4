package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

func newInviteTestFixture(t *testing.T) (*InviteRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewInviteRepository(mock)
	return repo, mock
}

func sampleInvite() *domain.Invite {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Invite{
		ID:             "inv-1",
		PsychologistID: "psy-1",
		Token:          "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		ExpiresAt:      now.Add(domain.InviteTTL),
		Used:           false,
		UsedBy:         nil,
		CreatedAt:      now,
	}
}

func inviteRow(inv *domain.Invite) *pgxmock.Rows {
	cols := []string{"id", "psychologist_id", "token", "expires_at", "used", "used_by", "created_at"}
	return pgxmock.NewRows(cols).AddRow(
		inv.ID, inv.PsychologistID, inv.Token, inv.ExpiresAt, inv.Used, inv.UsedBy, inv.CreatedAt,
	)
}

func TestInviteRepository_Create_Success(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	inv := sampleInvite()

	mock.ExpectExec("INSERT INTO invites").
		WithArgs(inv.ID, inv.PsychologistID, inv.Token, inv.ExpiresAt, inv.Used, inv.UsedBy, inv.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), inv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_GetByToken_Success(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	inv := sampleInvite()

	mock.ExpectQuery("SELECT .+ FROM invites WHERE token =").
		WithArgs(inv.Token).
		WillReturnRows(inviteRow(inv))

	got, err := repo.GetByToken(context.Background(), inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, inv.PsychologistID, got.PsychologistID)
	assert.False(t, got.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_GetByToken_NotFound(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM invites WHERE token =").
		WithArgs("missing-token").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByToken(context.Background(), "missing-token")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_MarkUsed_Success(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE invites SET used = TRUE").
		WithArgs("client-1", "inv-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkUsed(context.Background(), "inv-1", "client-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_MarkUsed_AlreadyConsumed(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	// The used = FALSE guard means a second consumer updates zero rows.
	mock.ExpectExec("UPDATE invites SET used = TRUE").
		WithArgs("client-2", "inv-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkUsed(context.Background(), "inv-1", "client-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGone), "expected ErrGone, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_ListByPsychologist(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	inv := sampleInvite()

	mock.ExpectQuery("SELECT .+ FROM invites\\s+WHERE psychologist_id =").
		WithArgs(inv.PsychologistID).
		WillReturnRows(inviteRow(inv))

	invites, err := repo.ListByPsychologist(context.Background(), inv.PsychologistID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, inv.Token, invites[0].Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM invites WHERE id =").
		WithArgs("missing-id", "psy-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing-id", "psy-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteRepository_DeleteExpired(t *testing.T) {
	repo, mock := newInviteTestFixture(t)
	defer mock.Close()

	cutoff := time.Now().UTC()

	mock.ExpectExec("DELETE FROM invites WHERE expires_at <").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
