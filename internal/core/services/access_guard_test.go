package services

import (
	"context"
	"sync"
	"testing"

	"telesignal/internal/core/domain"
	"telesignal/internal/infrastructure/repositories/memory"
	"telesignal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedGuard(t *testing.T) (*AccessGuard, *memory.MemoryAppointmentRepository) {
	t.Helper()

	repo := memory.NewMemoryAppointmentRepository()
	repo.Seed(&domain.Appointment{
		ID:              42,
		DoctorID:        100,
		PatientID:       200,
		VideoCallRoomID: "room-token-42",
	})

	guard, err := NewAccessGuard(repo, 8, logger.NewNop())
	require.NoError(t, err)
	return guard, repo
}

func TestAccessGuard_AdmitsParties(t *testing.T) {
	guard, _ := seedGuard(t)
	ctx := context.Background()

	appointment, role, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, role)
	assert.Equal(t, int64(42), appointment.ID)

	_, role, err = guard.AuthorizeAppointment(ctx, 42, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, role)
}

func TestAccessGuard_RejectsStranger(t *testing.T) {
	guard, _ := seedGuard(t)

	_, _, err := guard.AuthorizeAppointment(context.Background(), 42, 9999)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestAccessGuard_RejectsUnknownAppointment(t *testing.T) {
	guard, _ := seedGuard(t)

	_, _, err := guard.AuthorizeAppointment(context.Background(), 31337, 100)
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)
}

func TestAccessGuard_AuthorizesByRoomToken(t *testing.T) {
	guard, _ := seedGuard(t)
	ctx := context.Background()

	appointment, role, err := guard.AuthorizeRoomToken(ctx, "room-token-42", 200)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, role)
	assert.Equal(t, int64(42), appointment.ID)

	_, _, err = guard.AuthorizeRoomToken(ctx, "room-token-42", 9999)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, _, err = guard.AuthorizeRoomToken(ctx, "no-such-token", 100)
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)

	_, _, err = guard.AuthorizeRoomToken(ctx, "", 100)
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)
}

func TestAccessGuard_HandsOutPrivateCopies(t *testing.T) {
	guard, _ := seedGuard(t)
	ctx := context.Background()

	first, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	second, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	// A caller scribbling on its copy must not leak into anyone else's
	// authorization, cached or not.
	first.VideoCallStatus = domain.CallInProgress
	first.VideoCallRoomID = "scribbled"

	third, _, err := guard.AuthorizeAppointment(ctx, 42, 200)
	require.NoError(t, err)
	assert.Equal(t, "room-token-42", third.VideoCallRoomID)
	assert.NotEqual(t, domain.CallInProgress, third.VideoCallStatus)

	byToken, _, err := guard.AuthorizeRoomToken(ctx, "room-token-42", 100)
	require.NoError(t, err)
	require.NotSame(t, third, byToken)
	assert.Equal(t, "room-token-42", byToken.VideoCallRoomID)
}

func TestAccessGuard_ConcurrentAuthorizeAndMutate(t *testing.T) {
	guard, _ := seedGuard(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				appointment, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
				if err == nil {
					// Mutating the result is what the lifecycle
					// service does; it must stay private.
					appointment.VideoCallStatus = domain.CallEnded
					appointment.VideoCallRoomID = "local-scratch"
				}
			}
		}()
	}
	wg.Wait()

	appointment, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	assert.Equal(t, "room-token-42", appointment.VideoCallRoomID)
	assert.NotEqual(t, domain.CallEnded, appointment.VideoCallStatus)
}

func TestAccessGuard_InvalidateDropsStaleEntry(t *testing.T) {
	guard, repo := seedGuard(t)
	ctx := context.Background()

	// Prime the cache.
	_, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)

	updated, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	updated.VideoCallRoomID = "rotated-token"
	require.NoError(t, repo.Update(ctx, updated))

	// Cached entry still carries the old token until invalidated.
	appointment, _, err := guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	assert.Equal(t, "room-token-42", appointment.VideoCallRoomID)

	guard.Invalidate(42)

	appointment, _, err = guard.AuthorizeAppointment(ctx, 42, 100)
	require.NoError(t, err)
	assert.Equal(t, "rotated-token", appointment.VideoCallRoomID)

	// The old token no longer resolves.
	_, _, err = guard.AuthorizeRoomToken(ctx, "room-token-42", 100)
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)

	_, _, err = guard.AuthorizeRoomToken(ctx, "rotated-token", 100)
	assert.NoError(t, err)
}
