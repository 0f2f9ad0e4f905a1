package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKey(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	minute := 14 * 60
	b := Booking{CategoryID: "2", BookingDate: &day, SlotMinute: &minute, Status: StatusPending}

	key := b.SlotKey()
	require.NotNil(t, key)
	assert.Equal(t, "2025-06-02|840", *key)

	b.CategoryID = "1"
	assert.Nil(t, b.SlotKey(), "pickups never hold a slot")

	b.CategoryID = ""
	b.Status = StatusCancelled
	assert.Nil(t, b.SlotKey(), "cancelled bookings release their slot")

	b.Status = StatusConfirmed
	b.BookingDate = nil
	assert.Nil(t, b.SlotKey())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransition(StatusCancelled, StatusCancelled))
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
}
