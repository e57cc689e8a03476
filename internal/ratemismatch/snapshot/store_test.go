package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func f64(v float64) *float64 { return &v }

func TestStoreMissingFileIsNotAnError(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snap.csv"), zap.NewNop())

	records, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, records)
}

func TestStoreSaveLoadKeepsNullsAndDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snap.csv")
	s := NewStore(path, zap.NewNop())
	ctx := context.Background()

	cancel := time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC)
	in := []domain.Record{
		{
			FirstName:          "Ann",
			HotelID:            6,
			BookingReference:   "BK-1",
			CreatedDate:        time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			CancelDate:         &cancel,
			Adults:             2,
			Nights:             1,
			RoomRevenue:        f64(100),
			RefundableRate:     f64(120.5),
			StayDate:           time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC),
			BookingChannelName: "Booking.com, Limited",
		},
		{BookingReference: "BK-2"},
	}
	require.NoError(t, s.Save(ctx, in))

	out, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Nil(t, out[1].RefundableRate)
	assert.Nil(t, out[1].CancelDate)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.csv")
	s := NewStore(path, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Save(ctx, []domain.Record{{BookingReference: "BK-1"}}))
	require.NoError(t, s.Delete(ctx))

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreLoadAcceptsForeignColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.csv")
	body := "refundable_rate,booking_reference,room_revenue,extra,stay_date\n" +
		"120,BK-9,100.0,x,2023-05-01 00:00:00\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	out, ok, err := NewStore(path, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, "BK-9", out[0].BookingReference)
	assert.Equal(t, 100.0, *out[0].RoomRevenue)
	assert.Equal(t, 120.0, *out[0].RefundableRate)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), out[0].StayDate)
}

func TestStoreLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.csv")
	require.NoError(t, os.WriteFile(path, []byte("booking_reference,adults\nBK-1,two\n"), 0o644))

	_, _, err := NewStore(path, zap.NewNop()).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrSnapshotCorrupt)
}
