package hostel_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core/hostel"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
	"github.com/trezcool/chuo/testutil"
)

func newService(t *testing.T) (*hostel.Service, *database.Store) {
	t.Helper()
	_, store := testutil.PrepareDB(t)
	students := student.NewService(gormrepo.NewStudentRepository(store), store, testutil.NewMailService(t))
	return hostel.NewService(gormrepo.NewHostelRepository(store), store, students), store
}

func TestService_SeedRooms(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, err := svc.SeedRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	n, err = svc.SeedRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rooms, err := svc.Rooms(ctx, "")
	require.NoError(t, err)
	require.Len(t, rooms, 60)
	assert.Equal(t, "101", rooms[0].RoomNumber)
	assert.Equal(t, "320", rooms[59].RoomNumber)
	assert.Equal(t, 3, rooms[59].Floor)
	assert.Equal(t, 2, rooms[0].Capacity)

	_, err = svc.Rooms(ctx, "haunted")
	assert.True(t, errors.Is(err, hostel.ErrInvalidStatus))
}

func TestService_AllocateRelease(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.SeedRooms(ctx)
	require.NoError(t, err)
	rooms, err := svc.Rooms(ctx, hostel.RoomAvailable)
	require.NoError(t, err)
	room := rooms[0]

	asha := testutil.CreateStudent(t, store, "Asha Rao", "Physics").StudentID
	ravi := testutil.CreateStudent(t, store, "Ravi Kumar", "Physics").StudentID
	meera := testutil.CreateStudent(t, store, "Meera Iyer", "Physics").StudentID

	a, err := svc.Allocate(ctx, asha, room.ID)
	require.NoError(t, err)
	assert.True(t, a.Active)
	assert.Equal(t, room.RoomNumber, a.RoomNumber)

	_, err = svc.Allocate(ctx, asha, rooms[1].ID)
	assert.True(t, errors.Is(err, hostel.ErrAlreadyAllocated))

	_, err = svc.Allocate(ctx, ravi, room.ID)
	require.NoError(t, err)

	occupied, err := svc.Rooms(ctx, hostel.RoomOccupied)
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, 2, occupied[0].Occupied)

	// a full room is no longer available
	_, err = svc.Allocate(ctx, meera, room.ID)
	assert.True(t, errors.Is(err, hostel.ErrRoomUnavailable))

	released, err := svc.Release(ctx, ravi)
	require.NoError(t, err)
	assert.False(t, released.Active)
	assert.NotNil(t, released.ReleasedAt)

	_, err = svc.AllocationOf(ctx, ravi)
	assert.True(t, errors.Is(err, hostel.ErrNotAllocated))
	_, err = svc.Release(ctx, ravi)
	assert.True(t, errors.Is(err, hostel.ErrNotAllocated))

	got, err := svc.AllocationOf(ctx, asha)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// released bed goes to the next student
	_, err = svc.Allocate(ctx, meera, room.ID)
	require.NoError(t, err)

	t.Run("unknown room or student", func(t *testing.T) {
		_, err := svc.Allocate(ctx, ravi, 9999)
		assert.True(t, errors.Is(err, hostel.ErrRoomNotFound))
		_, err = svc.Allocate(ctx, "STU000", rooms[1].ID)
		assert.True(t, errors.Is(err, student.ErrNotFound))
	})
}

func TestService_SetStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.SeedRooms(ctx)
	require.NoError(t, err)
	rooms, err := svc.Rooms(ctx, "")
	require.NoError(t, err)
	sid := testutil.CreateStudent(t, store, "Asha Rao", "Physics").StudentID

	r, err := svc.SetStatus(ctx, rooms[0].ID, hostel.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, hostel.RoomMaintenance, r.Status)

	_, err = svc.Allocate(ctx, sid, rooms[0].ID)
	assert.True(t, errors.Is(err, hostel.ErrRoomUnavailable))

	tests := []struct {
		name    string
		status  hostel.RoomStatus
		want    hostel.RoomStatus
		wantErr error
	}{
		{name: "back to service", status: hostel.RoomOccupied, want: hostel.RoomAvailable},
		{name: "maintenance", status: hostel.RoomMaintenance, want: hostel.RoomMaintenance},
		{name: "available", status: hostel.RoomAvailable, want: hostel.RoomAvailable},
		{name: "invalid", status: "closed", wantErr: hostel.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := svc.SetStatus(ctx, rooms[0].ID, tt.status)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Status)
		})
	}

	_, err = svc.SetStatus(ctx, 9999, hostel.RoomAvailable)
	assert.True(t, errors.Is(err, hostel.ErrRoomNotFound))
}
