// Package hostel manages room allocation in the student hostel.
package hostel

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance:
		return true
	}
	return false
}

// seeded layout
const (
	seedFloors        = 3
	seedRoomsPerFloor = 20
	seedCapacity      = 2
)

var (
	// errors
	ErrRoomNotFound     = core.NewError(core.KindNotFound, "room not found")
	ErrNotAllocated     = core.NewError(core.KindNotFound, "student has no active room allocation")
	ErrRoomFull         = core.NewError(core.KindConflict, "room is full")
	ErrRoomUnavailable  = core.NewError(core.KindConflict, "room is not available")
	ErrAlreadyAllocated = core.NewError(core.KindConflict, "student already has a room")
	ErrInvalidStatus    = core.NewError(core.KindInvalid, "invalid room status")
)

type (
	Room struct {
		ID         uint       `json:"id"`
		RoomNumber string     `json:"room_number"`
		Floor      int        `json:"floor"`
		Capacity   int        `json:"capacity"`
		Occupied   int        `json:"occupied"`
		Status     RoomStatus `json:"status"`
	}

	Allocation struct {
		ID          uint       `json:"id"`
		RoomID      uint       `json:"room_id"`
		RoomNumber  string     `json:"room_number"`
		StudentID   string     `json:"student_id"`
		Active      bool       `json:"active"`
		AllocatedAt time.Time  `json:"allocated_at"`
		ReleasedAt  *time.Time `json:"released_at"`
	}

	Repository interface {
		CreateRooms(ctx context.Context, rooms []Room) error
		CountRooms(ctx context.Context) (int, error)
		// QueryRooms returns every room when status is empty.
		QueryRooms(ctx context.Context, status RoomStatus) ([]Room, error)
		GetRoom(ctx context.Context, id uint, forUpdate bool) (Room, error)
		UpdateRoom(ctx context.Context, r Room) (Room, error)

		CreateAllocation(ctx context.Context, a Allocation) (Allocation, error)
		// GetActiveAllocation returns ErrNotAllocated when studentID holds no room.
		GetActiveAllocation(ctx context.Context, studentID string, forUpdate bool) (Allocation, error)
		UpdateAllocation(ctx context.Context, a Allocation) (Allocation, error)
	}

	Students interface {
		Exists(ctx context.Context, studentID string) error
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		students Students
		nowFunc  func() time.Time
	}
)

func (r Room) Free() int { return r.Capacity - r.Occupied }

func NewService(repo Repository, tx core.Transactor, students Students) *Service {
	return &Service{repo: repo, tx: tx, students: students, nowFunc: time.Now}
}

func (svc *Service) Rooms(ctx context.Context, status RoomStatus) ([]Room, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return svc.repo.QueryRooms(ctx, status)
}

func (svc *Service) AllocationOf(ctx context.Context, studentID string) (Allocation, error) {
	return svc.repo.GetActiveAllocation(ctx, studentID, false)
}

// Allocate gives studentID a bed in room roomID.
func (svc *Service) Allocate(ctx context.Context, studentID string, roomID uint) (Allocation, error) {
	var a Allocation
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		if err := svc.students.Exists(ctx, studentID); err != nil {
			return err
		}

		room, err := svc.repo.GetRoom(ctx, roomID, true /* forUpdate */)
		if err != nil {
			return err
		}
		if room.Status != RoomAvailable {
			return ErrRoomUnavailable
		}
		if room.Free() <= 0 {
			return ErrRoomFull
		}

		switch _, err = svc.repo.GetActiveAllocation(ctx, studentID, true); {
		case err == nil:
			return ErrAlreadyAllocated
		case !errors.Is(err, ErrNotAllocated):
			return err
		}

		room.Occupied++
		if room.Free() == 0 {
			room.Status = RoomOccupied
		}
		if room, err = svc.repo.UpdateRoom(ctx, room); err != nil {
			return err
		}
		a, err = svc.repo.CreateAllocation(ctx, Allocation{
			RoomID:      room.ID,
			RoomNumber:  room.RoomNumber,
			StudentID:   studentID,
			Active:      true,
			AllocatedAt: svc.nowFunc().UTC(),
		})
		return err
	})
	if err != nil {
		return Allocation{}, err
	}
	return a, nil
}

// Release frees the bed held by studentID.
func (svc *Service) Release(ctx context.Context, studentID string) (Allocation, error) {
	var a Allocation
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		if a, err = svc.repo.GetActiveAllocation(ctx, studentID, true /* forUpdate */); err != nil {
			return err
		}
		room, err := svc.repo.GetRoom(ctx, a.RoomID, true)
		if err != nil {
			return err
		}

		if room.Occupied > 0 {
			room.Occupied--
		}
		if room.Status == RoomOccupied && room.Free() > 0 {
			room.Status = RoomAvailable
		}
		if _, err = svc.repo.UpdateRoom(ctx, room); err != nil {
			return err
		}

		now := svc.nowFunc().UTC()
		a.Active = false
		a.ReleasedAt = &now
		a, err = svc.repo.UpdateAllocation(ctx, a)
		return err
	})
	if err != nil {
		return Allocation{}, err
	}
	return a, nil
}

// SetStatus puts a room in or out of maintenance. A room leaving maintenance
// becomes available or occupied depending on its beds.
func (svc *Service) SetStatus(ctx context.Context, roomID uint, status RoomStatus) (Room, error) {
	if !status.Valid() {
		return Room{}, ErrInvalidStatus
	}
	var room Room
	err := svc.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		if room, err = svc.repo.GetRoom(ctx, roomID, true); err != nil {
			return err
		}
		if status != RoomMaintenance {
			status = RoomAvailable
			if room.Free() <= 0 {
				status = RoomOccupied
			}
		}
		room.Status = status
		room, err = svc.repo.UpdateRoom(ctx, room)
		return err
	})
	return room, err
}

// SeedRooms creates the hostel layout unless rooms already exist, and returns the number of rooms added.
func (svc *Service) SeedRooms(ctx context.Context) (int, error) {
	cnt, err := svc.repo.CountRooms(ctx)
	if err != nil || cnt > 0 {
		return 0, err
	}
	rooms := make([]Room, 0, seedFloors*seedRoomsPerFloor)
	for floor := 1; floor <= seedFloors; floor++ {
		for n := 1; n <= seedRoomsPerFloor; n++ {
			rooms = append(rooms, Room{
				RoomNumber: fmt.Sprintf("%d%02d", floor, n),
				Floor:      floor,
				Capacity:   seedCapacity,
				Status:     RoomAvailable,
			})
		}
	}
	if err := svc.repo.CreateRooms(ctx, rooms); err != nil {
		return 0, err
	}
	return len(rooms), nil
}
