package gormrepo

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/hostel"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type hostelRepository struct {
	store *database.Store
}

var _ hostel.Repository = (*hostelRepository)(nil) // interface compliance check

func NewHostelRepository(store *database.Store) *hostelRepository {
	return &hostelRepository{store: store}
}

func toRoom(r models.HostelRoom) hostel.Room {
	return hostel.Room{
		ID:         r.ID,
		RoomNumber: r.RoomNumber,
		Floor:      r.Floor,
		Capacity:   r.Capacity,
		Occupied:   r.Occupied,
		Status:     hostel.RoomStatus(r.Status),
	}
}

func fromRoom(r hostel.Room) models.HostelRoom {
	return models.HostelRoom{
		ID:         r.ID,
		RoomNumber: r.RoomNumber,
		Floor:      r.Floor,
		Capacity:   r.Capacity,
		Occupied:   r.Occupied,
		Status:     string(r.Status),
	}
}

type allocationRow struct {
	models.HostelAllocation
	RoomNumber string
}

func toAllocation(a allocationRow) hostel.Allocation {
	return hostel.Allocation{
		ID:          a.ID,
		RoomID:      a.RoomID,
		RoomNumber:  a.RoomNumber,
		StudentID:   a.StudentID,
		Active:      a.Active,
		AllocatedAt: a.AllocatedAt,
		ReleasedAt:  a.ReleasedAt,
	}
}

func (repo hostelRepository) CreateRooms(ctx context.Context, rooms []hostel.Room) error {
	rows := make([]models.HostelRoom, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, fromRoom(r))
	}
	if err := repo.store.Conn(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return core.NewStorageError(err, "inserting rooms")
	}
	return nil
}

func (repo hostelRepository) CountRooms(ctx context.Context) (int, error) {
	var cnt int64
	if err := repo.store.Conn(ctx).Model(&models.HostelRoom{}).Count(&cnt).Error; err != nil {
		return 0, core.NewStorageError(err, "counting rooms")
	}
	return int(cnt), nil
}

func (repo hostelRepository) QueryRooms(ctx context.Context, status hostel.RoomStatus) ([]hostel.Room, error) {
	q := repo.store.Conn(ctx).Model(&models.HostelRoom{})
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var rows []models.HostelRoom
	if err := q.Order("room_number").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying rooms")
	}
	rooms := make([]hostel.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, toRoom(r))
	}
	return rooms, nil
}

func (repo hostelRepository) GetRoom(ctx context.Context, id uint, forUpdate bool) (hostel.Room, error) {
	var row models.HostelRoom
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate)
	if err := q.Where("id = ?", id).Take(&row).Error; err != nil {
		return hostel.Room{}, trapNotFound(err, hostel.ErrRoomNotFound, "finding room")
	}
	return toRoom(row), nil
}

func (repo hostelRepository) UpdateRoom(ctx context.Context, r hostel.Room) (hostel.Room, error) {
	res := repo.store.Conn(ctx).Model(&models.HostelRoom{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"occupied": r.Occupied,
		"status":   string(r.Status),
	})
	if res.Error != nil {
		return hostel.Room{}, core.NewStorageError(res.Error, "updating room")
	}
	if res.RowsAffected == 0 {
		return hostel.Room{}, hostel.ErrRoomNotFound
	}
	return r, nil
}

func (repo hostelRepository) CreateAllocation(ctx context.Context, a hostel.Allocation) (hostel.Allocation, error) {
	row := models.HostelAllocation{
		RoomID:      a.RoomID,
		StudentID:   a.StudentID,
		Active:      a.Active,
		AllocatedAt: a.AllocatedAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		return hostel.Allocation{}, core.NewStorageError(err, "inserting allocation")
	}
	a.ID = row.ID
	return a, nil
}

func (repo hostelRepository) GetActiveAllocation(ctx context.Context, studentID string, forUpdate bool) (hostel.Allocation, error) {
	var row allocationRow
	q := repo.store.ForUpdate(repo.store.Conn(ctx), forUpdate).
		Table("hostel_allocations").
		Select("hostel_allocations.*, hostel_rooms.room_number").
		Joins("JOIN hostel_rooms ON hostel_rooms.id = hostel_allocations.room_id").
		Where("hostel_allocations.student_id = ? AND hostel_allocations.active = ?", studentID, true)
	if err := q.Take(&row).Error; err != nil {
		return hostel.Allocation{}, trapNotFound(err, hostel.ErrNotAllocated, "finding allocation")
	}
	return toAllocation(row), nil
}

func (repo hostelRepository) UpdateAllocation(ctx context.Context, a hostel.Allocation) (hostel.Allocation, error) {
	res := repo.store.Conn(ctx).Model(&models.HostelAllocation{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"active":      a.Active,
		"released_at": a.ReleasedAt,
	})
	if res.Error != nil {
		return hostel.Allocation{}, core.NewStorageError(res.Error, "updating allocation")
	}
	if res.RowsAffected == 0 {
		return hostel.Allocation{}, hostel.ErrNotAllocated
	}
	return a, nil
}
