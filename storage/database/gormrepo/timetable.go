package gormrepo

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/timetable"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type timetableRepository struct {
	store *database.Store
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(store *database.Store) *timetableRepository {
	return &timetableRepository{store: store}
}

func toSlot(s models.TimetableSlot) timetable.Slot {
	return timetable.Slot{
		ID:       s.ID,
		Day:      s.Day,
		TimeSlot: s.TimeSlot,
		Subject:  s.Subject,
		Teacher:  s.Teacher,
		Room:     s.Room,
		Year:     s.Year,
	}
}

func (repo timetableRepository) CreateSlot(ctx context.Context, s timetable.Slot) (timetable.Slot, error) {
	row := models.TimetableSlot{
		Day:      s.Day,
		TimeSlot: s.TimeSlot,
		Subject:  s.Subject,
		Teacher:  s.Teacher,
		Room:     s.Room,
		Year:     s.Year,
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		return timetable.Slot{}, core.NewStorageError(err, "inserting timetable slot")
	}
	return toSlot(row), nil
}

func (repo timetableRepository) QuerySlots(ctx context.Context, year int) ([]timetable.Slot, error) {
	q := repo.store.Conn(ctx).Model(&models.TimetableSlot{})
	if year > 0 {
		q = q.Where("year = ?", year)
	}
	var rows []models.TimetableSlot
	if err := q.Order("year, id").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying timetable")
	}
	slots := make([]timetable.Slot, 0, len(rows))
	for _, s := range rows {
		slots = append(slots, toSlot(s))
	}
	return slots, nil
}

func (repo timetableRepository) CountSlots(ctx context.Context) (int, error) {
	var cnt int64
	if err := repo.store.Conn(ctx).Model(&models.TimetableSlot{}).Count(&cnt).Error; err != nil {
		return 0, core.NewStorageError(err, "counting timetable slots")
	}
	return int(cnt), nil
}
