// Package timetable is the weekly class schedule.
package timetable

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

// Days in schedule order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type (
	Slot struct {
		ID       uint   `json:"id"`
		Day      string `json:"day"`
		TimeSlot string `json:"time_slot"`
		Subject  string `json:"subject"`
		Teacher  string `json:"teacher"`
		Room     string `json:"room"`
		Year     int    `json:"year"`
	}

	NewSlot struct {
		Day      string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
		TimeSlot string `json:"time_slot" validate:"required,max=20"`
		Subject  string `json:"subject" validate:"required,max=100"`
		Teacher  string `json:"teacher" validate:"required,max=100"`
		Room     string `json:"room" validate:"required,max=20"`
		Year     int    `json:"year" validate:"gte=1,lte=6"`
	}

	Repository interface {
		CreateSlot(ctx context.Context, s Slot) (Slot, error)
		// QuerySlots returns the slots of year, every year when 0.
		QuerySlots(ctx context.Context, year int) ([]Slot, error)
		CountSlots(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func (ns *NewSlot) Validate(validate *validator.Validate) error {
	ns.Day = core.CleanString(ns.Day)
	ns.TimeSlot = core.CleanString(ns.TimeSlot)
	ns.Subject = core.CleanString(ns.Subject)
	ns.Teacher = core.CleanString(ns.Teacher)
	ns.Room = core.CleanString(ns.Room)
	return validate.Struct(ns)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Add(ctx context.Context, ns NewSlot) (Slot, error) {
	return svc.repo.CreateSlot(ctx, Slot{
		Day:      ns.Day,
		TimeSlot: ns.TimeSlot,
		Subject:  ns.Subject,
		Teacher:  ns.Teacher,
		Room:     ns.Room,
		Year:     ns.Year,
	})
}

// Week lists the schedule of year, or of every year when year is 0, from Monday morning on.
func (svc *Service) Week(ctx context.Context, year int) ([]Slot, error) {
	slots, err := svc.repo.QuerySlots(ctx, year)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := dayIndex(slots[i].Day), dayIndex(slots[j].Day)
		if di != dj {
			return di < dj
		}
		return slots[i].TimeSlot < slots[j].TimeSlot
	})
	return slots, nil
}

func dayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return len(Days)
}

var (
	seedSubjects  = []string{"Mathematics", "Physics", "Chemistry", "English", "Computer Science"}
	seedTeachers  = []string{"Dr. Smith", "Prof. Johnson", "Dr. Brown", "Ms. Davis", "Mr. Wilson"}
	seedTimeSlots = []string{"09:00-10:00", "10:00-11:00", "11:00-12:00", "14:00-15:00", "15:00-16:00"}
)

// Seed fills an empty timetable with the first-year week and returns the number of slots added.
func (svc *Service) Seed(ctx context.Context) (int, error) {
	cnt, err := svc.repo.CountSlots(ctx)
	if err != nil || cnt > 0 {
		return 0, err
	}
	n := 0
	for _, day := range Days[:5] {
		for i, ts := range seedTimeSlots {
			_, err := svc.Add(ctx, NewSlot{
				Day:      day,
				TimeSlot: ts,
				Subject:  seedSubjects[i%len(seedSubjects)],
				Teacher:  seedTeachers[i%len(seedTeachers)],
				Room:     fmt.Sprintf("R%02d", i+1),
				Year:     1,
			})
			if err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
