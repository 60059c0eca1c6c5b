package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
)

// demo accounts
const (
	seedAdminUsername   = "admin"
	seedAdminEmail      = "admin@college.edu"
	seedAdminPassword   = "admin123"
	seedStudentUsername = "student"
	seedStudentEmail    = "student@college.edu"
	seedStudentPassword = "student123"
)

// seed creates the demo admin and student (admitted through an approved application), the starter
// colleges, the library catalog, the hostel rooms and the first-year timetable.
// Running it again only resets the demo passwords.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	admin, err := cli.upsertUser(ctx, "Administrator", seedAdminUsername, seedAdminEmail, seedAdminPassword, true, nil)
	if err != nil {
		return errors.Wrap(err, "seeding admin")
	}
	stdUsr, err := cli.upsertUser(ctx, "Demo Student", seedStudentUsername, seedStudentEmail, seedStudentPassword, false, user.StudentRoles)
	if err != nil {
		return errors.Wrap(err, "seeding student")
	}

	p, err := cli.svcs.Student.GetByUser(ctx, stdUsr.ID)
	switch {
	case errors.Is(err, student.ErrNotFound):
		if p, err = cli.admit(ctx, stdUsr, admin); err != nil {
			return errors.Wrap(err, "admitting demo student")
		}
		cli.printf("student %s admitted\n", p.StudentID)
	case err != nil:
		return err
	}

	orgs, err := cli.svcs.Organization.Seed(ctx, admin.ID)
	if err != nil {
		return errors.Wrap(err, "seeding organizations")
	}
	books, err := cli.svcs.Library.Seed(ctx)
	if err != nil {
		return errors.Wrap(err, "seeding books")
	}
	rooms, err := cli.svcs.Hostel.SeedRooms(ctx)
	if err != nil {
		return errors.Wrap(err, "seeding rooms")
	}
	slots, err := cli.svcs.Timetable.Seed(ctx)
	if err != nil {
		return errors.Wrap(err, "seeding timetable")
	}
	cli.printf("seeded: %d organizations, %d books, %d rooms, %d timetable slots\n", orgs, books, rooms, slots)
	return nil
}

func (cli *commandLine) admit(ctx context.Context, usr, reviewer user.User) (student.Profile, error) {
	app, err := cli.svcs.Student.Apply(ctx, usr.ID, student.NewApplication{
		FirstName: "Demo",
		LastName:  "Student",
		Email:     usr.Email,
		Course:    "Computer Science",
		Marks:     75,
	})
	if err != nil {
		return student.Profile{}, err
	}
	_, p, err := cli.svcs.Student.Approve(ctx, app.ID, reviewer.ID)
	return p, err
}
