// Package testutil sets up databases, services and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
)

var (
	confOnce sync.Once
	conf     *core.Config
)

// Config returns the TEST configuration. The email templates get parsed on first use.
func Config(t *testing.T) *core.Config {
	t.Helper()
	confOnce.Do(func() {
		t.Setenv("ENV", "TEST")
		conf = core.NewConfig()
		core.ParseEmailTemplates(conf, NewLogger())
	})
	return conf
}

type nopLogger struct{}

// NewLogger returns a core.Logger writing nothing.
func NewLogger() core.Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(msg string, _ ...interface{}) {
	panic(msg)
}

// NewMailService returns a silent email service recording SentMessages synchronously.
func NewMailService(t *testing.T) core.EmailService {
	t.Helper()
	emailsvc.ResetSentMessages()
	return emailsvc.NewConsoleServiceMock(Config(t), NewLogger())
}

// PrepareDB opens a fresh migrated in-memory database, closed when the test ends.
func PrepareDB(t *testing.T) (*database.DB, *database.Store) {
	t.Helper()
	db, err := database.OpenDSN("file::memory:", log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db, database.NewStore(db)
}

// DefaultPassword is set on users created by CreateUser without a password.
const DefaultPassword = "Chuo-Test-Pass1"

// CreateUser inserts a user; an empty pwd stores DefaultPassword since every user has a hash.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = DefaultPassword
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

var studentSeq int

// CreateStudent inserts an active student profile with no records, owned by userID when given.
func CreateStudent(t *testing.T, store *database.Store, name, course string, userID ...string) student.Profile {
	t.Helper()
	studentSeq++
	now := time.Now().UTC()
	var uid string
	if len(userID) > 0 {
		uid = userID[0]
	}
	p, err := gormrepo.NewStudentRepository(store).CreateProfile(context.Background(), student.Profile{
		StudentID:     fmt.Sprintf("STU%s%04d", now.Format("20060102"), studentSeq),
		UserID:        uid,
		Name:          name,
		Email:         fmt.Sprintf("student%d@college.edu", studentSeq),
		Course:        course,
		Year:          1,
		AdmissionDate: now,
		Status:        student.StatusActive,
		AttendancePct: 100,
		TotalFeesPaid: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return p
}
