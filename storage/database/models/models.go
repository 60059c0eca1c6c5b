// Package models holds the gorm row types of every table.
// Keep them in sync with ../migrations: SQLite databases are created from these structs,
// Postgres ones from the migrations.
package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type User struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Name         string  `gorm:"size:150;not null"`
	Username     *string `gorm:"size:150;uniqueIndex"`
	Email        *string `gorm:"size:254;uniqueIndex"`
	IsActive     bool    `gorm:"not null"`
	Roles        string  `gorm:"size:255;not null;default:''"` // ",role1,role2,"
	PasswordHash []byte  `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

type Organization struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null"`
	Code        string `gorm:"size:20;uniqueIndex;not null"`
	AdminID     string `gorm:"size:36;index;not null"`
	Description string `gorm:"type:text"`
	Location    string `gorm:"size:200"`
	IsActive    bool   `gorm:"not null"`
	CreatedAt   time.Time
}

type Student struct {
	ID            uint    `gorm:"primaryKey"`
	StudentID     string  `gorm:"size:20;uniqueIndex;not null"`
	UserID        *string `gorm:"size:36;index"`
	Name          string  `gorm:"size:150;not null"`
	Email         string  `gorm:"size:254;index;not null"`
	Phone         string  `gorm:"size:20"`
	Course        string  `gorm:"size:100;not null"`
	Year          int     `gorm:"not null;default:1"`
	AdmissionDate time.Time
	Status        string          `gorm:"size:20;not null;default:'active'"`
	GPA           float64         `gorm:"not null;default:0"`
	AttendancePct float64         `gorm:"not null;default:100"`
	RiskScore     float64         `gorm:"not null;default:0"`
	TotalFeesPaid decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Application struct {
	ID           uint    `gorm:"primaryKey"`
	UserID       *string `gorm:"size:36;index"`
	FirstName    string  `gorm:"size:100;not null"`
	LastName     string  `gorm:"size:100;not null"`
	Email        string  `gorm:"size:254;not null"`
	Phone        string  `gorm:"size:20"`
	Course       string  `gorm:"size:100;not null"`
	Marks        float64 `gorm:"not null;default:0"`
	Organization string  `gorm:"size:100"`
	Status       string  `gorm:"size:20;index;not null;default:'pending'"`
	SubmittedAt  time.Time
	ReviewedAt   *time.Time
	ReviewedBy   *string `gorm:"size:36"`
}

type AttendanceRecord struct {
	ID        uint           `gorm:"primaryKey"`
	StudentID string         `gorm:"size:20;not null;uniqueIndex:idx_attendance_student_subject_date"`
	Subject   string         `gorm:"size:100;not null;uniqueIndex:idx_attendance_student_subject_date"`
	Date      datatypes.Date `gorm:"not null;uniqueIndex:idx_attendance_student_subject_date"`
	Status    string         `gorm:"size:10;not null"`
	CreatedAt time.Time
}

type ExamRecord struct {
	ID        uint    `gorm:"primaryKey"`
	StudentID string  `gorm:"size:20;not null;uniqueIndex:idx_exam_student_subject_semester"`
	Subject   string  `gorm:"size:100;not null;uniqueIndex:idx_exam_student_subject_semester"`
	Semester  int     `gorm:"not null;uniqueIndex:idx_exam_student_subject_semester"`
	Marks     float64 `gorm:"not null"`
	Grade     string  `gorm:"size:2;not null"`
	CreatedAt time.Time
}

type FeePayment struct {
	ID            uint            `gorm:"primaryKey"`
	StudentID     string          `gorm:"size:20;index;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	FeeType       string          `gorm:"size:50;not null"`
	ReceiptNumber string          `gorm:"size:40;uniqueIndex;not null"`
	Status        string          `gorm:"size:20;not null;default:'paid'"`
	PaidAt        time.Time       `gorm:"index"`
}

type Wallet struct {
	ID        uint            `gorm:"primaryKey"`
	StudentID string          `gorm:"size:20;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WalletTransaction struct {
	ID          uint            `gorm:"primaryKey"`
	StudentID   string          `gorm:"size:20;index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Kind        string          `gorm:"size:10;not null"`
	Description string          `gorm:"size:255;not null"`
	CreatedAt   time.Time
}

type Reward struct {
	ID         uint            `gorm:"primaryKey"`
	StudentID  string          `gorm:"size:20;index;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Reason     string          `gorm:"size:255;not null"`
	IsRedeemed bool            `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

type LibraryBook struct {
	ID          uint            `gorm:"primaryKey"`
	Title       string          `gorm:"size:200;not null"`
	Author      string          `gorm:"size:150;not null"`
	ISBN        string          `gorm:"size:20;uniqueIndex;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Category    string          `gorm:"size:50"`
	Stock       int             `gorm:"not null;default:0"`
	Description string          `gorm:"type:text"`
	CreatedAt   time.Time
}

type LibraryPurchase struct {
	ID          uint            `gorm:"primaryKey"`
	StudentID   string          `gorm:"size:20;index;not null"`
	BookID      uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PurchasedAt time.Time
}

type HostelRoom struct {
	ID         uint   `gorm:"primaryKey"`
	RoomNumber string `gorm:"size:10;uniqueIndex;not null"`
	Floor      int    `gorm:"not null"`
	Capacity   int    `gorm:"not null;default:2"`
	Occupied   int    `gorm:"not null;default:0"`
	Status     string `gorm:"size:20;not null;default:'available'"`
}

type HostelAllocation struct {
	ID          uint   `gorm:"primaryKey"`
	RoomID      uint   `gorm:"index;not null"`
	StudentID   string `gorm:"size:20;index;not null"`
	Active      bool   `gorm:"not null"`
	AllocatedAt time.Time
	ReleasedAt  *time.Time
}

type Test struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"size:200;not null"`
	Description     string `gorm:"type:text"`
	CreatedBy       string `gorm:"size:36"`
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes int  `gorm:"not null;default:60"`
	MaxAttempts     int  `gorm:"not null;default:1"`
	IsActive        bool `gorm:"not null"`
	CreatedAt       time.Time
}

type TimetableSlot struct {
	ID       uint   `gorm:"primaryKey"`
	Day      string `gorm:"size:10;not null"`
	TimeSlot string `gorm:"size:20;not null"`
	Subject  string `gorm:"size:100;not null"`
	Teacher  string `gorm:"size:100;not null"`
	Room     string `gorm:"size:20;not null"`
	Year     int    `gorm:"index;not null"`
}

type Question struct {
	ID            uint           `gorm:"primaryKey"`
	TestID        uint           `gorm:"index;not null"`
	Text          string         `gorm:"type:text;not null"`
	Type          string         `gorm:"size:10;not null"`
	Options       datatypes.JSON `gorm:"type:json"`
	CorrectAnswer string         `gorm:"type:text;not null"`
	Points        int            `gorm:"not null;default:1"`
	Position      int            `gorm:"not null;default:0"`
}

type TestAttempt struct {
	ID          uint   `gorm:"primaryKey"`
	TestID      uint   `gorm:"index;not null"`
	StudentID   string `gorm:"size:20;index;not null"`
	StartedAt   time.Time
	SubmittedAt time.Time
	Score       int `gorm:"not null;default:0"`
	TotalPoints int `gorm:"not null;default:0"`
}

type Answer struct {
	ID           uint   `gorm:"primaryKey"`
	AttemptID    uint   `gorm:"index;not null"`
	QuestionID   uint   `gorm:"not null"`
	AnswerText   string `gorm:"type:text"`
	IsCorrect    bool   `gorm:"not null;default:false"`
	PointsEarned int    `gorm:"not null;default:0"`
}

// All lists every model, in dependency order, for AutoMigrate and table resets.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&Student{},
		&Application{},
		&AttendanceRecord{},
		&ExamRecord{},
		&FeePayment{},
		&Wallet{},
		&WalletTransaction{},
		&Reward{},
		&LibraryBook{},
		&LibraryPurchase{},
		&HostelRoom{},
		&HostelAllocation{},
		&Test{},
		&Question{},
		&TestAttempt{},
		&Answer{},
		&TimetableSlot{},
	}
}
