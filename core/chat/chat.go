// Package chat is the rule-based help assistant of the portal.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/chuo/core/user"
)

const (
	defaultReply = "I'm here to help! Please ask me about any of the available features."
	adminHelp    = "I'm here to help! You can ask me about student management, applications, analytics, revenue tracking, or any other administrative tasks."
	studentHelp  = "I'm here to help! You can ask me about fees, hostel, exams, attendance, your wallet, library, or any other student-related queries."
)

// Snapshot carries the live figures quoted in replies.
// Admin replies read the institution fields, student replies the student ones.
type Snapshot struct {
	TotalStudents       int
	PendingApplications int
	TotalRevenue        decimal.Decimal

	Name       string
	Course     string
	Attendance float64
	GPA        float64
	FeesPaid   decimal.Decimal
}

type rule struct {
	keyword string
	reply   func(s Snapshot) string
}

func static(reply string) func(Snapshot) string {
	return func(Snapshot) string { return reply }
}

var adminRules = []rule{
	{"dashboard", func(s Snapshot) string {
		return fmt.Sprintf("Your admin dashboard shows real-time statistics: %d students, %d pending applications, and %s total revenue.",
			s.TotalStudents, s.PendingApplications, rupees(s.TotalRevenue))
	}},
	{"students", func(s Snapshot) string {
		return fmt.Sprintf("You can view all %d student details, attendance records, and academic performance in the Students section.", s.TotalStudents)
	}},
	{"applications", func(s Snapshot) string {
		return fmt.Sprintf("There are %d pending applications waiting for your review in the Applications section.", s.PendingApplications)
	}},
	{"revenue", func(s Snapshot) string {
		return fmt.Sprintf("Total revenue collected: %s. Revenue data is displayed in the dashboard with monthly and total revenue figures.", rupees(s.TotalRevenue))
	}},
	{"attendance", static("Student attendance is tracked in real-time. You can view detailed reports and analytics in the Attendance section.")},
	{"analytics", static("Analytics section provides insights into student performance, dropout predictions, and system health metrics.")},
	{"hostel", static("Hostel management allows you to allocate rooms, track occupancy rates, and manage hostel applications.")},
	{"fees", static("Fee collection and payment tracking is available in the Fees section with real-time payment status.")},
	{"exams", static("Exam management includes creating test schedules, uploading questions, and tracking student performance.")},
	{"help", static("I can help you with student management, applications, analytics, revenue tracking, and system administration.")},
}

var studentRules = []rule{
	{"fee", func(s Snapshot) string {
		return "You can pay your fees online through the payment gateway. Your current balance: " + rupees(s.FeesPaid)
	}},
	{"hostel", static("Hostel allocation is done on a first-come, first-served basis. Use the interactive map to select your preferred hostel.")},
	{"exam", static("Exam schedules are available in the timetable section. You can also take online tests assigned by your admin.")},
	{"attendance", func(s Snapshot) string {
		return fmt.Sprintf("Your current attendance: %.1f%%. Minimum 75%% is required to appear for exams.", s.Attendance)
	}},
	{"admission", static("New admissions are processed through the admissions portal. Upload your documents for faster processing.")},
	{"wallet", static("Your digital wallet allows you to pay fees and purchase books from the library. Check your balance in the wallet section.")},
	{"library", static("The digital library has books available for purchase using your wallet balance. Browse the catalog in the library section.")},
	{"profile", static("Update your profile information in the Profile section. Keep your contact details updated.")},
	{"gpa", func(s Snapshot) string {
		return fmt.Sprintf("Your current GPA: %.2f. Focus on improving your academic performance.", s.GPA)
	}},
	{"help", static("I can help you with fees, hostel, exams, attendance, wallet, library, and general queries.")},
}

// Assistant answers portal questions by keyword.
type Assistant struct {
	nowFunc func() time.Time
}

func NewAssistant() *Assistant {
	return &Assistant{nowFunc: time.Now}
}

// NewAssistantWithClock returns an Assistant telling the time from now.
func NewAssistantWithClock(now func() time.Time) *Assistant {
	return &Assistant{nowFunc: now}
}

// Reply answers message for a user holding role; admin roles get the administration topics.
// Keywords match anywhere in the message, case-insensitively: the first matching topic gives the reply,
// unless a conversational phrase overrides it.
func (a *Assistant) Reply(role string, snap Snapshot, message string) string {
	msg := strings.ToLower(message)
	admin := strings.HasPrefix(role, user.RoleAdmin)

	rules := studentRules
	if admin {
		rules = adminRules
	}
	reply := defaultReply
	for _, r := range rules {
		if strings.Contains(msg, r.keyword) {
			reply = r.reply(snap)
			break
		}
	}

	if override, ok := a.override(admin, snap, msg); ok {
		reply = override
	}

	if reply == defaultReply {
		if admin {
			return adminHelp
		}
		return studentHelp
	}
	return reply
}

func (a *Assistant) override(admin bool, snap Snapshot, msg string) (string, bool) {
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("time", "date"):
		return "Current time is " + a.nowFunc().Format("2006-01-02 15:04:05"), true
	case has("weather"):
		return "I don't have access to weather information, but I can help you with academic matters!", true
	case has("hello", "hi"):
		if admin {
			return "Hello! Welcome to the College ERP admin panel. How can I assist you with system management today?", true
		}
		name := snap.Name
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf("Hello %s! Welcome to your student portal. How can I help you today?", name), true
	case has("how are you"):
		return "I'm doing great! I'm here to help you with all your academic and administrative needs. What can I assist you with?", true
	case has("thank"):
		return "You're welcome! I'm always here to help. Is there anything else you'd like to know?", true
	case has("goodbye", "bye"):
		return "Goodbye! Have a great day and feel free to come back anytime you need help!", true
	case has("status"):
		if admin {
			return fmt.Sprintf("System status: All systems operational. %d students, %d pending applications.",
				snap.TotalStudents, snap.PendingApplications), true
		}
		return fmt.Sprintf("Your status: %.1f%% attendance, %.2f GPA, %s fees paid.", snap.Attendance, snap.GPA, rupees(snap.FeesPaid)), true
	case has("problem", "issue"):
		return "I understand you're facing an issue. Please describe the problem in detail, and I'll help you resolve it or direct you to the right resources.", true
	case has("contact"):
		return "For technical support, contact the IT department. For academic queries, contact your course coordinator. For administrative issues, contact the admin office.", true
	case has("deadline"):
		return "Check the important dates section in your dashboard for upcoming deadlines. You can also view exam schedules and fee payment deadlines there.", true
	case has("library") && has("book"):
		return "You can search for books in the digital library, check availability, and purchase them using your wallet balance. Some books may also be available for free download.", true
	case has("payment"):
		return "You can make payments through the secure payment gateway. All major credit cards, debit cards, and UPI are accepted. Your payment history is available in the wallet section.", true
	case has("grade", "result"):
		return "Your grades and results are available in the academic section. You can view your GPA, individual subject marks, and overall performance there.", true
	case has("schedule"):
		return "Your class schedule, exam timetable, and important dates are available in the timetable section. You can also set reminders for important events.", true
	case has("notification"):
		return "You'll receive notifications for important updates, exam schedules, fee reminders, and system announcements. Check your notification center regularly.", true
	case has("password", "login"):
		return "For password reset or login issues, contact the IT support team. They can help you regain access to your account securely.", true
	case has("emergency"):
		return "For emergencies, contact the campus security at +91-XXX-XXXX-XXXX or visit the admin office immediately. Your safety is our priority.", true
	}
	return "", false
}

// rupees formats d as ₹1,234.50.
func rupees(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-₹" + b.String() + frac
	}
	return "₹" + b.String() + frac
}
