// Package risk scores how likely a student is to drop out.
package risk

const (
	// HighRiskThreshold is the score above which a student counts as high-risk.
	HighRiskThreshold = 0.7
	// MediumRiskThreshold is the score above which a student counts as medium-risk.
	MediumRiskThreshold = 0.3
	// counselingThreshold is the score above which support actions are recommended.
	counselingThreshold = 0.8

	minAttendancePct = 75.0
	minGPA           = 6.0
	noPaymentPenalty = 0.3

	attendanceWeight = 0.4
	gpaWeight        = 0.4
	paymentWeight    = 0.2
)

// Recommendations, in the order they are issued.
const (
	RecommendAttendance = "Improve attendance - attend classes regularly"
	RecommendAcademics  = "Focus on academics - seek tutoring or study groups"
	RecommendCounseling = "Schedule counseling session"
	RecommendSupport    = "Consider academic support programs"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Assessment struct {
	Score           float64  `json:"risk_score"`
	Level           Level    `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}

// Compute blends attendance (0-100), GPA (0-10) and payment history into a score in [0, 1].
// Inputs are not clamped: out-of-range values give out-of-range scores.
func Compute(attendancePct, gpa float64, hasAnyPayment bool) Assessment {
	var attendanceRisk, gpaRisk, paymentRisk float64
	if attendancePct < minAttendancePct {
		attendanceRisk = (minAttendancePct - attendancePct) / minAttendancePct
	}
	if gpa < minGPA {
		gpaRisk = (minGPA - gpa) / minGPA
	}
	if !hasAnyPayment {
		paymentRisk = noPaymentPenalty
	}
	score := attendanceWeight*attendanceRisk + gpaWeight*gpaRisk + paymentWeight*paymentRisk

	recs := make([]string, 0, 4)
	if attendancePct < minAttendancePct {
		recs = append(recs, RecommendAttendance)
	}
	if gpa < minGPA {
		recs = append(recs, RecommendAcademics)
	}
	if score > counselingThreshold {
		recs = append(recs, RecommendCounseling, RecommendSupport)
	}

	return Assessment{Score: score, Level: LevelOf(score), Recommendations: recs}
}

func IsHighRisk(score float64) bool {
	return score > HighRiskThreshold
}

func LevelOf(score float64) Level {
	switch {
	case score > HighRiskThreshold:
		return LevelHigh
	case score > MediumRiskThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
