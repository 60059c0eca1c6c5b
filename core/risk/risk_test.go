package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		attendance float64
		gpa        float64
		hasPayment bool
		wantScore  float64
		wantLevel  Level
		wantRecs   []string
	}{
		{name: "healthy student", attendance: 80, gpa: 7, hasPayment: true, wantScore: 0, wantLevel: LevelLow, wantRecs: []string{}},
		{name: "thresholds are inclusive", attendance: 75, gpa: 6, hasPayment: true, wantScore: 0, wantLevel: LevelLow, wantRecs: []string{}},
		{name: "no payment only", attendance: 100, gpa: 10, hasPayment: false, wantScore: 0.06, wantLevel: LevelLow, wantRecs: []string{}},
		{
			name: "struggling student", attendance: 50, gpa: 4, hasPayment: false,
			wantScore: 0.4*(25.0/75) + 0.4*(2.0/6) + 0.2*0.3, wantLevel: LevelMedium,
			wantRecs: []string{RecommendAttendance, RecommendAcademics},
		},
		{
			name: "low attendance only", attendance: 30, gpa: 9, hasPayment: true,
			wantScore: 0.4 * (45.0 / 75), wantLevel: LevelLow,
			wantRecs: []string{RecommendAttendance},
		},
		{
			name: "low gpa only", attendance: 90, gpa: 0, hasPayment: true,
			wantScore: 0.4, wantLevel: LevelMedium,
			wantRecs: []string{RecommendAcademics},
		},
		{
			name: "worst case", attendance: 0, gpa: 0, hasPayment: false,
			wantScore: 0.86, wantLevel: LevelHigh,
			wantRecs: []string{RecommendAttendance, RecommendAcademics, RecommendCounseling, RecommendSupport},
		},
		{
			name: "worst case with payment stays below counseling", attendance: 0, gpa: 0, hasPayment: true,
			wantScore: 0.8, wantLevel: LevelHigh,
			wantRecs: []string{RecommendAttendance, RecommendAcademics},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.attendance, tt.gpa, tt.hasPayment)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantRecs, got.Recommendations)
		})
	}
}

func TestCompute_Bounds(t *testing.T) {
	for att := 0.0; att <= 100; att += 2.5 {
		for gpa := 0.0; gpa <= 10; gpa += 0.25 {
			for _, paid := range []bool{true, false} {
				score := Compute(att, gpa, paid).Score
				if score < 0 || score > 1 {
					t.Fatalf("Compute(%v, %v, %v) = %v; want a score in [0, 1]", att, gpa, paid, score)
				}
			}
		}
	}
}

func TestIsHighRisk(t *testing.T) {
	assert.False(t, IsHighRisk(0.7))
	assert.True(t, IsHighRisk(0.7000001))
	assert.Equal(t, LevelMedium, LevelOf(0.7))
	assert.Equal(t, LevelLow, LevelOf(0.3))
}
