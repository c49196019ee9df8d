package teamgen

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/picado/internal/models"
)

// TeamMetrics are descriptive statistics for one squad.
type TeamMetrics struct {
	PlayerCount      int                     `json:"playerCount"`
	AverageRating    float64                 `json:"averageRating"`
	RatingStdDev     float64                 `json:"ratingStdDev"`
	PositionCoverage map[models.Position]int `json:"positionCoverage"`
	LeftFooted       int                     `json:"leftFooted"`
	RightFooted      int                     `json:"rightFooted"`
	GuestCount       int                     `json:"guestCount"`
}

// BalanceReport compares both squads independently of the engine's own score.
type BalanceReport struct {
	Dark      TeamMetrics `json:"dark"`
	Light     TeamMetrics `json:"light"`
	RatingGap float64     `json:"ratingGap"`
	// EstimatedScore is 1 - gap/5, clamped to [0,1].
	EstimatedScore float64 `json:"estimatedScore"`
	ReportedScore  float64 `json:"reportedScore"`
}

// CalculateTeamMetrics summarizes a squad. Assignments whose player is not on the roster are
// skipped entirely.
func CalculateTeamMetrics(squad []models.TeamAssignment, roster []models.Player) TeamMetrics {
	index := models.NewRoster(roster)
	m := TeamMetrics{PositionCoverage: make(map[models.Position]int)}

	ratings := make([]float64, 0, len(squad))
	for _, a := range squad {
		p, ok := index[a.PlayerID]
		if !ok {
			continue
		}
		ratings = append(ratings, p.OverallRating)
		m.PositionCoverage[a.Position]++
		switch p.Footedness {
		case models.FootLeft:
			m.LeftFooted++
		case models.FootRight:
			m.RightFooted++
		}
		if p.IsGuest {
			m.GuestCount++
		}
	}

	m.PlayerCount = len(ratings)
	if len(ratings) > 0 {
		m.AverageRating = stat.Mean(ratings, nil)
	}
	if len(ratings) > 1 {
		m.RatingStdDev = stat.PopStdDev(ratings, nil)
	}
	return m
}

// CompareSquads computes metrics for both squads of a result.
func CompareSquads(teams *models.GeneratedTeams, roster []models.Player) BalanceReport {
	report := BalanceReport{
		Dark:          CalculateTeamMetrics(teams.Dark, roster),
		Light:         CalculateTeamMetrics(teams.Light, roster),
		ReportedScore: teams.BalanceScore,
	}
	report.RatingGap = math.Abs(report.Dark.AverageRating - report.Light.AverageRating)
	report.EstimatedScore = math.Max(0, math.Min(1, 1-report.RatingGap/maxRating))
	return report
}

func ratingGap(teams *models.GeneratedTeams, roster []models.Player) float64 {
	dark := CalculateTeamMetrics(teams.Dark, roster)
	light := CalculateTeamMetrics(teams.Light, roster)
	return math.Abs(dark.AverageRating - light.AverageRating)
}
