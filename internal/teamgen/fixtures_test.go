package teamgen_test

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func strPtr(s string) *string { return &s }

func player(id string, rating float64, main models.Position) models.Player {
	return models.Player{
		ID:                    id,
		DisplayName:           "Player " + id,
		MainPosition:          main,
		OverallRating:         rating,
		Footedness:            models.FootRight,
		GoalkeeperWillingness: models.GKIfNeeded,
		FitnessStatus:         models.FitnessOK,
		ReliabilityScore:      100,
	}
}

// sixPlayers is rated 4.0 down to 1.5 in steps of 0.5; p4 is a guest.
func sixPlayers() []models.Player {
	positions := []models.Position{
		models.PositionGK, models.PositionCB, models.PositionCM,
		models.PositionCM, models.PositionST, models.PositionLB,
	}
	roster := make([]models.Player, 0, 6)
	for i := 0; i < 6; i++ {
		p := player(fmt.Sprintf("p%d", i+1), 4.0-0.5*float64(i), positions[i])
		roster = append(roster, p)
	}
	roster[3].IsGuest = true
	roster[3].ReliabilityScore = 50
	roster[0].GoalkeeperWillingness = models.GKLovesIt
	return roster
}

// balancedReply splits sixPlayers into averages of 2.83 and 2.67.
const balancedReply = `{
  "dark": [
    {"playerId": "p1", "position": "GK", "reason": "Keeper"},
    {"playerId": "p4", "position": "CM", "reason": "Engine room"},
    {"playerId": "p5", "position": "ST", "reason": "Finisher"}
  ],
  "light": [
    {"playerId": "p2", "position": "CB", "reason": "Anchor"},
    {"playerId": "p3", "position": "CM", "reason": "Playmaker"},
    {"playerId": "p6", "position": "LB", "reason": "Width"}
  ],
  "reasoning": "Strongest and weakest players are spread across both sides.",
  "balanceScore": 0.9,
  "warnings": []
}`
