package teamgen

import (
	"fmt"
	"math"

	"github.com/stitts-dev/picado/internal/models"
)

// MinRosterSize is the smallest roster balancing is attempted for.
const MinRosterSize = 4

const (
	guestRating      = 2.5
	guestReliability = 50
	maxRating        = 5.0
)

var guestPreferredPositions = []models.Position{models.PositionCM, models.PositionST, models.PositionCB}

// NormalizeRoster converts confirmed signups into uniform players. Registered signups copy their
// profile; guest signups get a fixed default attribute set.
func NormalizeRoster(signups []models.Signup) ([]models.Player, error) {
	players := make([]models.Player, 0, len(signups))
	seen := make(map[string]bool, len(signups))

	for i, s := range signups {
		var p models.Player
		switch {
		case s.Profile != nil && s.Guest != nil:
			return nil, &InvalidRosterError{Reason: fmt.Sprintf("signup %d (%s) references both a profile and a guest", i, s.ID)}
		case s.Profile != nil:
			p = playerFromProfile(*s.Profile)
		case s.Guest != nil:
			p = guestPlayer(*s.Guest)
		default:
			return nil, &InvalidRosterError{Reason: fmt.Sprintf("signup %d (%s) references neither a profile nor a guest", i, s.ID)}
		}

		if p.ID == "" {
			return nil, &InvalidRosterError{Reason: fmt.Sprintf("signup %d (%s) resolves to an empty player id", i, s.ID)}
		}
		if seen[p.ID] {
			return nil, &InvalidRosterError{Reason: fmt.Sprintf("player %s appears more than once", p.ID)}
		}
		seen[p.ID] = true
		players = append(players, p)
	}

	if len(players) < MinRosterSize {
		return nil, &InvalidRosterError{Reason: fmt.Sprintf("need at least %d confirmed players, have %d", MinRosterSize, len(players))}
	}
	return players, nil
}

// ExcludeInjured splits signups into those eligible for an active roster and the registered
// players currently flagged as injured. Guests are never injured.
func ExcludeInjured(signups []models.Signup) (kept, injured []models.Signup) {
	kept = make([]models.Signup, 0, len(signups))
	for _, s := range signups {
		if s.Profile != nil && models.FitnessStatus(s.Profile.FitnessStatus) == models.FitnessInjured {
			injured = append(injured, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, injured
}

func guestPlayer(g models.GuestPlayer) models.Player {
	preferred := make([]models.Position, len(guestPreferredPositions))
	copy(preferred, guestPreferredPositions)
	return models.Player{
		ID:                    g.ID,
		DisplayName:           g.DisplayName,
		MainPosition:          models.PositionCM,
		PreferredPositions:    preferred,
		OverallRating:         guestRating,
		Footedness:            models.FootRight,
		GoalkeeperWillingness: models.GKIfNeeded,
		FitnessStatus:         models.FitnessOK,
		ReliabilityScore:      guestReliability,
		IsGuest:               true,
	}
}

func playerFromProfile(pp models.PlayerProfile) models.Player {
	main := models.Position(pp.MainPosition)
	if !main.IsValid() {
		main = models.PositionCM
	}

	preferred := make([]models.Position, 0, len(pp.PreferredPositions))
	for _, code := range pp.PreferredPositions {
		if pos := models.Position(code); pos.IsValid() {
			preferred = append(preferred, pos)
		}
	}

	foot := models.Footedness(pp.Footedness)
	if !foot.IsValid() {
		foot = models.FootRight
	}

	fitness := models.FitnessStatus(pp.FitnessStatus)
	switch fitness {
	case models.FitnessOK, models.FitnessLimited, models.FitnessInjured:
	default:
		fitness = models.FitnessOK
	}

	willingness := pp.GoalkeeperWillingness
	if willingness < int(models.GKNever) {
		willingness = int(models.GKNever)
	}
	if willingness > int(models.GKLovesIt) {
		willingness = int(models.GKLovesIt)
	}

	return models.Player{
		ID:                    pp.ID,
		DisplayName:           pp.DisplayName,
		Nickname:              pp.Nickname,
		MainPosition:          main,
		PreferredPositions:    preferred,
		OverallRating:         math.Max(0, math.Min(maxRating, pp.OverallRating)),
		Footedness:            foot,
		GoalkeeperWillingness: models.GoalkeeperWillingness(willingness),
		FitnessStatus:         fitness,
		ReliabilityScore:      pp.ReliabilityScore,
		MatchesPlayed:         pp.MatchesPlayed,
		Goals:                 pp.Goals,
		Assists:               pp.Assists,
	}
}
