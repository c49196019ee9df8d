package models

// Position is one of the 13 on-field position codes used for 7-a-side lineups.
type Position string

const (
	PositionGK  Position = "GK"
	PositionCB  Position = "CB"
	PositionLB  Position = "LB"
	PositionRB  Position = "RB"
	PositionCDM Position = "CDM"
	PositionCM  Position = "CM"
	PositionCAM Position = "CAM"
	PositionLM  Position = "LM"
	PositionRM  Position = "RM"
	PositionLW  Position = "LW"
	PositionRW  Position = "RW"
	PositionST  Position = "ST"
	PositionCF  Position = "CF"
)

// AllPositions lists the position vocabulary in display order.
var AllPositions = []Position{
	PositionGK, PositionCB, PositionLB, PositionRB, PositionCDM, PositionCM, PositionCAM,
	PositionLM, PositionRM, PositionLW, PositionRW, PositionST, PositionCF,
}

// PositionDescriptions is the short role description rendered into balancing prompts.
var PositionDescriptions = map[Position]string{
	PositionGK:  "Goalkeeper - last line of defense",
	PositionCB:  "Center Back - central defender",
	PositionLB:  "Left Back - left side defender",
	PositionRB:  "Right Back - right side defender",
	PositionCDM: "Defensive Midfielder - shields defense",
	PositionCM:  "Central Midfielder - box-to-box player",
	PositionCAM: "Attacking Midfielder - creative playmaker",
	PositionLM:  "Left Midfielder - left side midfield",
	PositionRM:  "Right Midfielder - right side midfield",
	PositionLW:  "Left Winger - left attacking flank",
	PositionRW:  "Right Winger - right attacking flank",
	PositionST:  "Striker - main goal scorer",
	PositionCF:  "Center Forward - target man",
}

// IsValid reports whether p is part of the position vocabulary.
func (p Position) IsValid() bool {
	_, ok := PositionDescriptions[p]
	return ok
}

// IsDefensive reports whether p counts toward a minimum-defenders quota.
func (p Position) IsDefensive() bool {
	switch p {
	case PositionCB, PositionLB, PositionRB, PositionCDM:
		return true
	}
	return false
}

// Footedness is a player's preferred foot.
type Footedness string

const (
	FootLeft  Footedness = "left"
	FootRight Footedness = "right"
	FootBoth  Footedness = "both"
)

// IsValid reports whether f is a known footedness value.
func (f Footedness) IsValid() bool {
	return f == FootLeft || f == FootRight || f == FootBoth
}

// Describe renders footedness the way prompts refer to it.
func (f Footedness) Describe() string {
	switch f {
	case FootBoth:
		return "ambidextrous"
	case FootLeft:
		return "left-footed"
	default:
		return "right-footed"
	}
}

// FitnessStatus is the self-reported physical condition of a player.
type FitnessStatus string

const (
	FitnessOK      FitnessStatus = "ok"
	FitnessLimited FitnessStatus = "limited"
	FitnessInjured FitnessStatus = "injured"
)

// GoalkeeperWillingness is an ordinal from 0 (never) to 3 (loves it).
type GoalkeeperWillingness int

const (
	GKNever GoalkeeperWillingness = iota
	GKIfNeeded
	GKCanDo
	GKLovesIt
)

var gkWillingnessLabels = [...]string{"never", "only if needed", "can do it", "loves it"}

// Describe renders the willingness label used in prompts.
func (w GoalkeeperWillingness) Describe() string {
	if w < GKNever || w > GKLovesIt {
		return gkWillingnessLabels[GKNever]
	}
	return gkWillingnessLabels[w]
}

// Player is the uniform roster entry fed to team balancing. Registered players and guests
// share this shape; IsGuest tells them apart.
type Player struct {
	ID                    string                `json:"id"`
	DisplayName           string                `json:"displayName"`
	Nickname              *string               `json:"nickname"`
	MainPosition          Position              `json:"mainPosition"`
	PreferredPositions    []Position            `json:"preferredPositions"`
	OverallRating         float64               `json:"overallRating"`
	Footedness            Footedness            `json:"footedness"`
	GoalkeeperWillingness GoalkeeperWillingness `json:"goalkeeperWillingness"`
	FitnessStatus         FitnessStatus         `json:"fitnessStatus"`
	ReliabilityScore      float64               `json:"reliabilityScore"`
	MatchesPlayed         int                   `json:"matchesPlayed"`
	Goals                 int                   `json:"goals"`
	Assists               int                   `json:"assists"`
	IsGuest               bool                  `json:"isGuest"`
}

// Positions returns the main position followed by the preferred positions, without repeats.
func (p Player) Positions() []Position {
	out := make([]Position, 0, len(p.PreferredPositions)+1)
	seen := map[Position]bool{p.MainPosition: true}
	out = append(out, p.MainPosition)
	for _, pos := range p.PreferredPositions {
		if seen[pos] {
			continue
		}
		seen[pos] = true
		out = append(out, pos)
	}
	return out
}

// Roster indexes players by id.
type Roster map[string]Player

// NewRoster builds an id index over players. Later duplicates overwrite earlier ones; callers
// that care about uniqueness check it before indexing.
func NewRoster(players []Player) Roster {
	r := make(Roster, len(players))
	for _, p := range players {
		r[p.ID] = p
	}
	return r
}
