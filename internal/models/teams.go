package models

// SquadName identifies one of the two squads by jersey colour.
type SquadName string

const (
	SquadDark  SquadName = "dark"
	SquadLight SquadName = "light"
)

// ColorHex is the jersey colour persisted with the team row.
func (s SquadName) ColorHex() string {
	if s == SquadDark {
		return "#1a1a1a"
	}
	return "#ffffff"
}

// TeamAssignment places one player in a squad at a position.
type TeamAssignment struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
	Reason   string   `json:"reason"`
}

// GeneratedTeams is the validated output of a balancing run.
type GeneratedTeams struct {
	Dark         []TeamAssignment `json:"dark"`
	Light        []TeamAssignment `json:"light"`
	Reasoning    string           `json:"reasoning"`
	BalanceScore float64          `json:"balanceScore"`
	Warnings     []string         `json:"warnings"`
	// Unassigned holds roster ids that appear in neither squad.
	Unassigned []string `json:"unassigned,omitempty"`
}

// Squad returns the assignments for the named squad.
func (g *GeneratedTeams) Squad(name SquadName) []TeamAssignment {
	if name == SquadDark {
		return g.Dark
	}
	return g.Light
}

// AssignedIDs returns every player id placed in either squad, dark first.
func (g *GeneratedTeams) AssignedIDs() []string {
	ids := make([]string, 0, len(g.Dark)+len(g.Light))
	for _, a := range g.Dark {
		ids = append(ids, a.PlayerID)
	}
	for _, a := range g.Light {
		ids = append(ids, a.PlayerID)
	}
	return ids
}
