package teamgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stitts-dev/picado/internal/models"
)

// BalanceRequest is the deterministic input handed to a TeamBalancer.
type BalanceRequest struct {
	Prompt         string   `json:"prompt"`
	RosterSize     int      `json:"rosterSize"`
	TeamSize       int      `json:"teamSize"`
	HasExtraPlayer bool     `json:"hasExtraPlayer"`
	PlayerIDs      []string `json:"playerIds"`
	Directives     []string `json:"directives"`
	Formation      string   `json:"formation"`
	RuleWarnings   []string `json:"ruleWarnings"`
}

// PromptHash identifies the prompt; equal inputs always hash equally.
func (r *BalanceRequest) PromptHash() string {
	sum := sha256.Sum256([]byte(r.Prompt))
	return hex.EncodeToString(sum[:])
}

// BuildBalanceRequest renders roster and rules into a balancing request. It has no side effects
// and identical inputs produce byte-identical prompts.
func BuildBalanceRequest(roster []models.Player, rules RuleSet) *BalanceRequest {
	index := models.NewRoster(roster)
	teamSize := len(roster) / 2

	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}

	directives := make([]string, 0, len(rules.Rules))
	for _, r := range rules.Rules {
		directives = append(directives, ruleDirective(r, index))
	}

	warnings := make([]string, len(rules.Warnings))
	copy(warnings, rules.Warnings)

	req := &BalanceRequest{
		RosterSize:     len(roster),
		TeamSize:       teamSize,
		HasExtraPlayer: len(roster)%2 == 1,
		PlayerIDs:      ids,
		Directives:     directives,
		Formation:      formationGuidance(teamSize),
		RuleWarnings:   warnings,
	}
	req.Prompt = renderPrompt(roster, req)
	return req
}

func renderPrompt(roster []models.Player, req *BalanceRequest) string {
	var b strings.Builder

	b.WriteString("You are an expert football (soccer) team balancer for amateur 7-a-side matches. ")
	b.WriteString("Your goal is to create two balanced teams that will have a competitive and fun match.\n\n")

	fmt.Fprintf(&b, "## Players Available (%d total, %d per team)\n\n", req.RosterSize, req.TeamSize)
	for _, p := range roster {
		b.WriteString(describePlayer(p))
	}
	if req.HasExtraPlayer {
		fmt.Fprintf(&b, "\nThe roster is odd: one team will have %d players and the other %d. ", req.TeamSize+1, req.TeamSize)
		b.WriteString("Give the extra player to whichever side keeps the match most even.\n")
	}

	b.WriteString("\n## Rules to Follow\n\n")
	if len(req.Directives) == 0 {
		b.WriteString("No special rules\n")
	}
	for _, d := range req.Directives {
		b.WriteString(d)
		b.WriteString("\n")
	}

	b.WriteString("\n## Formation Context\n\n")
	b.WriteString(req.Formation)
	b.WriteString("\n\n## Positions\n\n")
	for _, pos := range models.AllPositions {
		fmt.Fprintf(&b, "- %s: %s\n", pos, models.PositionDescriptions[pos])
	}

	b.WriteString(`
## Your Task

Create two balanced teams (Dark and Light) considering:
1. **Overall Rating Balance**: The average rating of both teams should be as close as possible
2. **Position Coverage**: Each team needs players who can play key positions (especially GK and defense)
3. **Complementary Skills**: Mix of attackers, midfielders, and defenders
4. **Footedness Distribution**: Balance left and right-footed players when possible
5. **Fitness Considerations**: Players with "limited" fitness should have lighter roles
6. **Player Preferences**: Respect goalkeeper willingness levels

## Response Format

Respond with a valid JSON object (no markdown, no code blocks, just the JSON):

{
  "dark": [
    {"playerId": "player-id", "position": "GK", "reason": "Brief reason for this assignment"}
  ],
  "light": [
    {"playerId": "player-id", "position": "ST", "reason": "Brief reason for this assignment"}
  ],
  "reasoning": "2-3 sentences explaining the overall balance strategy",
  "balanceScore": 0.95,
  "warnings": ["Any concerns about the team balance"]
}

The balanceScore should be between 0 and 1, where 1 means perfectly balanced.
`)
	fmt.Fprintf(&b, "Include ALL %d players exactly once, split evenly between the two teams, using the IDs given above.\n", req.RosterSize)
	b.WriteString("Use standard position abbreviations: ")
	for i, pos := range models.AllPositions {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(pos))
	}
	b.WriteString("\n")

	return b.String()
}

func describePlayer(p models.Player) string {
	var b strings.Builder

	fmt.Fprintf(&b, "- %s", p.DisplayName)
	if p.Nickname != nil && *p.Nickname != "" {
		fmt.Fprintf(&b, " (%s)", *p.Nickname)
	}
	fmt.Fprintf(&b, " [ID: %s]\n", p.ID)

	positions := p.Positions()
	codes := make([]string, len(positions))
	for i, pos := range positions {
		codes[i] = string(pos)
	}
	fmt.Fprintf(&b, "  Rating: %.1f/5 | Positions: %s | %s\n", p.OverallRating, strings.Join(codes, ", "), p.Footedness.Describe())
	fmt.Fprintf(&b, "  GK willingness: %s | Fitness: %s\n", p.GoalkeeperWillingness.Describe(), p.FitnessStatus)
	fmt.Fprintf(&b, "  Stats: %d matches, %d goals, %d assists | Reliability: %.0f\n", p.MatchesPlayed, p.Goals, p.Assists, p.ReliabilityScore)
	if p.IsGuest {
		b.WriteString("  (Guest player - less known)\n")
	}
	return b.String()
}

func ruleDirective(r models.Rule, index models.Roster) string {
	switch rule := r.(type) {
	case models.AvoidPair:
		return fmt.Sprintf("- AVOID putting %s and %s on the same team", nameWithID(index, rule.PlayerA), nameWithID(index, rule.PlayerB))
	case models.ForcePair:
		return fmt.Sprintf("- FORCE %s and %s to be on the same team", nameWithID(index, rule.PlayerA), nameWithID(index, rule.PlayerB))
	case models.MinGoalkeepers:
		return fmt.Sprintf("- Each team must have at least %d %s willing to be goalkeeper (any GK willingness other than \"never\")",
			rule.Count, plural(rule.Count, "player", "players"))
	case models.MinDefenders:
		return fmt.Sprintf("- Each team must field at least %d %s (CB, LB, RB or CDM)",
			rule.Count, plural(rule.Count, "defender", "defenders"))
	case models.BalanceRating:
		return fmt.Sprintf("- Keep the difference between the two teams' average ratings at or below %.2f", rule.MaxGap)
	}
	return fmt.Sprintf("- Respect the %s rule", r.Type())
}

func nameWithID(index models.Roster, id string) string {
	if p, ok := index[id]; ok {
		return fmt.Sprintf("%s [ID: %s]", p.DisplayName, id)
	}
	return fmt.Sprintf("[ID: %s]", id)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formationGuidance(teamSize int) string {
	switch teamSize {
	case 7:
		return "For 7-a-side, typical formations are 1-2-3-1 or 1-3-2-1 (GK + field players)."
	case 6:
		return "For 6-a-side, typical formations are 1-2-2-1 or 1-3-1-1 (GK + field players)."
	case 5:
		return "For 5-a-side, typical formations are 1-2-1-1 or 1-1-2-1 (GK + field players)."
	}
	return fmt.Sprintf("For %d-a-side, use one goalkeeper and spread the remaining %d field players across defense, midfield and attack.",
		teamSize, teamSize-1)
}
