package teamgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stitts-dev/picado/internal/models"
)

type rawAssignment struct {
	PlayerID string `json:"playerId"`
	Position string `json:"position"`
	Reason   string `json:"reason"`
}

// rawResponse keeps squads and score as pointers so absent fields are distinguishable from empty ones.
type rawResponse struct {
	Dark         *[]rawAssignment `json:"dark"`
	Light        *[]rawAssignment `json:"light"`
	Reasoning    string           `json:"reasoning"`
	BalanceScore *float64         `json:"balanceScore"`
	Warnings     []string         `json:"warnings"`
}

// ValidateResponse parses a raw balancing reply and checks it against the roster it was built
// for. Hard failures are returned as errors; recoverable anomalies are repaired and reported in
// the result's warnings, after any warnings the engine itself produced.
func ValidateResponse(raw string, roster []models.Player, rules []models.Rule) (*models.GeneratedTeams, error) {
	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	index := models.NewRoster(roster)
	result := &models.GeneratedTeams{
		Reasoning: resp.Reasoning,
		Warnings:  make([]string, 0, len(resp.Warnings)),
	}
	for _, w := range resp.Warnings {
		if strings.TrimSpace(w) != "" {
			result.Warnings = append(result.Warnings, w)
		}
	}

	placed := make(map[string]models.SquadName, len(roster))
	squads := []struct {
		name models.SquadName
		raw  []rawAssignment
		dst  *[]models.TeamAssignment
	}{
		{models.SquadDark, *resp.Dark, &result.Dark},
		{models.SquadLight, *resp.Light, &result.Light},
	}

	for _, squad := range squads {
		assignments := make([]models.TeamAssignment, 0, len(squad.raw))
		for _, ra := range squad.raw {
			id := strings.TrimSpace(ra.PlayerID)
			if id == "" {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Removed an assignment with no player id from the %s team", squad.name))
				continue
			}
			player, ok := index[id]
			if !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Removed assignment for unknown player id %q from the %s team", id, squad.name))
				continue
			}
			if prev, dup := placed[id]; dup {
				if prev == squad.name {
					return nil, &InconsistentAssignmentError{Reason: fmt.Sprintf("assigned twice to the %s team", squad.name), PlayerID: id}
				}
				return nil, &InconsistentAssignmentError{Reason: "assigned to both teams", PlayerID: id}
			}
			placed[id] = squad.name

			pos := models.Position(strings.ToUpper(strings.TrimSpace(ra.Position)))
			if !pos.IsValid() {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s had invalid position %q; using %s", player.DisplayName, ra.Position, player.MainPosition))
				pos = player.MainPosition
			}
			assignments = append(assignments, models.TeamAssignment{PlayerID: id, Position: pos, Reason: ra.Reason})
		}
		if len(assignments) == 0 {
			return nil, &InconsistentAssignmentError{Reason: fmt.Sprintf("the %s team has no players", squad.name)}
		}
		*squad.dst = assignments
	}

	var missingNames []string
	for _, p := range roster {
		if _, ok := placed[p.ID]; !ok {
			result.Unassigned = append(result.Unassigned, p.ID)
			missingNames = append(missingNames, p.DisplayName)
		}
	}
	if len(missingNames) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unassigned players: %s", strings.Join(missingNames, ", ")))
	}

	result.BalanceScore, result.Warnings = clampScore(resp.BalanceScore, result.Warnings)

	if diff := len(result.Dark) - len(result.Light); diff > 1 || diff < -1 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Team sizes are uneven: dark has %d players, light has %d", len(result.Dark), len(result.Light)))
	}

	result.Warnings = append(result.Warnings, ruleViolations(result, roster, rules)...)
	return result, nil
}

func parseResponse(raw string) (*rawResponse, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, &MalformedResponseError{Reason: "empty response", Raw: raw}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var resp rawResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, &MalformedResponseError{Reason: "response is not a valid JSON object", Cause: err, Raw: raw}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedResponseError{Reason: "unexpected data after the JSON object", Raw: raw}
	}
	if resp.Dark == nil {
		return nil, &MalformedResponseError{Reason: `missing "dark" array`, Raw: raw}
	}
	if resp.Light == nil {
		return nil, &MalformedResponseError{Reason: `missing "light" array`, Raw: raw}
	}
	return &resp, nil
}

// stripCodeFence removes a single ```/```json fence wrapping the whole text.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return text
	}
	return strings.TrimSpace(body[nl+1:])
}

func clampScore(score *float64, warnings []string) (float64, []string) {
	switch {
	case score == nil:
		return 0, append(warnings, "Balance score missing from response; defaulting to 0")
	case *score > 1:
		return 1, append(warnings, fmt.Sprintf("Balance score %.2f was above 1 and has been clamped to 1.0", *score))
	case *score < 0:
		return 0, append(warnings, fmt.Sprintf("Balance score %.2f was below 0 and has been clamped to 0.0", *score))
	}
	return *score, warnings
}

func ruleViolations(teams *models.GeneratedTeams, roster []models.Player, rules []models.Rule) []string {
	if len(rules) == 0 {
		return nil
	}
	index := models.NewRoster(roster)
	side := make(map[string]models.SquadName, len(roster))
	for _, a := range teams.Dark {
		side[a.PlayerID] = models.SquadDark
	}
	for _, a := range teams.Light {
		side[a.PlayerID] = models.SquadLight
	}

	var warnings []string
	for _, r := range rules {
		switch rule := r.(type) {
		case models.AvoidPair:
			sa, okA := side[rule.PlayerA]
			sb, okB := side[rule.PlayerB]
			if okA && okB && sa == sb {
				warnings = append(warnings, fmt.Sprintf("Rule violated: %s and %s were placed on the same team",
					index[rule.PlayerA].DisplayName, index[rule.PlayerB].DisplayName))
			}
		case models.ForcePair:
			sa, okA := side[rule.PlayerA]
			sb, okB := side[rule.PlayerB]
			if okA && okB && sa != sb {
				warnings = append(warnings, fmt.Sprintf("Rule violated: %s and %s were placed on different teams",
					index[rule.PlayerA].DisplayName, index[rule.PlayerB].DisplayName))
			}
		case models.MinGoalkeepers:
			for _, name := range []models.SquadName{models.SquadDark, models.SquadLight} {
				if n := countGoalkeepers(teams.Squad(name), index); n < rule.Count {
					warnings = append(warnings, fmt.Sprintf("Rule violated: %s team has %d willing goalkeepers, at least %d required", name, n, rule.Count))
				}
			}
		case models.MinDefenders:
			for _, name := range []models.SquadName{models.SquadDark, models.SquadLight} {
				if n := countDefenders(teams.Squad(name)); n < rule.Count {
					warnings = append(warnings, fmt.Sprintf("Rule violated: %s team has %d defenders, at least %d required", name, n, rule.Count))
				}
			}
		case models.BalanceRating:
			gap := ratingGap(teams, roster)
			if gap > rule.MaxGap {
				warnings = append(warnings, fmt.Sprintf("Rule violated: average rating gap %.2f exceeds the allowed %.2f", gap, rule.MaxGap))
			}
		}
	}
	return warnings
}

// countGoalkeepers counts players assigned in goal or with any goalkeeper willingness.
func countGoalkeepers(squad []models.TeamAssignment, index models.Roster) int {
	n := 0
	for _, a := range squad {
		if a.Position == models.PositionGK || index[a.PlayerID].GoalkeeperWillingness >= models.GKIfNeeded {
			n++
		}
	}
	return n
}

func countDefenders(squad []models.TeamAssignment) int {
	n := 0
	for _, a := range squad {
		if a.Position.IsDefensive() {
			n++
		}
	}
	return n
}
