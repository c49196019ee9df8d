package teamgen

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/models"
)

// DefaultMaxRatingGap applies when a balance_rating rule carries no explicit gap.
const DefaultMaxRatingGap = 0.5

// RuleSet is the compiled, roster-scoped rule list plus the warnings produced while compiling.
type RuleSet struct {
	Rules    []models.Rule `json:"-"`
	Warnings []string      `json:"warnings"`
}

// rulePayload accepts every data shape the rule editor and older rows have persisted.
type rulePayload struct {
	PlayerIDA string   `json:"player_id_a"`
	PlayerIDB string   `json:"player_id_b"`
	PlayerIDs []string `json:"player_ids"`
	MinCount  *int     `json:"min_count"`
	Value     *float64 `json:"value"`
	MaxGap    *float64 `json:"max_gap"`
}

// RuleCompiler turns persisted rule rows into typed rules for one roster.
type RuleCompiler struct {
	logger *logrus.Logger
}

// NewRuleCompiler creates a rule compiler
func NewRuleCompiler(logger *logrus.Logger) *RuleCompiler {
	return &RuleCompiler{logger: logger}
}

// Compile treats group- and match-scoped records as a flat union. Rules that cannot constrain
// this roster are dropped; unrecognized types are dropped with a warning.
func (rc *RuleCompiler) Compile(records []models.RuleRecord, roster []models.Player) RuleSet {
	index := models.NewRoster(roster)
	set := RuleSet{Rules: []models.Rule{}, Warnings: []string{}}
	seen := make(map[string]bool)

	for _, rec := range records {
		var payload rulePayload
		if len(rec.Data) > 0 && string(rec.Data) != "null" {
			if err := json.Unmarshal(rec.Data, &payload); err != nil {
				set.Warnings = append(set.Warnings, fmt.Sprintf("Ignored %s rule with unreadable data", rec.RuleType))
				rc.logger.WithError(err).WithField("rule_type", rec.RuleType).Warn("Dropping rule with unreadable data")
				continue
			}
		}

		rule, warning := rc.compileOne(models.RuleType(rec.RuleType), payload, index, len(roster))
		if warning != "" {
			set.Warnings = append(set.Warnings, warning)
		}
		if rule == nil {
			continue
		}

		key := ruleKey(rule)
		if seen[key] {
			continue
		}
		seen[key] = true
		set.Rules = append(set.Rules, rule)
	}

	set.Warnings = append(set.Warnings, pairConflicts(set.Rules, index)...)

	rc.logger.WithFields(logrus.Fields{
		"records":  len(records),
		"compiled": len(set.Rules),
		"warnings": len(set.Warnings),
	}).Debug("Compiled balancing rules")

	return set
}

func (rc *RuleCompiler) compileOne(ruleType models.RuleType, payload rulePayload, index models.Roster, rosterSize int) (models.Rule, string) {
	switch ruleType {
	case models.RuleAvoidPair, models.RuleForcePair:
		a, b, ok := payload.pair()
		if !ok {
			return nil, fmt.Sprintf("Ignored %s rule: it must name exactly two players", ruleType)
		}
		pa, okA := index[a]
		_, okB := index[b]
		if !okA || !okB {
			rc.logger.WithFields(logrus.Fields{
				"rule_type": ruleType,
				"player_a":  a,
				"player_b":  b,
			}).Debug("Dropping pair rule for players outside the roster")
			return nil, ""
		}
		if a == b {
			return nil, fmt.Sprintf("Ignored %s rule: it names %s twice", ruleType, pa.DisplayName)
		}
		if ruleType == models.RuleAvoidPair {
			return models.AvoidPair{PlayerA: a, PlayerB: b}, ""
		}
		return models.ForcePair{PlayerA: a, PlayerB: b}, ""

	case models.RuleMinGoalkeepers, models.RuleMinDefenders:
		count := payload.count()
		if count < 1 {
			return nil, fmt.Sprintf("Ignored %s rule: minimum must be at least 1, got %d", ruleType, count)
		}
		var warning string
		if count*2 > rosterSize {
			warning = fmt.Sprintf("Rule %s asks for %d per team but only %d players are confirmed", ruleType, count, rosterSize)
		}
		if ruleType == models.RuleMinGoalkeepers {
			return models.MinGoalkeepers{Count: count}, warning
		}
		return models.MinDefenders{Count: count}, warning

	case models.RuleBalanceRating:
		gap := DefaultMaxRatingGap
		switch {
		case payload.MaxGap != nil:
			gap = *payload.MaxGap
		case payload.Value != nil:
			gap = *payload.Value
		}
		if gap <= 0 {
			return nil, fmt.Sprintf("Ignored %s rule: maximum gap must be positive", ruleType)
		}
		return models.BalanceRating{MaxGap: gap}, ""
	}

	rc.logger.WithField("rule_type", ruleType).Warn("Dropping unrecognized rule type")
	return nil, fmt.Sprintf("Ignored unrecognized rule type %q", ruleType)
}

func (p rulePayload) pair() (string, string, bool) {
	if p.PlayerIDA != "" || p.PlayerIDB != "" {
		return p.PlayerIDA, p.PlayerIDB, p.PlayerIDA != "" && p.PlayerIDB != ""
	}
	if len(p.PlayerIDs) == 2 && p.PlayerIDs[0] != "" && p.PlayerIDs[1] != "" {
		return p.PlayerIDs[0], p.PlayerIDs[1], true
	}
	return "", "", false
}

func (p rulePayload) count() int {
	switch {
	case p.MinCount != nil:
		return *p.MinCount
	case p.Value != nil:
		return int(*p.Value)
	}
	return 1
}

func ruleKey(r models.Rule) string {
	switch rule := r.(type) {
	case models.AvoidPair:
		a, b := orderedPair(rule.PlayerA, rule.PlayerB)
		return fmt.Sprintf("%s|%s|%s", rule.Type(), a, b)
	case models.ForcePair:
		a, b := orderedPair(rule.PlayerA, rule.PlayerB)
		return fmt.Sprintf("%s|%s|%s", rule.Type(), a, b)
	case models.MinGoalkeepers:
		return fmt.Sprintf("%s|%d", rule.Type(), rule.Count)
	case models.MinDefenders:
		return fmt.Sprintf("%s|%d", rule.Type(), rule.Count)
	case models.BalanceRating:
		return fmt.Sprintf("%s|%g", rule.Type(), rule.MaxGap)
	}
	return string(r.Type())
}

func orderedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func pairConflicts(rules []models.Rule, index models.Roster) []string {
	avoided := make(map[string]bool)
	for _, r := range rules {
		if avoid, ok := r.(models.AvoidPair); ok {
			a, b := orderedPair(avoid.PlayerA, avoid.PlayerB)
			avoided[a+"|"+b] = true
		}
	}

	var warnings []string
	for _, r := range rules {
		force, ok := r.(models.ForcePair)
		if !ok {
			continue
		}
		a, b := orderedPair(force.PlayerA, force.PlayerB)
		if avoided[a+"|"+b] {
			warnings = append(warnings, fmt.Sprintf("Conflicting rules: %s and %s are both kept apart and forced together",
				index[force.PlayerA].DisplayName, index[force.PlayerB].DisplayName))
		}
	}
	return warnings
}
