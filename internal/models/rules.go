package models

import "encoding/json"

// RuleType is the persisted rule_type column of rule_sets.
type RuleType string

const (
	RuleAvoidPair      RuleType = "avoid_pair"
	RuleForcePair      RuleType = "force_pair"
	RuleMinGoalkeepers RuleType = "min_goalkeepers"
	RuleMinDefenders   RuleType = "min_defenders"
	RuleBalanceRating  RuleType = "balance_rating"
)

// RuleRecord is an active rule row as handed over by a rule source, before compilation.
type RuleRecord struct {
	RuleType string          `json:"rule_type"`
	Data     json.RawMessage `json:"data"`
}

// Rule is a compiled balancing constraint. The set of implementations is closed:
// AvoidPair, ForcePair, MinGoalkeepers, MinDefenders and BalanceRating.
type Rule interface {
	Type() RuleType
	isRule()
}

// AvoidPair keeps two players on opposite squads.
type AvoidPair struct {
	PlayerA string
	PlayerB string
}

// ForcePair keeps two players on the same squad.
type ForcePair struct {
	PlayerA string
	PlayerB string
}

// MinGoalkeepers requires each squad to have at least Count players willing to keep goal.
type MinGoalkeepers struct {
	Count int
}

// MinDefenders requires each squad to field at least Count players in defensive positions.
type MinDefenders struct {
	Count int
}

// BalanceRating caps the gap between the squads' average ratings.
type BalanceRating struct {
	MaxGap float64
}

func (AvoidPair) Type() RuleType      { return RuleAvoidPair }
func (ForcePair) Type() RuleType      { return RuleForcePair }
func (MinGoalkeepers) Type() RuleType { return RuleMinGoalkeepers }
func (MinDefenders) Type() RuleType   { return RuleMinDefenders }
func (BalanceRating) Type() RuleType  { return RuleBalanceRating }

func (AvoidPair) isRule()      {}
func (ForcePair) isRule()      {}
func (MinGoalkeepers) isRule() {}
func (MinDefenders) isRule()   {}
func (BalanceRating) isRule()  {}
