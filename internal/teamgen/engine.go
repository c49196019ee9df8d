package teamgen

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/models"
)

// TeamBalancer sends a balancing request to the external reasoning service and returns its raw
// text reply.
type TeamBalancer interface {
	Balance(ctx context.Context, req *BalanceRequest) (string, error)
}

// Engine runs one balancing operation end to end: gate, build, call, validate.
type Engine struct {
	balancer TeamBalancer
	logger   *logrus.Logger
}

// NewEngine creates a balancing engine backed by balancer
func NewEngine(balancer TeamBalancer, logger *logrus.Logger) *Engine {
	return &Engine{
		balancer: balancer,
		logger:   logger,
	}
}

// Generate partitions roster into two squads. The balancer is called exactly once, and only after
// the roster passes the size and uniqueness gate.
func (e *Engine) Generate(ctx context.Context, roster []models.Player, rules RuleSet) (*models.GeneratedTeams, error) {
	req, err := e.Prepare(roster, rules)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, req, roster, rules)
}

// Prepare checks the roster and builds the request without contacting the reasoning service.
func (e *Engine) Prepare(roster []models.Player, rules RuleSet) (*BalanceRequest, error) {
	if err := checkRoster(roster); err != nil {
		return nil, err
	}
	return BuildBalanceRequest(roster, rules), nil
}

// Execute sends a prepared request and validates the reply. req must have been produced by
// Prepare for the same roster and rules.
func (e *Engine) Execute(ctx context.Context, req *BalanceRequest, roster []models.Player, rules RuleSet) (*models.GeneratedTeams, error) {
	log := e.logger.WithFields(logrus.Fields{
		"roster_size": req.RosterSize,
		"rules":       len(rules.Rules),
		"prompt_hash": req.PromptHash(),
	})

	start := time.Now()
	raw, err := e.balancer.Balance(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).WithField("duration_ms", elapsed.Milliseconds()).Warn("Balancing call failed")
		if _, ok := AsMalformedResponseError(err); ok {
			return nil, err
		}
		if _, ok := AsEngineUnavailableError(err); ok {
			return nil, err
		}
		return nil, &EngineUnavailableError{Cause: err}
	}

	teams, err := ValidateResponse(raw, roster, rules.Rules)
	if err != nil {
		log.WithError(err).Warn("Balancing response rejected")
		return nil, err
	}
	teams.Warnings = append(teams.Warnings, rules.Warnings...)

	log.WithFields(logrus.Fields{
		"duration_ms":   elapsed.Milliseconds(),
		"dark":          len(teams.Dark),
		"light":         len(teams.Light),
		"balance_score": teams.BalanceScore,
		"warnings":      len(teams.Warnings),
	}).Info("Generated balanced teams")

	return teams, nil
}

func checkRoster(roster []models.Player) error {
	if len(roster) < MinRosterSize {
		return &InvalidRosterError{Reason: fmt.Sprintf("need at least %d confirmed players, have %d", MinRosterSize, len(roster))}
	}
	seen := make(map[string]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			return &InvalidRosterError{Reason: "roster contains a player without an id"}
		}
		if seen[p.ID] {
			return &InvalidRosterError{Reason: fmt.Sprintf("player %s appears more than once", p.ID)}
		}
		seen[p.ID] = true
	}
	return nil
}
