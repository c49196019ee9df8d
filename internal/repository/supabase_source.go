package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/services"
)

const (
	signupColumns = "id,match_id,player_id,guest_player_id,status,signup_time," +
		"player_profiles(id,user_id,display_name,nickname,main_position,preferred_positions,overall_rating," +
		"footedness,goalkeeper_willingness,fitness_status,reliability_score,matches_played,goals,assists)," +
		"guest_players(id,display_name,notes)"
	matchColumns = "id,group_id,status,max_players,created_at,updated_at"
	ruleColumns  = "id,group_id,match_id,rule_type,data,is_active"
)

// SupabaseSource reads match data through the hosted database's PostgREST API with the service
// role key, the same way the web application reads it.
type SupabaseSource struct {
	client *supabase.Client
	logger *logrus.Logger
}

func NewSupabaseSource(url, serviceKey string, logger *logrus.Logger) (*SupabaseSource, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize supabase client: %w", err)
	}
	return &SupabaseSource{client: client, logger: logger}, nil
}

// PostgREST calls are not context aware; ctx is only checked before each call.

func (s *SupabaseSource) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matches []models.Match
	_, err := s.client.From("matches").
		Select(matchColumns, "", false).
		Eq("id", matchID).
		ExecuteTo(&matches)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	if len(matches) == 0 {
		return nil, services.ErrMatchNotFound
	}
	return &matches[0], nil
}

func (s *SupabaseSource) ListConfirmedSignups(ctx context.Context, matchID string) ([]models.Signup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var signups []models.Signup
	_, err := s.client.From("match_signups").
		Select(signupColumns, "", false).
		Eq("match_id", matchID).
		Eq("status", string(models.SignupConfirmed)).
		Order("signup_time", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&signups)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signups: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"match_id": matchID,
		"signups":  len(signups),
	}).Debug("Fetched confirmed signups from supabase")

	return signups, nil
}

func (s *SupabaseSource) ListActiveRules(ctx context.Context, groupID, matchID string) ([]models.RuleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []models.RuleSetRow
	_, err := s.client.From("rule_sets").
		Select(ruleColumns, "", false).
		Eq("is_active", "true").
		Or(fmt.Sprintf("group_id.eq.%s,match_id.eq.%s", groupID, matchID), "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}

	records := make([]models.RuleRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return records, nil
}
