package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/teamgen"
	"github.com/stitts-dev/picado/pkg/config"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrGenerationInProgress = errors.New("team generation is already running for this match")
	ErrMatchClosed          = errors.New("match is finished or cancelled")
	ErrNoCachedResult       = errors.New("no generated teams cached for this match")
)

// MatchDataSource supplies the match, its confirmed signups and the rules in scope.
type MatchDataSource interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListConfirmedSignups(ctx context.Context, matchID string) ([]models.Signup, error)
	ListActiveRules(ctx context.Context, groupID, matchID string) ([]models.RuleRecord, error)
}

// TeamStore persists a validated result, replacing any earlier squads of the match, and reads
// persisted squads back.
type TeamStore interface {
	SaveGeneratedTeams(ctx context.Context, save TeamSave) error
	LoadTeams(ctx context.Context, matchID string) ([]models.Team, error)
}

// TeamSave is everything a TeamStore needs to write one generation.
type TeamSave struct {
	MatchID   string
	Roster    []models.Player
	Teams     *models.GeneratedTeams
	Snapshot  models.AIInputSnapshot
	CreatedBy *string
}

// Locker guards a key with an owner token.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// ResultCache keeps the latest generation per match.
type ResultCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// GenerationResult is returned to API callers and cached as the match's latest result.
type GenerationResult struct {
	MatchID         string                 `json:"matchId"`
	Teams           *models.GeneratedTeams `json:"teams"`
	Report          teamgen.BalanceReport  `json:"report"`
	Roster          []models.Player        `json:"roster"`
	ExcludedInjured []string               `json:"excludedInjured,omitempty"`
	PromptHash      string                 `json:"promptHash"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}

// PreviewResult is the request that would be sent, without sending it.
type PreviewResult struct {
	MatchID         string                  `json:"matchId"`
	Request         *teamgen.BalanceRequest `json:"request"`
	PromptHash      string                  `json:"promptHash"`
	ExcludedInjured []string                `json:"excludedInjured,omitempty"`
}

// TeamGenerationService loads a match, runs balancing and persists the outcome. It is the only
// place that serializes generations per match.
type TeamGenerationService struct {
	source    MatchDataSource
	store     TeamStore
	engine    *teamgen.Engine
	compiler  *teamgen.RuleCompiler
	locker    Locker
	cache     ResultCache
	lockTTL   time.Duration
	resultTTL time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTeamGenerationService(
	source MatchDataSource,
	store TeamStore,
	engine *teamgen.Engine,
	compiler *teamgen.RuleCompiler,
	locker Locker,
	cache ResultCache,
	cfg *config.Config,
	logger *logrus.Logger,
) *TeamGenerationService {
	lockTTL := cfg.GenerationLockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &TeamGenerationService{
		source:    source,
		store:     store,
		engine:    engine,
		compiler:  compiler,
		locker:    locker,
		cache:     cache,
		lockTTL:   lockTTL,
		resultTTL: cfg.ResultCacheTTL,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type preparedMatch struct {
	roster   []models.Player
	rules    teamgen.RuleSet
	request  *teamgen.BalanceRequest
	excluded []string
}

// GenerateForMatch balances the match's confirmed roster and replaces its squads. Nothing is
// written unless the engine result validates.
func (s *TeamGenerationService) GenerateForMatch(ctx context.Context, matchID string, createdBy *string) (*GenerationResult, error) {
	log := s.logger.WithField("match_id", matchID)

	match, err := s.loadOpenMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	lockKey := GenerationLockKey(matchID)
	token := uuid.NewString()
	acquired, err := s.locker.AcquireLock(ctx, lockKey, token, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrGenerationInProgress
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, lockKey, token); err != nil {
			log.WithError(err).Warn("Failed to release generation lock")
		}
	}()

	prepared, err := s.prepare(ctx, match)
	if err != nil {
		return nil, err
	}

	teams, err := s.engine.Execute(ctx, prepared.request, prepared.roster, prepared.rules)
	if err != nil {
		return nil, err
	}
	if len(prepared.excluded) > 0 {
		teams.Warnings = append(teams.Warnings, fmt.Sprintf("Excluded injured players: %s", strings.Join(prepared.excluded, ", ")))
	}

	generatedAt := s.now()
	result := &GenerationResult{
		MatchID:         matchID,
		Teams:           teams,
		Report:          teamgen.CompareSquads(teams, prepared.roster),
		Roster:          prepared.roster,
		ExcludedInjured: prepared.excluded,
		PromptHash:      prepared.request.PromptHash(),
		GeneratedAt:     generatedAt,
	}

	save := TeamSave{
		MatchID:   matchID,
		Roster:    prepared.roster,
		Teams:     teams,
		Snapshot:  buildSnapshot(prepared.roster, teams, result.PromptHash, generatedAt),
		CreatedBy: createdBy,
	}
	if err := s.store.SaveGeneratedTeams(ctx, save); err != nil {
		return nil, fmt.Errorf("failed to save generated teams: %w", err)
	}

	if err := s.cache.Set(ctx, GenerationResultKey(matchID), result, s.resultTTL); err != nil {
		log.WithError(err).Warn("Failed to cache generation result")
		if err := s.cache.Delete(ctx, GenerationResultKey(matchID)); err != nil {
			log.WithError(err).Warn("Failed to drop the previous cached result")
		}
	}

	log.WithFields(logrus.Fields{
		"players":       len(prepared.roster),
		"assigned":      len(teams.AssignedIDs()),
		"balance_score": teams.BalanceScore,
		"rating_gap":    result.Report.RatingGap,
		"warnings":      len(teams.Warnings),
	}).Info("Teams generated and saved")

	return result, nil
}

// Preview builds the balancing request for a match without calling the reasoning service.
func (s *TeamGenerationService) Preview(ctx context.Context, matchID string) (*PreviewResult, error) {
	match, err := s.loadOpenMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(ctx, match)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		MatchID:         matchID,
		Request:         prepared.request,
		PromptHash:      prepared.request.PromptHash(),
		ExcludedInjured: prepared.excluded,
	}, nil
}

// Latest returns the most recent cached generation for a match.
func (s *TeamGenerationService) Latest(ctx context.Context, matchID string) (*GenerationResult, error) {
	var result GenerationResult
	if err := s.cache.Get(ctx, GenerationResultKey(matchID), &result); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrNoCachedResult
		}
		return nil, err
	}
	return &result, nil
}

// SavedTeams returns the squads currently persisted for a match, including manual edits.
func (s *TeamGenerationService) SavedTeams(ctx context.Context, matchID string) ([]models.Team, error) {
	if _, err := s.source.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return s.store.LoadTeams(ctx, matchID)
}

func (s *TeamGenerationService) loadOpenMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.source.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Status.AllowsTeamGeneration() {
		return nil, ErrMatchClosed
	}
	return match, nil
}

func (s *TeamGenerationService) prepare(ctx context.Context, match *models.Match) (*preparedMatch, error) {
	signups, err := s.source.ListConfirmedSignups(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signups: %w", err)
	}

	kept, injured := teamgen.ExcludeInjured(signups)
	excluded := make([]string, 0, len(injured))
	for _, su := range injured {
		excluded = append(excluded, su.Profile.DisplayName)
	}

	roster, err := teamgen.NormalizeRoster(kept)
	if err != nil {
		return nil, err
	}

	records, err := s.source.ListActiveRules(ctx, match.GroupID, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	rules := s.compiler.Compile(records, roster)

	req, err := s.engine.Prepare(roster, rules)
	if err != nil {
		return nil, err
	}

	return &preparedMatch{
		roster:   roster,
		rules:    rules,
		request:  req,
		excluded: excluded,
	}, nil
}

func buildSnapshot(roster []models.Player, teams *models.GeneratedTeams, promptHash string, at time.Time) models.AIInputSnapshot {
	players := make([]models.SnapshotPlayer, len(roster))
	for i, p := range roster {
		players[i] = models.SnapshotPlayer{ID: p.ID, Name: p.DisplayName, Rating: p.OverallRating}
	}
	return models.AIInputSnapshot{
		Players:      players,
		Reasoning:    teams.Reasoning,
		BalanceScore: teams.BalanceScore,
		Warnings:     teams.Warnings,
		PromptHash:   promptHash,
		GeneratedAt:  at,
	}
}
