package repository_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/repository"
	"github.com/stitts-dev/picado/internal/services"
	"github.com/stitts-dev/picado/pkg/database"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func strPtr(s string) *string { return &s }

func setupStore(t *testing.T) (*repository.GormStore, *database.DB) {
	t.Helper()
	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewGormStore(db, quietLogger()), db
}

func seedMatch(t *testing.T, db *database.DB) {
	t.Helper()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.Match{ID: "m1", GroupID: "grp1", Status: models.MatchFull, MaxPlayers: 10}).Error)
	require.NoError(t, db.Create(&models.Match{ID: "m2", GroupID: "grp1", Status: models.MatchSignupOpen, MaxPlayers: 10}).Error)

	profiles := []models.PlayerProfile{
		{ID: "p1", DisplayName: "Ana", MainPosition: "GK", PreferredPositions: models.PositionCodes{"GK", "CB"}, OverallRating: 4, Footedness: "left", GoalkeeperWillingness: 4, FitnessStatus: "ok", ReliabilityScore: 95},
		{ID: "p2", DisplayName: "Bruno", MainPosition: "CB", OverallRating: 3.5, Footedness: "right", GoalkeeperWillingness: 1, FitnessStatus: "ok", ReliabilityScore: 80},
		{ID: "p3", DisplayName: "Caio", MainPosition: "ST", OverallRating: 3, Footedness: "right", GoalkeeperWillingness: 0, FitnessStatus: "ok", ReliabilityScore: 70},
	}
	require.NoError(t, db.Create(&profiles).Error)
	require.NoError(t, db.Create(&models.GuestPlayer{ID: "g1", DisplayName: "Guest Hugo"}).Error)

	signups := []models.Signup{
		{ID: "s3", MatchID: "m1", PlayerID: strPtr("p3"), Status: models.SignupConfirmed, SignupTime: base.Add(3 * time.Minute)},
		{ID: "s1", MatchID: "m1", PlayerID: strPtr("p1"), Status: models.SignupConfirmed, SignupTime: base.Add(1 * time.Minute)},
		{ID: "s4", MatchID: "m1", GuestPlayerID: strPtr("g1"), Status: models.SignupConfirmed, SignupTime: base.Add(4 * time.Minute)},
		{ID: "s2", MatchID: "m1", PlayerID: strPtr("p2"), Status: models.SignupWaitlist, SignupTime: base.Add(2 * time.Minute)},
		{ID: "s5", MatchID: "m2", PlayerID: strPtr("p2"), Status: models.SignupConfirmed, SignupTime: base},
	}
	for i := range signups {
		require.NoError(t, db.Omit("Profile", "Guest").Create(&signups[i]).Error)
	}
}

func TestGormStore_GetMatch(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)
	ctx := context.Background()

	match, err := store.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "grp1", match.GroupID)
	assert.Equal(t, models.MatchFull, match.Status)

	_, err = store.GetMatch(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrMatchNotFound)
}

func TestGormStore_ListConfirmedSignups(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)

	signups, err := store.ListConfirmedSignups(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, signups, 3)

	assert.Equal(t, "s1", signups[0].ID)
	assert.Equal(t, "s3", signups[1].ID)
	assert.Equal(t, "s4", signups[2].ID)

	require.NotNil(t, signups[0].Profile)
	assert.Equal(t, "Ana", signups[0].Profile.DisplayName)
	assert.Equal(t, models.PositionCodes{"GK", "CB"}, signups[0].Profile.PreferredPositions)
	assert.Nil(t, signups[0].Guest)

	require.NotNil(t, signups[2].Guest)
	assert.Equal(t, "Guest Hugo", signups[2].Guest.DisplayName)
	assert.Nil(t, signups[2].Profile)
}

func TestGormStore_ListActiveRules(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)

	rows := []models.RuleSetRow{
		{ID: "r1", GroupID: strPtr("grp1"), RuleType: "avoid_pair", Data: []byte(`{"player_id_a":"p1","player_id_b":"p2"}`), IsActive: true},
		{ID: "r2", MatchID: strPtr("m1"), RuleType: "min_goalkeepers", Data: []byte(`{"min_count":1}`), IsActive: true},
		{ID: "r3", MatchID: strPtr("m2"), RuleType: "force_pair", Data: []byte(`{"player_id_a":"p1","player_id_b":"p3"}`), IsActive: true},
		{ID: "r4", GroupID: strPtr("grp1"), RuleType: "balance_rating", Data: []byte(`{"max_gap":0.3}`), IsActive: true},
		{ID: "r5", GroupID: strPtr("other"), RuleType: "min_defenders", Data: []byte(`{"min_count":2}`), IsActive: true},
	}
	require.NoError(t, db.Create(&rows).Error)
	// a false IsActive is a zero value and would be replaced by the column default on insert
	require.NoError(t, db.Model(&models.RuleSetRow{}).Where("id = ?", "r4").Update("is_active", false).Error)

	records, err := store.ListActiveRules(context.Background(), "grp1", "m1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "avoid_pair", records[0].RuleType)
	assert.JSONEq(t, `{"player_id_a":"p1","player_id_b":"p2"}`, string(records[0].Data))
	assert.Equal(t, "min_goalkeepers", records[1].RuleType)
}

func generatedTeams() *models.GeneratedTeams {
	return &models.GeneratedTeams{
		Dark: []models.TeamAssignment{
			{PlayerID: "p1", Position: models.PositionGK, Reason: "Keeper"},
			{PlayerID: "g1", Position: models.PositionCM, Reason: "Guest"},
		},
		Light: []models.TeamAssignment{
			{PlayerID: "p3", Position: models.PositionST, Reason: "Striker"},
			{PlayerID: "p2", Position: models.PositionCB, Reason: "Anchor"},
		},
		Reasoning:    "Even split",
		BalanceScore: 0.8,
		Warnings:     []string{},
	}
}

func saveRoster() []models.Player {
	return []models.Player{
		{ID: "p1", DisplayName: "Ana", OverallRating: 4},
		{ID: "p2", DisplayName: "Bruno", OverallRating: 3.5},
		{ID: "p3", DisplayName: "Caio", OverallRating: 3},
		{ID: "g1", DisplayName: "Guest Hugo", OverallRating: 2.5, IsGuest: true},
	}
}

func TestGormStore_SaveGeneratedTeams(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)
	ctx := context.Background()

	save := services.TeamSave{
		MatchID: "m1",
		Roster:  saveRoster(),
		Teams:   generatedTeams(),
		Snapshot: models.AIInputSnapshot{
			Players:      []models.SnapshotPlayer{{ID: "p1", Name: "Ana", Rating: 4}},
			Reasoning:    "Even split",
			BalanceScore: 0.8,
			PromptHash:   "hash-1",
		},
		CreatedBy: strPtr("user-1"),
	}
	require.NoError(t, store.SaveGeneratedTeams(ctx, save))

	teams, err := store.LoadTeams(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, teams, 2)

	dark, light := teams[0], teams[1]
	assert.Equal(t, models.SquadDark, dark.Name)
	assert.Equal(t, "#1a1a1a", dark.ColorHex)
	assert.Equal(t, models.SquadLight, light.Name)
	assert.Equal(t, "#ffffff", light.ColorHex)
	require.NotNil(t, dark.CreatedByUserID)
	assert.Equal(t, "user-1", *dark.CreatedByUserID)

	require.Len(t, dark.Assignments, 2)
	assert.Equal(t, "p1", *dark.Assignments[0].PlayerID)
	assert.Nil(t, dark.Assignments[0].GuestPlayerID)
	assert.Equal(t, "GK", dark.Assignments[0].Position)
	assert.Equal(t, 0, dark.Assignments[0].OrderIndex)
	assert.Equal(t, models.SourceAI, dark.Assignments[0].Source)

	assert.Nil(t, dark.Assignments[1].PlayerID)
	require.NotNil(t, dark.Assignments[1].GuestPlayerID)
	assert.Equal(t, "g1", *dark.Assignments[1].GuestPlayerID)

	require.Len(t, light.Assignments, 2)
	assert.Equal(t, "p3", *light.Assignments[0].PlayerID)
	assert.Equal(t, 1, light.Assignments[1].OrderIndex)

	match, err := store.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.MatchTeamsCreated, match.Status)

	var snapshot models.AIInputSnapshot
	require.NoError(t, json.Unmarshal(match.AIInputSnapshot, &snapshot))
	assert.Equal(t, "hash-1", snapshot.PromptHash)
	assert.Equal(t, "Even split", snapshot.Reasoning)
}

func TestGormStore_SaveReplacesPreviousTeams(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)
	ctx := context.Background()

	first := services.TeamSave{MatchID: "m1", Roster: saveRoster(), Teams: generatedTeams()}
	require.NoError(t, store.SaveGeneratedTeams(ctx, first))

	second := generatedTeams()
	second.Dark, second.Light = second.Light, second.Dark
	require.NoError(t, store.SaveGeneratedTeams(ctx, services.TeamSave{MatchID: "m1", Roster: saveRoster(), Teams: second}))

	var teamCount, assignmentCount int64
	require.NoError(t, db.Model(&models.Team{}).Where("match_id = ?", "m1").Count(&teamCount).Error)
	require.NoError(t, db.Model(&models.TeamAssignmentRow{}).Count(&assignmentCount).Error)
	assert.Equal(t, int64(2), teamCount)
	assert.Equal(t, int64(4), assignmentCount)

	teams, err := store.LoadTeams(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "p3", *teams[0].Assignments[0].PlayerID)
}

func TestGormStore_SaveUnknownMatchRollsBack(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)
	ctx := context.Background()

	err := store.SaveGeneratedTeams(ctx, services.TeamSave{MatchID: "ghost", Roster: saveRoster(), Teams: generatedTeams()})
	assert.ErrorIs(t, err, services.ErrMatchNotFound)

	var teamCount int64
	require.NoError(t, db.Model(&models.Team{}).Count(&teamCount).Error)
	assert.Zero(t, teamCount)
}

func TestGormStore_LoadTeamsEmpty(t *testing.T) {
	store, db := setupStore(t)
	seedMatch(t, db)

	teams, err := store.LoadTeams(context.Background(), "m2")
	require.NoError(t, err)
	assert.Empty(t, teams)
}
