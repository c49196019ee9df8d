package repository_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/repository"
	"github.com/stitts-dev/picado/internal/services"
)

const serviceKey = "service-role-key"

// postgrestServer answers the table reads the source performs.
func postgrestServer(t *testing.T, routes map[string]string, query *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, serviceKey, r.Header.Get("apikey"))
		if query != nil {
			decoded, err := url.QueryUnescape(r.URL.RawQuery)
			assert.NoError(t, err)
			*query = decoded
		}

		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		body, ok := routes[table]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "relation does not exist"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSupabaseSource_GetMatch(t *testing.T) {
	var query string
	server := postgrestServer(t, map[string]string{
		"matches": `[{"id": "m1", "group_id": "grp1", "status": "full", "max_players": 14}]`,
	}, &query)

	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	match, err := source.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "grp1", match.GroupID)
	assert.Equal(t, models.MatchFull, match.Status)
	assert.Contains(t, query, "id=eq.m1")
}

func TestSupabaseSource_GetMatchNotFound(t *testing.T) {
	server := postgrestServer(t, map[string]string{"matches": `[]`}, nil)
	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	_, err = source.GetMatch(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrMatchNotFound)
}

func TestSupabaseSource_ListConfirmedSignups(t *testing.T) {
	var query string
	server := postgrestServer(t, map[string]string{
		"match_signups": `[
			{
				"id": "s1", "match_id": "m1", "player_id": "p1", "guest_player_id": null,
				"status": "confirmed", "signup_time": "2026-03-01T18:01:00Z",
				"player_profiles": {
					"id": "p1", "display_name": "Ana", "nickname": "Aninha", "main_position": "GK",
					"preferred_positions": ["GK", "CB"], "overall_rating": 4.5, "footedness": "left",
					"goalkeeper_willingness": 4, "fitness_status": "ok", "reliability_score": 97,
					"matches_played": 40, "goals": 2, "assists": 5
				},
				"guest_players": null
			},
			{
				"id": "s2", "match_id": "m1", "player_id": null, "guest_player_id": "g1",
				"status": "confirmed", "signup_time": "2026-03-01T18:02:00Z",
				"player_profiles": null,
				"guest_players": {"id": "g1", "display_name": "Guest Hugo", "notes": null}
			}
		]`,
	}, &query)

	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	signups, err := source.ListConfirmedSignups(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, signups, 2)

	require.NotNil(t, signups[0].Profile)
	assert.Equal(t, "Ana", signups[0].Profile.DisplayName)
	assert.Equal(t, models.PositionCodes{"GK", "CB"}, signups[0].Profile.PreferredPositions)
	assert.Equal(t, 4, signups[0].Profile.GoalkeeperWillingness)
	assert.Nil(t, signups[0].Guest)

	require.NotNil(t, signups[1].Guest)
	assert.Equal(t, "g1", signups[1].Guest.ID)
	assert.Nil(t, signups[1].Profile)

	assert.Contains(t, query, "match_id=eq.m1")
	assert.Contains(t, query, "status=eq.confirmed")
	assert.Contains(t, query, "order=signup_time.asc")
}

func TestSupabaseSource_ListActiveRules(t *testing.T) {
	var query string
	server := postgrestServer(t, map[string]string{
		"rule_sets": `[
			{"id": "r1", "group_id": "grp1", "match_id": null, "rule_type": "avoid_pair", "data": {"player_id_a": "p1", "player_id_b": "p2"}, "is_active": true},
			{"id": "r2", "group_id": null, "match_id": "m1", "rule_type": "min_goalkeepers", "data": {"min_count": 1}, "is_active": true}
		]`,
	}, &query)

	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	records, err := source.ListActiveRules(context.Background(), "grp1", "m1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "avoid_pair", records[0].RuleType)
	assert.JSONEq(t, `{"player_id_a": "p1", "player_id_b": "p2"}`, string(records[0].Data))
	assert.Equal(t, "min_goalkeepers", records[1].RuleType)

	assert.Contains(t, query, "is_active=eq.true")
	assert.Contains(t, query, "group_id.eq.grp1")
	assert.Contains(t, query, "match_id.eq.m1")
}

func TestSupabaseSource_ServerError(t *testing.T) {
	server := postgrestServer(t, map[string]string{}, nil)
	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	_, err = source.ListConfirmedSignups(context.Background(), "m1")
	assert.Error(t, err)
}

func TestSupabaseSource_CancelledContext(t *testing.T) {
	server := postgrestServer(t, map[string]string{"matches": `[]`}, nil)
	source, err := repository.NewSupabaseSource(server.URL, serviceKey, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = source.GetMatch(ctx, "m1")
	assert.ErrorIs(t, err, context.Canceled)
}
