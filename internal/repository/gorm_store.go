package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/services"
	"github.com/stitts-dev/picado/pkg/database"
)

// GormStore reads match data and writes generated teams through gorm.
type GormStore struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewGormStore(db *database.DB, logger *logrus.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

func (s *GormStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var match models.Match
	if err := s.db.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	return &match, nil
}

// ListConfirmedSignups returns confirmed signups in signup order with profile or guest preloaded.
func (s *GormStore) ListConfirmedSignups(ctx context.Context, matchID string) ([]models.Signup, error) {
	var signups []models.Signup
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("Guest").
		Where("match_id = ? AND status = ?", matchID, models.SignupConfirmed).
		Order("signup_time ASC").
		Order("id ASC").
		Find(&signups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signups: %w", err)
	}
	return signups, nil
}

// ListActiveRules returns active rules scoped to the group or to the match.
func (s *GormStore) ListActiveRules(ctx context.Context, groupID, matchID string) ([]models.RuleRecord, error) {
	var rows []models.RuleSetRow
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("group_id = ? OR match_id = ?", groupID, matchID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}

	records := make([]models.RuleRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return records, nil
}

// SaveGeneratedTeams replaces the match's squads and advances its status in one transaction.
func (s *GormStore) SaveGeneratedTeams(ctx context.Context, save services.TeamSave) error {
	snapshot, err := json.Marshal(save.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	roster := models.NewRoster(save.Roster)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldTeamIDs []string
		if err := tx.Model(&models.Team{}).Where("match_id = ?", save.MatchID).Pluck("id", &oldTeamIDs).Error; err != nil {
			return fmt.Errorf("failed to find existing teams: %w", err)
		}
		if len(oldTeamIDs) > 0 {
			if err := tx.Where("team_id IN ?", oldTeamIDs).Delete(&models.TeamAssignmentRow{}).Error; err != nil {
				return fmt.Errorf("failed to delete existing assignments: %w", err)
			}
			if err := tx.Where("id IN ?", oldTeamIDs).Delete(&models.Team{}).Error; err != nil {
				return fmt.Errorf("failed to delete existing teams: %w", err)
			}
		}

		for _, name := range []models.SquadName{models.SquadDark, models.SquadLight} {
			team := models.Team{
				ID:              uuid.NewString(),
				MatchID:         save.MatchID,
				Name:            name,
				ColorHex:        name.ColorHex(),
				CreatedByUserID: save.CreatedBy,
			}
			if err := tx.Create(&team).Error; err != nil {
				return fmt.Errorf("failed to create %s team: %w", name, err)
			}

			squad := save.Teams.Squad(name)
			rows := make([]models.TeamAssignmentRow, 0, len(squad))
			for i, a := range squad {
				row := models.TeamAssignmentRow{
					ID:         uuid.NewString(),
					TeamID:     team.ID,
					Position:   string(a.Position),
					OrderIndex: i,
					Source:     models.SourceAI,
				}
				id := a.PlayerID
				if roster[a.PlayerID].IsGuest {
					row.GuestPlayerID = &id
				} else {
					row.PlayerID = &id
				}
				rows = append(rows, row)
			}
			if len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return fmt.Errorf("failed to create %s assignments: %w", name, err)
				}
			}
		}

		result := tx.Model(&models.Match{}).Where("id = ?", save.MatchID).Updates(map[string]interface{}{
			"status":            models.MatchTeamsCreated,
			"ai_input_snapshot": datatypes.JSON(snapshot),
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update match: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return services.ErrMatchNotFound
		}

		s.logger.WithFields(logrus.Fields{
			"match_id":       save.MatchID,
			"replaced_teams": len(oldTeamIDs),
			"dark":           len(save.Teams.Dark),
			"light":          len(save.Teams.Light),
		}).Debug("Saved generated teams")
		return nil
	})
}

// LoadTeams returns the persisted squads of a match with their assignments in order.
func (s *GormStore) LoadTeams(ctx context.Context, matchID string) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("match_id = ?", matchID).
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	return teams, nil
}
