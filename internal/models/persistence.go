package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MatchStatus mirrors the match_status enum.
type MatchStatus string

const (
	MatchDraft        MatchStatus = "draft"
	MatchSignupOpen   MatchStatus = "signup_open"
	MatchFull         MatchStatus = "full"
	MatchTeamsCreated MatchStatus = "teams_created"
	MatchFinished     MatchStatus = "finished"
	MatchCancelled    MatchStatus = "cancelled"
)

// AllowsTeamGeneration reports whether squads may still be (re)generated for the match.
func (s MatchStatus) AllowsTeamGeneration() bool {
	return s != MatchFinished && s != MatchCancelled
}

// SignupStatus mirrors the signup_status enum.
type SignupStatus string

const (
	SignupConfirmed  SignupStatus = "confirmed"
	SignupWaitlist   SignupStatus = "waitlist"
	SignupCancelled  SignupStatus = "cancelled"
	SignupDidNotShow SignupStatus = "did_not_show"
)

// AssignmentSource records where a lineup slot came from.
type AssignmentSource string

const SourceAI AssignmentSource = "ai"

// Match is a scheduled game within a group.
type Match struct {
	ID              string         `json:"id" gorm:"primaryKey;type:uuid"`
	GroupID         string         `json:"group_id" gorm:"type:uuid;not null;index"`
	Status          MatchStatus    `json:"status" gorm:"size:20;not null;default:draft"`
	MaxPlayers      int            `json:"max_players" gorm:"not null;default:14"`
	AIInputSnapshot datatypes.JSON `json:"ai_input_snapshot"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Match) TableName() string { return "matches" }

// PlayerProfile is a registered player's persisted attributes.
type PlayerProfile struct {
	ID                    string        `json:"id" gorm:"primaryKey;type:uuid"`
	UserID                *string       `json:"user_id" gorm:"type:uuid"`
	DisplayName           string        `json:"display_name" gorm:"size:100;not null"`
	Nickname              *string       `json:"nickname" gorm:"size:100"`
	MainPosition          string        `json:"main_position" gorm:"size:5;not null;default:CM"`
	PreferredPositions    PositionCodes `json:"preferred_positions"`
	OverallRating         float64       `json:"overall_rating" gorm:"not null;default:2.5"`
	Footedness            string        `json:"footedness" gorm:"size:10;not null;default:right"`
	GoalkeeperWillingness int           `json:"goalkeeper_willingness" gorm:"not null;default:1"`
	FitnessStatus         string        `json:"fitness_status" gorm:"size:10;not null;default:ok"`
	ReliabilityScore      float64       `json:"reliability_score" gorm:"not null;default:100"`
	MatchesPlayed         int           `json:"matches_played" gorm:"not null;default:0"`
	Goals                 int           `json:"goals" gorm:"not null;default:0"`
	Assists               int           `json:"assists" gorm:"not null;default:0"`
}

func (PlayerProfile) TableName() string { return "player_profiles" }

// PositionCodes is a text[] column on postgres and a "{a,b}" encoded text column elsewhere.
type PositionCodes []string

func (p PositionCodes) Value() (driver.Value, error) {
	return pq.StringArray(p).Value()
}

func (p *PositionCodes) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*p = PositionCodes(arr)
	return nil
}

func (PositionCodes) GormDataType() string { return "text" }

func (PositionCodes) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// GuestPlayer is an unregistered participant added by an admin for a single match.
type GuestPlayer struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid"`
	DisplayName string  `json:"display_name" gorm:"size:100;not null"`
	Notes       *string `json:"notes" gorm:"type:text"`
}

func (GuestPlayer) TableName() string { return "guest_players" }

// Signup is a match_signups row with its profile or guest record embedded. The JSON names
// match PostgREST resource embedding so the same struct decodes hosted-database responses.
type Signup struct {
	ID            string         `json:"id" gorm:"primaryKey;type:uuid"`
	MatchID       string         `json:"match_id" gorm:"type:uuid;not null;index"`
	PlayerID      *string        `json:"player_id" gorm:"type:uuid"`
	GuestPlayerID *string        `json:"guest_player_id" gorm:"type:uuid"`
	Status        SignupStatus   `json:"status" gorm:"size:20;not null"`
	SignupTime    time.Time      `json:"signup_time"`
	Profile       *PlayerProfile `json:"player_profiles" gorm:"foreignKey:PlayerID"`
	Guest         *GuestPlayer   `json:"guest_players" gorm:"foreignKey:GuestPlayerID"`
}

func (Signup) TableName() string { return "match_signups" }

// RuleSetRow is a persisted balancing rule scoped to a group and/or a match.
type RuleSetRow struct {
	ID       string         `json:"id" gorm:"primaryKey;type:uuid"`
	GroupID  *string        `json:"group_id" gorm:"type:uuid;index"`
	MatchID  *string        `json:"match_id" gorm:"type:uuid;index"`
	RuleType string         `json:"rule_type" gorm:"size:30;not null"`
	Data     datatypes.JSON `json:"data"`
	IsActive bool           `json:"is_active" gorm:"not null;default:true"`
}

func (RuleSetRow) TableName() string { return "rule_sets" }

// Record strips persistence fields off the row.
func (r RuleSetRow) Record() RuleRecord {
	return RuleRecord{RuleType: r.RuleType, Data: json.RawMessage(r.Data)}
}

// Team is one persisted squad of a match.
type Team struct {
	ID              string              `json:"id" gorm:"primaryKey;type:uuid"`
	MatchID         string              `json:"match_id" gorm:"type:uuid;not null;index"`
	Name            SquadName           `json:"name" gorm:"size:10;not null"`
	ColorHex        string              `json:"color_hex" gorm:"size:7"`
	CreatedByUserID *string             `json:"created_by_user_id" gorm:"type:uuid"`
	CreatedAt       time.Time           `json:"created_at"`
	Assignments     []TeamAssignmentRow `json:"assignments,omitempty" gorm:"foreignKey:TeamID"`
}

func (Team) TableName() string { return "teams" }

// TeamAssignmentRow places a registered player or a guest in a persisted team.
type TeamAssignmentRow struct {
	ID            string           `json:"id" gorm:"primaryKey;type:uuid"`
	TeamID        string           `json:"team_id" gorm:"type:uuid;not null;index"`
	PlayerID      *string          `json:"player_id" gorm:"type:uuid"`
	GuestPlayerID *string          `json:"guest_player_id" gorm:"type:uuid"`
	Position      string           `json:"position" gorm:"size:5;not null"`
	OrderIndex    int              `json:"order_index" gorm:"not null"`
	Source        AssignmentSource `json:"source" gorm:"size:10;not null;default:ai"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (TeamAssignmentRow) TableName() string { return "team_assignments" }

// SnapshotPlayer is the slim roster entry kept in ai_input_snapshot.
type SnapshotPlayer struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// AIInputSnapshot is stored on the match after a successful generation.
type AIInputSnapshot struct {
	Players      []SnapshotPlayer `json:"players"`
	Reasoning    string           `json:"reasoning"`
	BalanceScore float64          `json:"balanceScore"`
	Warnings     []string         `json:"warnings"`
	PromptHash   string           `json:"promptHash"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}
