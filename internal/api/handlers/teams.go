package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/picado/internal/models"
	"github.com/stitts-dev/picado/internal/services"
	"github.com/stitts-dev/picado/internal/teamgen"
	"github.com/stitts-dev/picado/pkg/utils"
)

// TeamGenerator is the team generation surface the handler needs.
type TeamGenerator interface {
	GenerateForMatch(ctx context.Context, matchID string, createdBy *string) (*services.GenerationResult, error)
	Preview(ctx context.Context, matchID string) (*services.PreviewResult, error)
	Latest(ctx context.Context, matchID string) (*services.GenerationResult, error)
	SavedTeams(ctx context.Context, matchID string) ([]models.Team, error)
}

// TeamHandler exposes team generation and squad analysis over HTTP.
type TeamHandler struct {
	generator TeamGenerator
	compiler  *teamgen.RuleCompiler
	logger    *logrus.Logger
}

func NewTeamHandler(generator TeamGenerator, compiler *teamgen.RuleCompiler, logger *logrus.Logger) *TeamHandler {
	return &TeamHandler{
		generator: generator,
		compiler:  compiler,
		logger:    logger,
	}
}

// RegisterRoutes mounts the match-scoped routes on matches and the stateless ones on group.
// generateAuth guards the only route that writes.
func (h *TeamHandler) RegisterRoutes(group *gin.RouterGroup, generateAuth gin.HandlerFunc) {
	matches := group.Group("/matches/:matchId/teams")
	{
		matches.POST("/generate", generateAuth, h.GenerateTeams)
		matches.POST("/preview", h.PreviewTeams)
		matches.GET("/latest", h.GetLatest)
		matches.GET("", h.GetSavedTeams)
	}

	teams := group.Group("/teams")
	{
		teams.POST("/metrics", h.CompareSquads)
		teams.POST("/validate", h.ValidateSquads)
	}
}

// GenerateTeams runs balancing for a match and replaces its squads.
func (h *TeamHandler) GenerateTeams(c *gin.Context) {
	matchID := c.Param("matchId")

	var createdBy *string
	if userID := c.GetString("user_id"); userID != "" {
		createdBy = &userID
	}

	result, err := h.generator.GenerateForMatch(c.Request.Context(), matchID, createdBy)
	if err != nil {
		h.handleError(c, matchID, err)
		return
	}

	utils.SendCreated(c, result)
}

// PreviewTeams returns the balancing request for a match without sending it.
func (h *TeamHandler) PreviewTeams(c *gin.Context) {
	matchID := c.Param("matchId")

	preview, err := h.generator.Preview(c.Request.Context(), matchID)
	if err != nil {
		h.handleError(c, matchID, err)
		return
	}

	utils.SendSuccess(c, preview)
}

func (h *TeamHandler) GetLatest(c *gin.Context) {
	matchID := c.Param("matchId")

	result, err := h.generator.Latest(c.Request.Context(), matchID)
	if err != nil {
		h.handleError(c, matchID, err)
		return
	}

	utils.SendSuccess(c, result)
}

func (h *TeamHandler) GetSavedTeams(c *gin.Context) {
	matchID := c.Param("matchId")

	teams, err := h.generator.SavedTeams(c.Request.Context(), matchID)
	if err != nil {
		h.handleError(c, matchID, err)
		return
	}

	utils.SendSuccess(c, gin.H{"match_id": matchID, "teams": teams})
}

type compareRequest struct {
	Roster []models.Player       `json:"roster" binding:"required,min=1"`
	Teams  models.GeneratedTeams `json:"teams"`
}

// CompareSquads computes per-squad metrics for any two squads, such as manually edited ones.
func (h *TeamHandler) CompareSquads(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	utils.SendSuccess(c, teamgen.CompareSquads(&req.Teams, req.Roster))
}

type validateRequest struct {
	Roster []models.Player     `json:"roster" binding:"required,min=1"`
	Rules  []models.RuleRecord `json:"rules"`
	Teams  json.RawMessage     `json:"teams" binding:"required"`
}

// ValidateSquads runs caller-supplied squads through the checks applied to balancing output and
// returns the repaired squads with their warnings.
func (h *TeamHandler) ValidateSquads(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	rules := h.compiler.Compile(req.Rules, req.Roster)
	teams, err := teamgen.ValidateResponse(string(req.Teams), req.Roster, rules.Rules)
	if err != nil {
		if malformed, ok := teamgen.AsMalformedResponseError(err); ok {
			utils.SendValidationError(c, "Invalid squads", malformed.Reason)
			return
		}
		if inconsistent, ok := teamgen.AsInconsistentAssignmentError(err); ok {
			utils.SendError(c, http.StatusUnprocessableEntity, utils.NewAppError(utils.ErrCodeInconsistentAssignment, "Squads are inconsistent", inconsistent.Error()))
			return
		}
		h.handleError(c, "", err)
		return
	}
	teams.Warnings = append(teams.Warnings, rules.Warnings...)

	utils.SendSuccess(c, gin.H{
		"teams":  teams,
		"report": teamgen.CompareSquads(teams, req.Roster),
	})
}

func (h *TeamHandler) handleError(c *gin.Context, matchID string, err error) {
	log := h.logger.WithError(err)
	if matchID != "" {
		log = log.WithField("match_id", matchID)
	}

	if invalid, ok := teamgen.AsInvalidRosterError(err); ok {
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(utils.ErrCodeInvalidRoster, "Roster cannot be balanced", invalid.Reason))
		return
	}
	if _, ok := teamgen.AsEngineUnavailableError(err); ok {
		log.Warn("Balancing service unavailable")
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewRetryableError(utils.ErrCodeEngineUnavailable, "Balancing service is unavailable, try again shortly"))
		return
	}
	if malformed, ok := teamgen.AsMalformedResponseError(err); ok {
		log.Warn("Balancing service returned an unusable reply")
		utils.SendError(c, http.StatusBadGateway, utils.NewRetryableError(utils.ErrCodeMalformedResponse, "Balancing service returned an unusable reply", malformed.Reason))
		return
	}
	if inconsistent, ok := teamgen.AsInconsistentAssignmentError(err); ok {
		log.Warn("Balancing service returned inconsistent squads")
		utils.SendError(c, http.StatusBadGateway, utils.NewAppError(utils.ErrCodeInconsistentAssignment, "Squads are inconsistent", inconsistent.Error()))
		return
	}

	switch {
	case errors.Is(err, services.ErrMatchNotFound):
		utils.SendNotFound(c, "Match not found")
	case errors.Is(err, services.ErrNoCachedResult):
		utils.SendNotFound(c, "No generated teams for this match yet")
	case errors.Is(err, services.ErrGenerationInProgress):
		utils.SendConflict(c, utils.ErrCodeGenerationInProgress, "Team generation is already running for this match")
	case errors.Is(err, services.ErrMatchClosed):
		utils.SendConflict(c, utils.ErrCodeMatchClosed, "Match is finished or cancelled")
	default:
		log.Error("Team generation request failed")
		utils.SendInternalError(c, "Failed to process team request")
	}
}
