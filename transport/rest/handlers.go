package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/replication"
)

type controller interface {
	AttemptMove(ctx context.Context, pos entity.Position) (bool, error)
	Reset(ctx context.Context) error
	CurrentTurnProfile(ctx context.Context) (entity.PlayerProfile, error)
	SetName(ctx context.Context, slot entity.Slot, name string) error
	CommitProfileEdits(ctx context.Context) error
	Snapshot(ctx context.Context) (replication.Snapshot, error)
}

type handlers struct {
	logger *slog.Logger
	game   controller
}

type gameResponse struct {
	replication.Snapshot
	CurrentTurnProfile entity.PlayerProfile `json:"current_turn_profile"`
}

type moveRequest struct {
	Row *int `json:"row" binding:"required"`
	Col *int `json:"col" binding:"required"`
}

type moveResponse struct {
	Accepted bool             `json:"accepted"`
	Game     entity.GameModel `json:"game"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func newHandlers(logger *slog.Logger, game controller) *handlers {
	return &handlers{
		logger: logger.With("component", "rest"),
		game:   game,
	}
}

func (that *handlers) GetGame(c *gin.Context) {
	ctx := c.Request.Context()

	snapshot, err := that.game.Snapshot(ctx)
	if err != nil {
		that.fail(c, "GetGame", err)
		return
	}

	profile, err := that.game.CurrentTurnProfile(ctx)
	if err != nil {
		that.fail(c, "GetGame", err)
		return
	}

	c.JSON(http.StatusOK, gameResponse{Snapshot: snapshot, CurrentTurnProfile: profile})
}

// PostMove - a rejected move is still a 200, the client decides how to show it.
func (that *handlers) PostMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row and col are required"})
		return
	}

	pos := entity.Position{Row: *req.Row, Col: *req.Col}
	if !pos.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperror.ErrInvalidPosition.Error()})
		return
	}

	ctx := c.Request.Context()

	accepted, err := that.game.AttemptMove(ctx, pos)
	if err != nil {
		that.fail(c, "PostMove", err)
		return
	}

	snapshot, err := that.game.Snapshot(ctx)
	if err != nil {
		that.fail(c, "PostMove", err)
		return
	}

	c.JSON(http.StatusOK, moveResponse{Accepted: accepted, Game: snapshot.Model})
}

func (that *handlers) PostRestart(c *gin.Context) {
	ctx := c.Request.Context()

	if err := that.game.Reset(ctx); err != nil {
		that.fail(c, "PostRestart", err)
		return
	}

	snapshot, err := that.game.Snapshot(ctx)
	if err != nil {
		that.fail(c, "PostRestart", err)
		return
	}

	c.JSON(http.StatusOK, snapshot.Model)
}

func (that *handlers) GetProfiles(c *gin.Context) {
	snapshot, err := that.game.Snapshot(c.Request.Context())
	if err != nil {
		that.fail(c, "GetProfiles", err)
		return
	}

	c.JSON(http.StatusOK, snapshot.Profiles)
}

func (that *handlers) PutProfileName(c *gin.Context) {
	slot, err := entity.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req nameRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err = that.game.SetName(c.Request.Context(), slot, req.Name); err != nil {
		that.fail(c, "PutProfileName", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (that *handlers) PostCommitProfiles(c *gin.Context) {
	if err := that.game.CommitProfileEdits(c.Request.Context()); err != nil {
		that.fail(c, "PostCommitProfiles", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (that *handlers) fail(c *gin.Context, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrUnknownSlot), errors.Is(err, apperror.ErrInvalidPosition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperror.ErrEngineStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
