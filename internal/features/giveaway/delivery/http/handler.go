package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/reinacchi/eris-giveaways/internal/common/errors"
	"github.com/reinacchi/eris-giveaways/internal/common/middleware"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/manager"
	"github.com/reinacchi/eris-giveaways/internal/features/giveaway/models"
)

type GiveawayHandler struct {
	manager *manager.Manager
}

func NewGiveawayHandler(mgr *manager.Manager) *GiveawayHandler {
	return &GiveawayHandler{manager: mgr}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.start)
		giveaways.GET("", h.list)
		giveaways.GET("/:messageId", h.get)
		giveaways.PATCH("/:messageId", h.edit)
		giveaways.DELETE("/:messageId", h.delete)
		giveaways.POST("/:messageId/end", h.end)
		giveaways.POST("/:messageId/pause", h.pause)
		giveaways.POST("/:messageId/unpause", h.unpause)
		giveaways.POST("/:messageId/reroll", h.reroll)
		giveaways.POST("/:messageId/entries", h.entryAdd)
		giveaways.DELETE("/:messageId/entries", h.entryRemove)
	}
}

func (h *GiveawayHandler) start(c *gin.Context) {
	var input models.GiveawayStart
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid giveaway payload"))
		return
	}

	g, err := h.manager.Start(c.Request.Context(), &input)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "giveaway": g})
}

func (h *GiveawayHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaways": h.manager.List()})
}

func (h *GiveawayHandler) get(c *gin.Context) {
	g, err := h.manager.Get(c.Param("messageId"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaway": g, "state": g.State()})
}

func (h *GiveawayHandler) edit(c *gin.Context) {
	var input models.GiveawayEdit
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid edit payload"))
		return
	}

	g, err := h.manager.Edit(c.Request.Context(), c.Param("messageId"), &input)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaway": g})
}

func (h *GiveawayHandler) end(c *gin.Context) {
	winners, err := h.manager.End(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "winners": winners})
}

func (h *GiveawayHandler) pause(c *gin.Context) {
	var input models.GiveawayPause
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid pause payload"))
			return
		}
	}

	g, err := h.manager.Pause(c.Request.Context(), c.Param("messageId"), &input)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaway": g})
}

func (h *GiveawayHandler) unpause(c *gin.Context) {
	g, err := h.manager.Unpause(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "giveaway": g})
}

func (h *GiveawayHandler) reroll(c *gin.Context) {
	var input models.GiveawayReroll
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid reroll payload"))
			return
		}
	}

	winners, err := h.manager.Reroll(c.Request.Context(), c.Param("messageId"), &input)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "winners": winners})
}

func (h *GiveawayHandler) delete(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("messageId")); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GiveawayHandler) entryAdd(c *gin.Context) {
	var sig models.EntrySignal
	if err := c.ShouldBindJSON(&sig); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid entry payload"))
		return
	}

	if err := h.manager.EntryAdd(c.Request.Context(), c.Param("messageId"), &sig); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GiveawayHandler) entryRemove(c *gin.Context) {
	var sig models.EntrySignal
	if err := c.ShouldBindJSON(&sig); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid entry payload"))
		return
	}

	if err := h.manager.EntryRemove(c.Request.Context(), c.Param("messageId"), &sig); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// sendError maps manager and model errors onto the API error taxonomy.
func (h *GiveawayHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		middleware.SendError(c, apperrors.NewGiveawayNotFoundError(c.Param("messageId")))
	case errors.Is(err, models.ErrGiveawayEnded):
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeGiveawayEnded, "Giveaway has already ended"))
	case errors.Is(err, models.ErrGiveawayNotEnded),
		errors.Is(err, models.ErrAlreadyPaused),
		errors.Is(err, models.ErrNotPaused),
		errors.Is(err, models.ErrIsDrop):
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeInvalidState, err.Error()))
	case errors.Is(err, models.ErrInvalidWinnerCount),
		errors.Is(err, models.ErrInvalidPrize),
		errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrDropFeatureClash):
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error()))
	default:
		middleware.SendError(c, apperrors.NewPlatformError("giveaway operation", err))
	}
}
