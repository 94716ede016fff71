package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "wishdraw-backend/internal/common/errors"
	"wishdraw-backend/internal/features/giveaway/models"
	giveawayservice "wishdraw-backend/internal/features/giveaway/service"
	sponsorrepo "wishdraw-backend/internal/features/sponsor/repository"
)

type GiveawayHandler struct {
	service  giveawayservice.GiveawayService
	reroll   *giveawayservice.RerollService
	draws    *giveawayservice.DrawService
	sponsors sponsorrepo.SponsorRepository
}

func NewGiveawayHandler(
	service giveawayservice.GiveawayService,
	reroll *giveawayservice.RerollService,
	draws *giveawayservice.DrawService,
	sponsors sponsorrepo.SponsorRepository,
) *GiveawayHandler {
	return &GiveawayHandler{
		service:  service,
		reroll:   reroll,
		draws:    draws,
		sponsors: sponsors,
	}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.create)
		giveaways.GET("/:id", h.getByID)
		giveaways.POST("/:id/cancel", h.cancel)
		giveaways.POST("/:id/entries", h.submitEntry)
		giveaways.GET("/:id/entrants", h.entrantCount)
		giveaways.GET("/:id/winners", h.getWinners)
		giveaways.POST("/:id/reroll", h.rerollWinners)
	}

	sponsors := router.Group("/sponsors")
	{
		sponsors.GET("", h.listSponsors)
		sponsors.PUT("/:id/label", h.setSponsorLabel)
	}

	router.POST("/draws/run", h.runDraws)
}

func (h *GiveawayHandler) create(c *gin.Context) {
	var input models.GiveawayCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	giveaway, err := h.service.Create(c.Request.Context(), input.CreatedBy, &input)
	if err != nil {
		if apperrors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, giveaway)
}

func (h *GiveawayHandler) getByID(c *gin.Context) {
	giveaway, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
		return
	}

	c.JSON(http.StatusOK, giveaway)
}

func (h *GiveawayHandler) cancel(c *gin.Context) {
	err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case giveawayservice.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
		case giveawayservice.ErrNotOpen:
			c.JSON(http.StatusConflict, gin.H{"error": "giveaway is not open"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.Status(http.StatusOK)
}

func (h *GiveawayHandler) submitEntry(c *gin.Context) {
	var input models.EntrySubmit
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.SubmitEntry(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err == giveawayservice.ErrNotFound || apperrors.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *GiveawayHandler) entrantCount(c *gin.Context) {
	count, err := h.service.EntrantCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entrants": count})
}

func (h *GiveawayHandler) getWinners(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case giveawayservice.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, winners)
}

func (h *GiveawayHandler) rerollWinners(c *gin.Context) {
	count := 1
	if countStr := c.Query("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count parameter"})
			return
		}
		count = parsed
	}

	winners, err := h.reroll.Reroll(c.Request.Context(), c.Param("id"), count)
	if err != nil {
		switch err {
		case giveawayservice.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "giveaway not found"})
		case giveawayservice.ErrNotFinalized:
			c.JSON(http.StatusConflict, gin.H{"error": "giveaway is not finalized"})
		case giveawayservice.ErrEmptyPool:
			c.JSON(http.StatusConflict, gin.H{"error": "no eligible entrants left to draw from"})
		case giveawayservice.ErrInvalidReroll:
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be at least 1"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, winners)
}

func (h *GiveawayHandler) listSponsors(c *gin.Context) {
	sponsors, err := h.service.Sponsors(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sponsors)
}

func (h *GiveawayHandler) setSponsorLabel(c *gin.Context) {
	var input struct {
		Label string `json:"label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sponsors.SetLabel(c.Request.Context(), c.Param("id"), input.Label); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusOK)
}

// runDraws kicks off one pass over due giveaways without waiting for the
// next ticker interval. Individual draws run asynchronously.
func (h *GiveawayHandler) runDraws(c *gin.Context) {
	if err := h.draws.ProcessDueGiveaways(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
