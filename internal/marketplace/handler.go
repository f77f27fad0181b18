package marketplace

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/auth"
	"carbon-market/marketplace-backend/internal/validation"
	"carbon-market/marketplace-backend/pkg/util"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers marketplace routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/marketplace")
	{
		group.GET("/listings", h.Browse)
		group.GET("/my-listings", h.MyListings)
		group.POST("/list", auth.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.CreateListing)
		group.GET("/:id/capacity", auth.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.Capacity)
		group.POST("/buy", h.Buy)
		group.PATCH("/:id/cancel", h.Cancel)
		group.GET("/purchases", h.MyPurchases)
		group.GET("/export", auth.RequireRole(auth.RoleAdmin), h.Export)
	}
}

// CreateListing handles POST /api/marketplace/list with body
// {claimId, creditsToSell}.
func (h *Handler) CreateListing(c *gin.Context) {
	var payload validation.CreateListingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	listing, err := h.service.CreateListing(c.Request.Context(), auth.UserID(c), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "listing": listing})
}

// MyListings handles GET /api/marketplace/my-listings.
func (h *Handler) MyListings(c *gin.Context) {
	listings, err := h.service.MyListings(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Error("list my listings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not list listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "listings": listings})
}

// Browse handles GET /api/marketplace/listings.
func (h *Handler) Browse(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	listings, pagination, err := h.service.Browse(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		h.logger.Error("browse listings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not browse listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "listings": listings, "pagination": pagination})
}

// Buy handles POST /api/marketplace/buy.
func (h *Handler) Buy(c *gin.Context) {
	var payload validation.BuyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	purchase, err := h.service.Buy(c.Request.Context(), auth.UserID(c), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "purchase": purchase})
}

// Capacity handles GET /api/marketplace/:id/capacity, where :id is a claim.
// It reports how many credits the seller can still list for it.
func (h *Handler) Capacity(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid claim id"})
		return
	}
	capacity, err := h.service.RemainingCapacity(c.Request.Context(), auth.UserID(c), claimID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "capacity": capacity})
}

// Cancel handles PATCH /api/marketplace/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid listing id"})
		return
	}
	listing, err := h.service.Cancel(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "listing": listing})
}

func (h *Handler) MyPurchases(c *gin.Context) {
	purchases, err := h.service.MyPurchases(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Error("list purchases failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not list purchases"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "purchases": purchases})
}

// Export streams the listing book as XLSX.
func (h *Handler) Export(c *gin.Context) {
	listings, err := h.service.AllListings(c.Request.Context())
	if err != nil {
		h.logger.Error("export listings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not export listings"})
		return
	}
	book, err := BuildListingsWorkbook(listings)
	if err != nil {
		h.logger.Error("build workbook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not build export"})
		return
	}

	filename := fmt.Sprintf("listings-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := book.Write(c.Writer); err != nil {
		h.logger.Error("stream workbook failed", zap.Error(err))
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": verr.Fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrListingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotClaimOwner), errors.Is(err, ErrNotSeller), errors.Is(err, ErrNotBuyer):
		status = http.StatusForbidden
	case errors.Is(err, ErrOversell),
		errors.Is(err, ErrClaimNotEligible),
		errors.Is(err, ErrListingClosed),
		errors.Is(err, ErrInsufficient):
		status = http.StatusConflict
	default:
		h.logger.Error("marketplace request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "message": util.NormalizeError(err)})
}
