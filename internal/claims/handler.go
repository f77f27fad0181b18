package claims

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/auth"
	"carbon-market/marketplace-backend/internal/validation"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers claim routes. The caller wraps the group with the
// auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/claims")
	{
		group.POST("", auth.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.Submit)
		group.GET("/my-claims", h.MyClaims)
		group.GET("/pending", auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin), h.Pending)
		group.GET("/:id", h.Get)
		group.GET("/:id/evidence", h.Evidence)
		group.POST("/:id/review", auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin), h.Review)
		group.POST("/:id/issue", auth.RequireRole(auth.RoleVerifier, auth.RoleAdmin), h.Issue)
	}
}

// Submit handles POST /api/claims as a multipart form: claim fields plus an
// optional "evidence" file.
func (h *Handler) Submit(c *gin.Context) {
	var payload validation.SubmitClaimPayload
	payload.ProjectID = c.PostForm("projectId")
	payload.Methodology = c.PostForm("methodology")
	if v, err := atoiForm(c, "vintageYear"); err == nil {
		payload.VintageYear = v
	}
	if v, err := atofForm(c, "claimedCredits"); err == nil {
		payload.ClaimedCredits = v
	}
	if t, err := time.Parse("2006-01-02", c.PostForm("creditingStart")); err == nil {
		payload.CreditingStart = t
	}
	if t, err := time.Parse("2006-01-02", c.PostForm("creditingEnd")); err == nil {
		payload.CreditingEnd = t
	}

	req := SubmitClaimRequest{Payload: payload}
	if file, err := c.FormFile("evidence"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read evidence file"})
			return
		}
		defer f.Close()
		req.Evidence = f
		req.EvidenceName = file.Filename
	}

	claim, err := h.service.SubmitClaim(c.Request.Context(), req, auth.UserID(c))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": verr.Fields})
			return
		}
		h.logger.Error("submit claim failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not submit claim"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "claim": claim})
}

// MyClaims handles GET /api/claims/my-claims.
func (h *Handler) MyClaims(c *gin.Context) {
	list, err := h.service.MyClaims(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Error("list claims failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not list claims"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "claims": list})
}

func (h *Handler) Pending(c *gin.Context) {
	list, err := h.service.PendingReview(c.Request.Context())
	if err != nil {
		h.logger.Error("list pending claims failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not list claims"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "claims": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid claim id"})
		return
	}
	claim, err := h.service.GetClaim(c.Request.Context(), id)
	if err != nil {
		c.JSON(claimStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "claim": claim})
}

type reviewRequest struct {
	Action ReviewAction `json:"action" binding:"required"`
	Note   string       `json:"note"`
}

func (h *Handler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid claim id"})
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	claim, err := h.service.ReviewClaim(c.Request.Context(), id, req.Action, req.Note, auth.UserID(c))
	if err != nil {
		c.JSON(claimStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "claim": claim})
}

type issueRequest struct {
	ApprovedCredits float64 `json:"approvedCredits" binding:"required"`
}

func (h *Handler) Issue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid claim id"})
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	claim, err := h.service.IssueCredits(c.Request.Context(), id, req.ApprovedCredits, auth.UserID(c))
	if err != nil {
		c.JSON(claimStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "claim": claim})
}

func (h *Handler) Evidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid claim id"})
		return
	}
	url, err := h.service.EvidenceURL(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		c.JSON(claimStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

func atoiForm(c *gin.Context, field string) (int, error) {
	return strconv.Atoi(c.PostForm(field))
}

func atofForm(c *gin.Context, field string) (float64, error) {
	return strconv.ParseFloat(c.PostForm(field), 64)
}

func claimStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyIssued),
		errors.Is(err, ErrNotApproved),
		errors.Is(err, ErrInvalidAmount):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
