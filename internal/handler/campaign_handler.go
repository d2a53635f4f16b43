package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// CampaignHandler handles bulk email campaigns.
type CampaignHandler struct {
	campaignService *service.CampaignService
	log             zerolog.Logger
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(campaignService *service.CampaignService, log zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		log:             log.With().Str("component", "campaign_handler").Logger(),
	}
}

// PreviewRecipients godoc
// POST /api/v1/admin/emails/preview
// Resolves an audience without sending anything.
func (h *CampaignHandler) PreviewRecipients(c *gin.Context) {
	var audience model.EmailAudience
	if fields := validator.Bind(c, &audience); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	recipients, err := h.campaignService.Preview(c.Request.Context(), audience)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"count":      len(recipients),
		"recipients": recipients,
	})
}

// CreateCampaign godoc
// POST /api/v1/admin/emails
// Records the campaign and queues one job per recipient; delivery happens in
// the email worker.
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req model.CreateCampaignRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	campaign, err := h.campaignService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"campaign": campaign})
}

// ListCampaigns godoc
// GET /api/v1/admin/emails?page=1&per_page=10
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	page, perPage := pageQuery(c)

	campaigns, pagination, err := h.campaignService.List(c.Request.Context(), page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, campaigns, pagination)
}

// GetCampaign godoc
// GET /api/v1/admin/emails/:id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	campaign, err := h.campaignService.Get(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"campaign": campaign})
}
