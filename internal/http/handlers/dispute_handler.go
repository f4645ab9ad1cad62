package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/service"
)

// DisputeManager операции со спором, нужные хэндлеру.
type DisputeManager interface {
	SubmitDispute(ctx context.Context, in service.SubmitDisputeInput) (*models.Dispute, error)
	GetDisputeDetail(ctx context.Context, id int64) (*models.Dispute, error)
	ListUserDisputes(ctx context.Context, userID int64, limit, offset int) ([]models.Dispute, error)
	EscalateToArbitration(ctx context.Context, id, operatorID int64) (*models.Dispute, error)
	CloseDispute(ctx context.Context, id, operatorID int64, reason string) (*models.Dispute, error)
}

// AuditTrail отдаёт журнал переходов спора.
type AuditTrail interface {
	DisputeTrail(ctx context.Context, disputeID int64) ([]models.AuditEntry, error)
}

type DisputeHandler struct {
	svc   DisputeManager
	audit AuditTrail
}

func NewDisputeHandler(s DisputeManager, audit AuditTrail) *DisputeHandler {
	return &DisputeHandler{svc: s, audit: audit}
}

type submitDisputeRequest struct {
	OrderID     int64              `json:"order_id" binding:"required,gt=0"`
	DisputeType models.DisputeType `json:"dispute_type" binding:"required"`
	Description string             `json:"description" binding:"required"`
}

type closeDisputeRequest struct {
	Reason string `json:"reason"`
}

// SubmitDispute POST /disputes
func (h *DisputeHandler) SubmitDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req submitDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.svc.SubmitDispute(c.Request.Context(), service.SubmitDisputeInput{
		OrderID:     req.OrderID,
		InitiatorID: userID,
		Type:        req.DisputeType,
		Description: req.Description,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondCreated(c, dispute)
}

// ListMyDisputes GET /disputes/my
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListUserDisputes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": disputes, "limit": limit, "offset": offset})
}

// GetDispute GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	dispute, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Escalate POST /disputes/:id/escalate
func (h *DisputeHandler) Escalate(c *gin.Context) {
	userID, dispute, ok := h.loadManaged(c)
	if !ok {
		return
	}

	updated, err := h.svc.EscalateToArbitration(c.Request.Context(), dispute.ID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Close POST /disputes/:id/close
func (h *DisputeHandler) Close(c *gin.Context) {
	userID, dispute, ok := h.loadManaged(c)
	if !ok {
		return
	}

	var req closeDisputeRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindAndValidate(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	updated, err := h.svc.CloseDispute(c.Request.Context(), dispute.ID, userID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AuditTrail GET /disputes/:id/audit
func (h *DisputeHandler) AuditTrail(c *gin.Context) {
	dispute, ok := h.loadVisible(c)
	if !ok {
		return
	}

	entries, err := h.audit.DisputeTrail(c.Request.Context(), dispute.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *DisputeHandler) loadVisible(c *gin.Context) (*models.Dispute, bool) {
	_, dispute, ok := disputeFromPath(c, h.svc, canView)
	return dispute, ok
}

func (h *DisputeHandler) loadManaged(c *gin.Context) (int64, *models.Dispute, bool) {
	return disputeFromPath(c, h.svc, canManage)
}
