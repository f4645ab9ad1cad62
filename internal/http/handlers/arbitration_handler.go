package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/service"
)

// ArbitrationDesk назначение арбитров и решения.
type ArbitrationDesk interface {
	AssignArbitrator(ctx context.Context, disputeID, arbitratorID, operatorID int64) (*models.Dispute, error)
	SubmitArbitration(ctx context.Context, in service.SubmitArbitrationInput) (*models.Arbitration, error)
	GetArbitrationDetail(ctx context.Context, disputeID int64) (*models.Arbitration, error)
	GetArbitratorCases(ctx context.Context, arbitratorID int64) ([]models.Dispute, error)
	GetPendingExecutions(ctx context.Context) ([]models.Arbitration, error)
	MarkExecuted(ctx context.Context, arbitrationID int64, note string, operatorID int64) (*models.Arbitration, error)
}

type ArbitrationHandler struct {
	svc      ArbitrationDesk
	disputes DisputeReader
}

func NewArbitrationHandler(svc ArbitrationDesk, disputes DisputeReader) *ArbitrationHandler {
	return &ArbitrationHandler{svc: svc, disputes: disputes}
}

type assignArbitratorRequest struct {
	ArbitratorID int64 `json:"arbitrator_id" binding:"required,gt=0"`
}

type submitArbitrationRequest struct {
	Result                 models.ArbitrationResult `json:"result" binding:"required"`
	RefundAmount           *float64                 `json:"refund_amount"`
	Reason                 string                   `json:"reason" binding:"required"`
	BuyerEvidenceAnalysis  string                   `json:"buyer_evidence_analysis"`
	SellerEvidenceAnalysis string                   `json:"seller_evidence_analysis"`
}

type markExecutedRequest struct {
	Note string `json:"note"`
}

// Assign POST /disputes/:id/arbitrator
func (h *ArbitrationHandler) Assign(c *gin.Context) {
	operatorID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req assignArbitratorRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.svc.AssignArbitrator(c.Request.Context(), disputeID, req.ArbitratorID, operatorID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Submit POST /disputes/:id/arbitration
func (h *ArbitrationHandler) Submit(c *gin.Context) {
	arbitratorID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req submitArbitrationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	arbitration, err := h.svc.SubmitArbitration(c.Request.Context(), service.SubmitArbitrationInput{
		DisputeID:              disputeID,
		ArbitratorID:           arbitratorID,
		Result:                 req.Result,
		RefundAmount:           req.RefundAmount,
		Reason:                 req.Reason,
		BuyerEvidenceAnalysis:  req.BuyerEvidenceAnalysis,
		SellerEvidenceAnalysis: req.SellerEvidenceAnalysis,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondCreated(c, arbitration)
}

// Detail GET /disputes/:id/arbitration
func (h *ArbitrationHandler) Detail(c *gin.Context) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	arbitration, err := h.svc.GetArbitrationDetail(c.Request.Context(), dispute.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, arbitration)
}

// Cases GET /arbitrator/cases
func (h *ArbitrationHandler) Cases(c *gin.Context) {
	arbitratorID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	cases, err := h.svc.GetArbitratorCases(c.Request.Context(), arbitratorID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cases})
}

// PendingExecutions GET /arbitrations/pending-executions
func (h *ArbitrationHandler) PendingExecutions(c *gin.Context) {
	items, err := h.svc.GetPendingExecutions(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// MarkExecuted POST /arbitrations/:id/executed
func (h *ArbitrationHandler) MarkExecuted(c *gin.Context) {
	operatorID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	arbitrationID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req markExecutedRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindAndValidate(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	arbitration, err := h.svc.MarkExecuted(c.Request.Context(), arbitrationID, req.Note, operatorID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, arbitration)
}
