package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
)

// NegotiationChannel переговоры сторон.
type NegotiationChannel interface {
	SendTextMessage(ctx context.Context, disputeID, senderID int64, content string) (*models.NegotiationMessage, error)
	ProposeResolution(ctx context.Context, disputeID, proposerID int64, content string, amount float64) (*models.NegotiationMessage, error)
	RespondToProposal(ctx context.Context, proposalID, responderID int64, accepted bool, note string) (*models.NegotiationMessage, error)
	GetNegotiationHistory(ctx context.Context, disputeID int64) ([]models.NegotiationMessage, error)
	GetPendingProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error)
	GetAcceptedProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error)
}

type NegotiationHandler struct {
	svc      NegotiationChannel
	disputes DisputeReader
}

func NewNegotiationHandler(svc NegotiationChannel, disputes DisputeReader) *NegotiationHandler {
	return &NegotiationHandler{svc: svc, disputes: disputes}
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type proposeRequest struct {
	Content      string  `json:"content" binding:"required"`
	RefundAmount float64 `json:"refund_amount" binding:"required"`
}

type respondProposalRequest struct {
	Accepted *bool  `json:"accepted" binding:"required"`
	Note     string `json:"note"`
}

// History GET /disputes/:id/messages
func (h *NegotiationHandler) History(c *gin.Context) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	messages, err := h.svc.GetNegotiationHistory(c.Request.Context(), dispute.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": messages})
}

// SendMessage POST /disputes/:id/messages
func (h *NegotiationHandler) SendMessage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req sendMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	message, err := h.svc.SendTextMessage(c.Request.Context(), disputeID, userID, req.Content)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondCreated(c, message)
}

// Propose POST /disputes/:id/proposals
func (h *NegotiationHandler) Propose(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req proposeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	proposal, err := h.svc.ProposeResolution(c.Request.Context(), disputeID, userID, req.Content, req.RefundAmount)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondCreated(c, proposal)
}

// PendingProposal GET /disputes/:id/proposals/pending
func (h *NegotiationHandler) PendingProposal(c *gin.Context) {
	h.proposal(c, h.svc.GetPendingProposal)
}

// AcceptedProposal GET /disputes/:id/proposals/accepted
func (h *NegotiationHandler) AcceptedProposal(c *gin.Context) {
	h.proposal(c, h.svc.GetAcceptedProposal)
}

func (h *NegotiationHandler) proposal(c *gin.Context, find func(context.Context, int64) (*models.NegotiationMessage, error)) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	proposal, err := find(c.Request.Context(), dispute.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// Respond POST /proposals/:id/respond
func (h *NegotiationHandler) Respond(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	proposalID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req respondProposalRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if req.Accepted == nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "поле accepted обязательно"))
		return
	}

	proposal, err := h.svc.RespondToProposal(c.Request.Context(), proposalID, userID, *req.Accepted, req.Note)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}
