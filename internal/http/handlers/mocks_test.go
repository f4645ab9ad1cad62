package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/dispute-backend/internal/http/middleware"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/service"
	"github.com/ignatzorin/dispute-backend/internal/storage"
)

const (
	buyerID      int64 = 101
	sellerID     int64 = 202
	arbitratorID int64 = 909
	strangerID   int64 = 777
)

func testDispute() *models.Dispute {
	return &models.Dispute{
		ID:            1,
		Code:          "DSP-20260115-000001",
		OrderID:       5001,
		InitiatorID:   buyerID,
		InitiatorRole: models.PartyRoleBuyer,
		RespondentID:  sellerID,
		DisputeType:   models.DisputeTypeNotAsDescribed,
		Status:        models.DisputeStatusNegotiating,
	}
}

// newTestRouter собирает gin с обработчиком ошибок и заданным пользователем.
// userID == 0 означает анонимный запрос.
func newTestRouter(userID int64, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserIDKey, userID)
			c.Set(middleware.ContextRoleKey, role)
		}
		c.Next()
	})
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

type mockDisputeManager struct {
	mock.Mock
}

func (m *mockDisputeManager) SubmitDispute(ctx context.Context, in service.SubmitDisputeInput) (*models.Dispute, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeManager) GetDisputeDetail(ctx context.Context, id int64) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeManager) ListUserDisputes(ctx context.Context, userID int64, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeManager) EscalateToArbitration(ctx context.Context, id, operatorID int64) (*models.Dispute, error) {
	args := m.Called(ctx, id, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeManager) CloseDispute(ctx context.Context, id, operatorID int64, reason string) (*models.Dispute, error) {
	args := m.Called(ctx, id, operatorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockAuditTrail struct {
	mock.Mock
}

func (m *mockAuditTrail) DisputeTrail(ctx context.Context, disputeID int64) ([]models.AuditEntry, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

type mockNegotiation struct {
	mock.Mock
}

func (m *mockNegotiation) message(args mock.Arguments) (*models.NegotiationMessage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NegotiationMessage), args.Error(1)
}

func (m *mockNegotiation) SendTextMessage(ctx context.Context, disputeID, senderID int64, content string) (*models.NegotiationMessage, error) {
	return m.message(m.Called(ctx, disputeID, senderID, content))
}

func (m *mockNegotiation) ProposeResolution(ctx context.Context, disputeID, proposerID int64, content string, amount float64) (*models.NegotiationMessage, error) {
	return m.message(m.Called(ctx, disputeID, proposerID, content, amount))
}

func (m *mockNegotiation) RespondToProposal(ctx context.Context, proposalID, responderID int64, accepted bool, note string) (*models.NegotiationMessage, error) {
	return m.message(m.Called(ctx, proposalID, responderID, accepted, note))
}

func (m *mockNegotiation) GetNegotiationHistory(ctx context.Context, disputeID int64) ([]models.NegotiationMessage, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).([]models.NegotiationMessage), args.Error(1)
}

func (m *mockNegotiation) GetPendingProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error) {
	return m.message(m.Called(ctx, disputeID))
}

func (m *mockNegotiation) GetAcceptedProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error) {
	return m.message(m.Called(ctx, disputeID))
}

type mockEvidenceLocker struct {
	mock.Mock
}

func (m *mockEvidenceLocker) evidence(args mock.Arguments) (*models.Evidence, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Evidence), args.Error(1)
}

func (m *mockEvidenceLocker) list(args mock.Arguments) ([]models.Evidence, error) {
	return args.Get(0).([]models.Evidence), args.Error(1)
}

func (m *mockEvidenceLocker) UploadEvidence(ctx context.Context, disputeID, uploaderID int64, item models.EvidenceItem) (*models.Evidence, error) {
	return m.evidence(m.Called(ctx, disputeID, uploaderID, item))
}

func (m *mockEvidenceLocker) GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error) {
	return m.evidence(m.Called(ctx, evidenceID))
}

func (m *mockEvidenceLocker) GetDisputeEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return m.list(m.Called(ctx, disputeID))
}

func (m *mockEvidenceLocker) GetBuyerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return m.list(m.Called(ctx, disputeID))
}

func (m *mockEvidenceLocker) GetSellerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return m.list(m.Called(ctx, disputeID))
}

func (m *mockEvidenceLocker) EvaluateEvidence(ctx context.Context, evidenceID int64, validity models.Validity, reason string, evaluatorID int64) (*models.Evidence, error) {
	return m.evidence(m.Called(ctx, evidenceID, validity, reason, evaluatorID))
}

func (m *mockEvidenceLocker) GetEvidenceSummary(ctx context.Context, disputeID int64) (*models.EvidenceSummary, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EvidenceSummary), args.Error(1)
}

func (m *mockEvidenceLocker) DeleteEvidence(ctx context.Context, evidenceID, requesterID int64) error {
	return m.Called(ctx, evidenceID, requesterID).Error(0)
}

type mockFileStore struct {
	mock.Mock
}

func (m *mockFileStore) Save(ctx context.Context, disputeID int64, originalName string, r io.Reader) (*storage.StoredFile, error) {
	args := m.Called(ctx, disputeID, originalName, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredFile), args.Error(1)
}

func (m *mockFileStore) Remove(fileURL string) error {
	return m.Called(fileURL).Error(0)
}

func (m *mockFileStore) Locate(disputeID int64, name string) (string, error) {
	args := m.Called(disputeID, name)
	return args.String(0), args.Error(1)
}

func (m *mockFileStore) MaxUploadBytes() int64 {
	return m.Called().Get(0).(int64)
}

type mockArbitrationDesk struct {
	mock.Mock
}

func (m *mockArbitrationDesk) arbitration(args mock.Arguments) (*models.Arbitration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Arbitration), args.Error(1)
}

func (m *mockArbitrationDesk) AssignArbitrator(ctx context.Context, disputeID, arbitratorID, operatorID int64) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, arbitratorID, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockArbitrationDesk) SubmitArbitration(ctx context.Context, in service.SubmitArbitrationInput) (*models.Arbitration, error) {
	return m.arbitration(m.Called(ctx, in))
}

func (m *mockArbitrationDesk) GetArbitrationDetail(ctx context.Context, disputeID int64) (*models.Arbitration, error) {
	return m.arbitration(m.Called(ctx, disputeID))
}

func (m *mockArbitrationDesk) GetArbitratorCases(ctx context.Context, id int64) ([]models.Dispute, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockArbitrationDesk) GetPendingExecutions(ctx context.Context) ([]models.Arbitration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Arbitration), args.Error(1)
}

func (m *mockArbitrationDesk) MarkExecuted(ctx context.Context, arbitrationID int64, note string, operatorID int64) (*models.Arbitration, error) {
	return m.arbitration(m.Called(ctx, arbitrationID, note, operatorID))
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) GetStatistics(ctx context.Context) (*models.DisputeStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DisputeStatistics), args.Error(1)
}

func (m *mockStats) InvalidateStatistics() {
	m.Called()
}

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) RunOnce(ctx context.Context) (service.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.SweepResult), args.Error(1)
}
