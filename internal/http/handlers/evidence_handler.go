package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/storage"
)

// EvidenceLocker доказательства сторон.
type EvidenceLocker interface {
	UploadEvidence(ctx context.Context, disputeID, uploaderID int64, item models.EvidenceItem) (*models.Evidence, error)
	GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error)
	GetDisputeEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error)
	GetBuyerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error)
	GetSellerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error)
	EvaluateEvidence(ctx context.Context, evidenceID int64, validity models.Validity, reason string, evaluatorID int64) (*models.Evidence, error)
	GetEvidenceSummary(ctx context.Context, disputeID int64) (*models.EvidenceSummary, error)
	DeleteEvidence(ctx context.Context, evidenceID, requesterID int64) error
}

// FileStore сохраняет и удаляет загруженные файлы.
type FileStore interface {
	Save(ctx context.Context, disputeID int64, originalName string, r io.Reader) (*storage.StoredFile, error)
	Remove(fileURL string) error
	Locate(disputeID int64, name string) (string, error)
	MaxUploadBytes() int64
}

type EvidenceHandler struct {
	svc      EvidenceLocker
	disputes DisputeReader
	files    FileStore
}

func NewEvidenceHandler(svc EvidenceLocker, disputes DisputeReader, files FileStore) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, disputes: disputes, files: files}
}

// evidenceLinkRequest доказательство, уже размещённое во внешнем хранилище.
type evidenceLinkRequest struct {
	EvidenceType models.EvidenceType `json:"evidence_type" binding:"required"`
	FileURL      string              `json:"file_url" binding:"required"`
	FileName     string              `json:"file_name"`
	FileSize     int64               `json:"file_size"`
	Description  string              `json:"description"`
	Checksum     string              `json:"checksum"`
}

type evaluateRequest struct {
	Validity models.Validity `json:"validity" binding:"required"`
	Reason   string          `json:"reason"`
}

// Upload POST /disputes/:id/evidence
// Принимает multipart (поле file) или JSON со ссылкой на файл.
func (h *EvidenceHandler) Upload(c *gin.Context) {
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

	var (
		item   models.EvidenceItem
		stored bool
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		item, err = h.storeUpload(c, disputeID)
		stored = err == nil
	} else {
		var req evidenceLinkRequest
		if err = common.BindAndValidate(c, &req); err == nil {
			item = models.EvidenceItem{
				EvidenceType: req.EvidenceType,
				FileURL:      req.FileURL,
				FileName:     req.FileName,
				FileSize:     req.FileSize,
				Description:  req.Description,
				Checksum:     req.Checksum,
			}
		}
	}
	if err != nil {
		common.Fail(c, err)
		return
	}

	evidence, err := h.svc.UploadEvidence(c.Request.Context(), disputeID, userID, item)
	if err != nil {
		if stored {
			if rmErr := h.files.Remove(item.FileURL); rmErr != nil {
				logger.Log.WithError(rmErr).WithField("file_url", item.FileURL).Warn("failed to remove rejected evidence file")
			}
		}
		common.Fail(c, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"dispute_id":  disputeID,
		"evidence_id": evidence.ID,
		"type":        evidence.EvidenceType,
	}).Info("evidence uploaded")

	common.RespondCreated(c, evidence)
}

func (h *EvidenceHandler) storeUpload(c *gin.Context, disputeID int64) (models.EvidenceItem, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.files.MaxUploadBytes()+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		return models.EvidenceItem{}, apperror.New(apperror.ErrCodeValidation, "поле file обязательно")
	}
	if file.Size == 0 {
		return models.EvidenceItem{}, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}
	if file.Size > h.files.MaxUploadBytes() {
		return models.EvidenceItem{}, apperror.New(apperror.ErrCodeValidation, "файл превышает допустимый размер")
	}

	src, err := file.Open()
	if err != nil {
		return models.EvidenceItem{}, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл")
	}
	defer src.Close()

	saved, err := h.files.Save(c.Request.Context(), disputeID, file.Filename, src)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return models.EvidenceItem{}, apperror.Wrap(err, apperror.ErrCodeValidation, "файл превышает допустимый размер")
	case errors.Is(err, storage.ErrUnsupportedType):
		return models.EvidenceItem{}, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось определить тип файла")
	case err != nil:
		return models.EvidenceItem{}, err
	}

	// Явно указанный тип (например CHAT_LOG) важнее распознанного.
	evidenceType := saved.EvidenceType
	if declared := models.EvidenceType(c.PostForm("evidence_type")); declared != "" {
		evidenceType = declared
	}

	return models.EvidenceItem{
		EvidenceType: evidenceType,
		FileURL:      saved.URL,
		FileName:     file.Filename,
		FileSize:     saved.Size,
		Description:  c.PostForm("description"),
		Checksum:     saved.Checksum,
		Stored:       true,
	}, nil
}

// List GET /disputes/:id/evidence?party=buyer|seller
func (h *EvidenceHandler) List(c *gin.Context) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	var (
		items []models.Evidence
		err   error
	)
	switch strings.ToLower(c.Query("party")) {
	case "":
		items, err = h.svc.GetDisputeEvidence(c.Request.Context(), dispute.ID)
	case "buyer":
		items, err = h.svc.GetBuyerEvidence(c.Request.Context(), dispute.ID)
	case "seller":
		items, err = h.svc.GetSellerEvidence(c.Request.Context(), dispute.ID)
	default:
		err = apperror.New(apperror.ErrCodeValidation, "party должен быть buyer или seller")
	}
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Summary GET /disputes/:id/evidence/summary
func (h *EvidenceHandler) Summary(c *gin.Context) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	summary, err := h.svc.GetEvidenceSummary(c.Request.Context(), dispute.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Evaluate POST /evidence/:id/evaluate
func (h *EvidenceHandler) Evaluate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	evidenceID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req evaluateRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	evidence, err := h.svc.GetEvidence(c.Request.Context(), evidenceID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	dispute, err := h.disputes.GetDisputeDetail(c.Request.Context(), evidence.DisputeID)
	if err == nil {
		err = canJudge(dispute, userID, common.CurrentUserRole(c))
	}
	if err != nil {
		common.Fail(c, err)
		return
	}

	evidence, err = h.svc.EvaluateEvidence(c.Request.Context(), evidenceID, req.Validity, req.Reason, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evidence)
}

// Delete DELETE /evidence/:id
func (h *EvidenceHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	evidenceID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.svc.DeleteEvidence(c.Request.Context(), evidenceID, userID); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// File GET /files/evidence/:id/:name
// Отдаёт сохранённый файл тем, кому доступен спор.
func (h *EvidenceHandler) File(c *gin.Context) {
	_, dispute, ok := disputeFromPath(c, h.disputes, canView)
	if !ok {
		return
	}

	path, err := h.files.Locate(dispute.ID, c.Param("name"))
	if errors.Is(err, storage.ErrFileNotFound) {
		err = apperror.Wrap(err, apperror.ErrCodeNotFound, "файл не найден")
	}
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.File(path)
}
