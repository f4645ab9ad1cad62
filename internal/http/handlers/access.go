package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
)

// DisputeReader загружает спор для проверки доступа.
type DisputeReader interface {
	GetDisputeDetail(ctx context.Context, id int64) (*models.Dispute, error)
}

// canView: стороны спора, назначенный арбитр и администраторы.
func canView(d *models.Dispute, userID int64, role string) error {
	if role == models.AccountRoleAdmin || models.RoleOf(d, userID) != models.ParticipantNone {
		return nil
	}
	if d.ArbitratorID != nil && *d.ArbitratorID == userID {
		return nil
	}
	return apperror.ErrNotParticipant
}

// canManage: стороны спора и администраторы.
func canManage(d *models.Dispute, userID int64, role string) error {
	if role == models.AccountRoleAdmin || models.RoleOf(d, userID) != models.ParticipantNone {
		return nil
	}
	return apperror.ErrNotParticipant
}

// canJudge: назначенный арбитр спора и администраторы.
func canJudge(d *models.Dispute, userID int64, role string) error {
	if role == models.AccountRoleAdmin {
		return nil
	}
	if d.ArbitratorID != nil && *d.ArbitratorID == userID {
		return nil
	}
	return apperror.ErrNotArbitrator
}

// disputeFromPath загружает спор из :id и проверяет доступ пользователя.
// При ошибке ответ уже отправлен и ok == false.
func disputeFromPath(c *gin.Context, reader DisputeReader, check func(*models.Dispute, int64, string) error) (userID int64, d *models.Dispute, ok bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return 0, nil, false
	}
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return 0, nil, false
	}
	d, err = reader.GetDisputeDetail(c.Request.Context(), id)
	if err == nil {
		err = check(d, userID, common.CurrentUserRole(c))
	}
	if err != nil {
		common.Fail(c, err)
		return 0, nil, false
	}
	return userID, d, true
}
