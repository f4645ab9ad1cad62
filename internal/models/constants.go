package models

// Роли учётных записей из access токена.
const (
	AccountRoleUser       = "user"
	AccountRoleArbitrator = "arbitrator"
	AccountRoleAdmin      = "admin"
)

// Статусы заказа в сервисе заказов. Спор можно открыть только по завершённому заказу.
const (
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ValidAccountRoles список валидных ролей учётных записей
var ValidAccountRoles = map[string]struct{}{
	AccountRoleUser:       {},
	AccountRoleArbitrator: {},
	AccountRoleAdmin:      {},
}
