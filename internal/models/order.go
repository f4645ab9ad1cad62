package models

// OrderContext сведения о заказе, которые нужны для открытия спора.
type OrderContext struct {
	OrderID     int64  `db:"id" json:"order_id"`
	BuyerID     int64  `db:"buyer_id" json:"buyer_id"`
	SellerID    int64  `db:"seller_id" json:"seller_id"`
	OrderStatus string `db:"status" json:"order_status"`
}

// IsCompleted сообщает, что заказ завершён.
func (o *OrderContext) IsCompleted() bool {
	return o.OrderStatus == OrderStatusCompleted
}
