package ports

import (
	"context"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
)

// Service is the purchase orchestrator. It is the only component request handlers call.
type Service interface {
	Purchase(ctx context.Context, req types.PurchaseRequest) (*types.Receipt, error)
	ProcessReturn(ctx context.Context, orderID, itemID int64, reason string) (*types.ReturnReceipt, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) (*types.OrderView, error)
	ShipOrder(ctx context.Context, orderID int64, trackingNumber string) (*types.OrderView, error)
	DeliverOrder(ctx context.Context, orderID int64) (*types.OrderView, error)
	GetOrder(ctx context.Context, orderID int64) (*types.OrderView, error)
	ScheduleOrderStats(ctx context.Context, userID int64) (*types.StatsTicket, error)
}
