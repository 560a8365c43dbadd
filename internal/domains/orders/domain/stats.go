package domain

import "github.com/shopspring/decimal"

// Stats summarizes a customer's paid orders.
type Stats struct {
	UserID            int64           `json:"userId"`
	TotalOrders       int             `json:"totalOrders"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// ComputeStats counts orders whose money is still captured.
func ComputeStats(userID int64, orders []*Order) Stats {
	stats := Stats{UserID: userID, TotalSpent: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, order := range orders {
		if order.PaymentStatus != PaymentPaid {
			continue
		}
		stats.TotalOrders++
		stats.TotalSpent = stats.TotalSpent.Add(order.TotalAmount)
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalSpent.Div(decimal.NewFromInt(int64(stats.TotalOrders))).Round(2)
	}
	return stats
}
