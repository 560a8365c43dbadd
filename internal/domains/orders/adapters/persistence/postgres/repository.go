package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/go-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/orders/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists orders in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// orderRecord maps the order aggregate header.
type orderRecord struct {
	ID               int64           `gorm:"primaryKey;column:id"`
	OrderNumber      string          `gorm:"column:order_number;size:32;uniqueIndex"`
	UserID           int64           `gorm:"column:user_id;index"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2)"`
	Currency         string          `gorm:"column:currency;size:3"`
	Status           string          `gorm:"column:status;type:varchar(32);index"`
	PaymentStatus    string          `gorm:"column:payment_status;type:varchar(32)"`
	PaymentMethod    string          `gorm:"column:payment_method;type:varchar(32)"`
	PaymentReference string          `gorm:"column:payment_reference"`
	IdempotencyKey   *string         `gorm:"column:idempotency_key;size:255;uniqueIndex"`
	TrackingNumber   string          `gorm:"column:tracking_number"`
	Notes            pq.StringArray  `gorm:"column:notes;type:text[]"`
	Version          int64           `gorm:"column:version;not null;default:1"`
	Items            []itemRecord    `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time       `gorm:"column:created_at;index"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

// itemRecord is an immutable price snapshot line.
type itemRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	OrderID     int64           `gorm:"column:order_id;index"`
	ProductID   int64           `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	Quantity    int             `gorm:"column:quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
}

func (itemRecord) TableName() string { return "order_items" }

type returnRecord struct {
	ID              int64           `gorm:"primaryKey;column:id"`
	OrderID         int64           `gorm:"column:order_id;uniqueIndex:idx_order_returns_item"`
	ItemID          int64           `gorm:"column:item_id;uniqueIndex:idx_order_returns_item"`
	ProductID       int64           `gorm:"column:product_id"`
	Quantity        int             `gorm:"column:quantity"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Reason          string          `gorm:"column:reason"`
	RefundReference string          `gorm:"column:refund_reference"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
}

func (returnRecord) TableName() string { return "order_returns" }

// Create inserts the order header and items in one transaction.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toRecord(order)
	record.ID = 0
	record.Version = 1
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrDuplicateIdempotency
		}
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// Update writes mutable columns guarded by the version column.
func (r *Repository) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := updateVersioned(r.db.WithContext(ctx), order); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, order.ID)
}

// GetByID fetches an order and its items.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

// ListByUser returns a user's orders oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderRecord
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		Order("id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

// RecordReturn updates the order and inserts the return atomically.
func (r *Repository) RecordReturn(ctx context.Context, order *domain.Order, ret *domain.Return) (*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil || ret == nil {
		return nil, errors.New("order and return are required")
	}
	record := toReturnRecord(ret)
	record.OrderID = order.ID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, order); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) ListReturns(ctx context.Context, orderID int64) ([]*domain.Return, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []returnRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*domain.Return, 0, len(records))
	for i := range records {
		list = append(list, records[i].toDomain())
	}
	return list, nil
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&record, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func updateVersioned(db *gorm.DB, order *domain.Order) error {
	result := db.Model(&orderRecord{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":            string(order.Status),
			"payment_status":    string(order.PaymentStatus),
			"payment_method":    order.PaymentMethod,
			"payment_reference": order.PaymentReference,
			"tracking_number":   order.TrackingNumber,
			"notes":             pq.StringArray(order.Notes),
			"version":           gorm.Expr("version + 1"),
			"updated_at":        gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&orderRecord{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ports.ErrNotFound
		}
		return ports.ErrConcurrentUpdate
	}
	return nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	rec := orderRecord{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		TrackingNumber:   order.TrackingNumber,
		Notes:            pq.StringArray(order.Notes),
		Version:          order.Version,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	if order.IdempotencyKey != "" {
		key := order.IdempotencyKey
		rec.IdempotencyKey = &key
	}
	for _, item := range order.Items {
		rec.Items = append(rec.Items, itemRecord{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:               r.ID,
		OrderNumber:      r.OrderNumber,
		UserID:           r.UserID,
		TotalAmount:      r.TotalAmount,
		Currency:         r.Currency,
		Status:           domain.Status(r.Status),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		TrackingNumber:   r.TrackingNumber,
		Notes:            []string(r.Notes),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.IdempotencyKey != nil {
		order.IdempotencyKey = *r.IdempotencyKey
	}
	for _, item := range r.Items {
		order.Items = append(order.Items, domain.Item{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return order
}

func toReturnRecord(ret *domain.Return) returnRecord {
	return returnRecord{
		ItemID:          ret.ItemID,
		ProductID:       ret.ProductID,
		Quantity:        ret.Quantity,
		Amount:          ret.Amount,
		Reason:          ret.Reason,
		RefundReference: ret.RefundReference,
		CreatedAt:       ret.CreatedAt,
	}
}

func (r returnRecord) toDomain() *domain.Return {
	return &domain.Return{
		ID:              r.ID,
		OrderID:         r.OrderID,
		ItemID:          r.ItemID,
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		Amount:          r.Amount,
		Reason:          r.Reason,
		RefundReference: r.RefundReference,
		CreatedAt:       r.CreatedAt,
	}
}
