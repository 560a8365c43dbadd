package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for every Postgres adapter. Adapters never migrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&productRecord{},
		&userRecord{},
		&cartLineRecord{},
		&orderRecord{},
		&orderItemRecord{},
		&orderReturnRecord{},
		&paymentIdempotencyRecord{},
	)
}

// Product schema mirrors the inventory Postgres ledger.
type productRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Name      string          `gorm:"column:name"`
	SKU       string          `gorm:"column:sku;uniqueIndex"`
	Category  string          `gorm:"column:category;index"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int             `gorm:"column:stock;check:stock >= 0"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

// User schema mirrors the users Postgres adapter.
type userRecord struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	Username    string    `gorm:"column:username;uniqueIndex"`
	FirstName   string    `gorm:"column:first_name"`
	LastName    string    `gorm:"column:last_name"`
	Email       string    `gorm:"column:email"`
	Phone       string    `gorm:"column:phone"`
	DeviceToken string    `gorm:"column:device_token"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

type cartLineRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	ProductID int64     `gorm:"primaryKey;column:product_id;autoIncrement:false"`
	Quantity  int       `gorm:"column:quantity"`
	Position  int       `gorm:"column:position"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartLineRecord) TableName() string { return "cart_lines" }

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID               int64             `gorm:"primaryKey;column:id"`
	OrderNumber      string            `gorm:"column:order_number;size:32;uniqueIndex"`
	UserID           int64             `gorm:"column:user_id;index"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2)"`
	Currency         string            `gorm:"column:currency;size:3"`
	Status           string            `gorm:"column:status;type:varchar(32);index"`
	PaymentStatus    string            `gorm:"column:payment_status;type:varchar(32)"`
	PaymentMethod    string            `gorm:"column:payment_method;type:varchar(32)"`
	PaymentReference string            `gorm:"column:payment_reference"`
	IdempotencyKey   *string           `gorm:"column:idempotency_key;size:255;uniqueIndex"`
	TrackingNumber   string            `gorm:"column:tracking_number"`
	Notes            pq.StringArray    `gorm:"column:notes;type:text[]"`
	Version          int64             `gorm:"column:version;not null;default:1"`
	Items            []orderItemRecord `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;index"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID          int64           `gorm:"primaryKey;column:id"`
	OrderID     int64           `gorm:"column:order_id;index"`
	ProductID   int64           `gorm:"column:product_id"`
	ProductName string          `gorm:"column:product_name"`
	Quantity    int             `gorm:"column:quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
}

func (orderItemRecord) TableName() string { return "order_items" }

type orderReturnRecord struct {
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

func (orderReturnRecord) TableName() string { return "order_returns" }

// Payment idempotency schema mirrors the payments Postgres store.
type paymentIdempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	Operation   string    `gorm:"column:operation;size:32"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	Response    []byte    `gorm:"column:response;type:jsonb"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (paymentIdempotencyRecord) TableName() string { return "payment_idempotency_keys" }
