package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-storefront-api/internal/domains/inventory/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/inventory/ports"
)

var (
	_ ports.Catalog = (*Repository)(nil)
	_ ports.Ledger  = (*Repository)(nil)
)

// Repository persists products in PostgreSQL and serves as the stock ledger.
// Each reservation is a single conditional UPDATE so the row lock lives only for that statement.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed catalog. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

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

// Save inserts a product or updates its metadata; stock is only written on insert.
func (r *Repository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.New("product is nil")
	}
	record := toRecord(product)
	if record.ID == 0 {
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, err
		}
		return record.toDomain(), nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":       record.Name,
				"sku":        record.SKU,
				"category":   record.Category,
				"price":      record.Price,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Product, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&productRecord{})
	if filter.Keyword != "" {
		pattern := "%" + likeEscaper.Replace(filter.Keyword) + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	switch filter.Sort {
	case domain.SortByName:
		query = query.Order("LOWER(name)").Order("id")
	case domain.SortByPriceAsc:
		query = query.Order("price").Order("id")
	case domain.SortByPriceDesc:
		query = query.Order("price DESC").Order("id")
	case domain.SortByNewest:
		query = query.Order("id DESC")
	default:
		query = query.Order("id")
	}
	var records []productRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toDomain())
	}
	return products, nil
}

// Reserve decrements stock only when enough is available.
func (r *Repository) Reserve(ctx context.Context, productID int64, qty int) (int, error) {
	if err := r.ensureDB(); err != nil {
		return 0, err
	}
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	var stock int
	result := r.db.WithContext(ctx).Raw(
		`UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ? RETURNING stock`,
		qty, productID, qty,
	).Scan(&stock)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.Available(ctx, productID)
		if err != nil {
			return 0, err
		}
		return current, domain.ErrInsufficientStock
	}
	return stock, nil
}

func (r *Repository) Release(ctx context.Context, productID int64, qty int) (int, error) {
	if err := r.ensureDB(); err != nil {
		return 0, err
	}
	if err := domain.ValidateQuantity(qty); err != nil {
		return 0, err
	}
	var stock int
	result := r.db.WithContext(ctx).Raw(
		`UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE id = ? RETURNING stock`,
		qty, productID,
	).Scan(&stock)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ports.ErrNotFound
	}
	return stock, nil
}

func (r *Repository) Available(ctx context.Context, productID int64) (int, error) {
	if err := r.ensureDB(); err != nil {
		return 0, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).Select("stock").First(&record, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ports.ErrNotFound
		}
		return 0, err
	}
	return record.Stock, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres product repository not configured")
	}
	return nil
}

func toRecord(product *domain.Product) productRecord {
	return productRecord{
		ID:       product.ID,
		Name:     product.Name,
		SKU:      product.SKU,
		Category: product.Category,
		Price:    product.Price,
		Stock:    product.Stock,
	}
}

func (r productRecord) toDomain() *domain.Product {
	return &domain.Product{
		ID:       r.ID,
		Name:     r.Name,
		SKU:      r.SKU,
		Category: r.Category,
		Price:    r.Price,
		Stock:    r.Stock,
	}
}
