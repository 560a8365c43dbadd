package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-storefront-api/internal/domains/carts/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/carts/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists cart lines in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type cartLineRecord struct {
	UserID    int64     `gorm:"primaryKey;column:user_id;autoIncrement:false"`
	ProductID int64     `gorm:"primaryKey;column:product_id;autoIncrement:false"`
	Quantity  int       `gorm:"column:quantity"`
	Position  int       `gorm:"column:position"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cartLineRecord) TableName() string { return "cart_lines" }

func (r *Repository) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []cartLineRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("position").Find(&records).Error; err != nil {
		return nil, err
	}
	cart := &domain.Cart{UserID: userID}
	for _, rec := range records {
		cart.Lines = append(cart.Lines, domain.Line{ProductID: rec.ProductID, Quantity: rec.Quantity})
		if rec.UpdatedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = rec.UpdatedAt
		}
	}
	return cart, nil
}

// Save replaces the user's lines in one transaction.
func (r *Repository) Save(ctx context.Context, cart *domain.Cart) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if cart == nil {
		return errors.New("cart is nil")
	}
	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", cart.UserID).Delete(&cartLineRecord{}).Error; err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return nil
		}
		records := make([]cartLineRecord, 0, len(cart.Lines))
		for i, line := range cart.Lines {
			records = append(records, cartLineRecord{
				UserID:    cart.UserID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Position:  i,
				UpdatedAt: updatedAt,
			})
		}
		return tx.Create(&records).Error
	})
}

func (r *Repository) Clear(ctx context.Context, userID int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cartLineRecord{}).Error
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres cart repository not configured")
	}
	return nil
}
