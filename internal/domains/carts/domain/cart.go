package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidUserID    = errors.New("user id must be greater than zero")
	ErrInvalidProductID = errors.New("product id must be greater than zero")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrLineNotFound     = errors.New("product is not in the cart")
)

// Line is a product/quantity pair owned by one cart.
type Line struct {
	ProductID int64
	Quantity  int
}

// Cart holds a user's pending lines until a purchase consumes them.
type Cart struct {
	UserID    int64
	Lines     []Line
	UpdatedAt time.Time
}

func NewCart(userID int64) (*Cart, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	return &Cart{UserID: userID}, nil
}

// Add merges quantity into an existing line or appends a new one.
func (c *Cart) Add(productID int64, quantity int, now time.Time) error {
	if productID <= 0 {
		return ErrInvalidProductID
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += quantity
			c.UpdatedAt = now
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: quantity})
	c.UpdatedAt = now
	return nil
}

func (c *Cart) Remove(productID int64, now time.Time) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = now
			return nil
		}
	}
	return ErrLineNotFound
}

// Quantity returns the quantity held for a product, zero when absent.
func (c *Cart) Quantity(productID int64) int {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone
}
