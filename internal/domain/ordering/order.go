package ordering

import (
	"time"

	"github.com/erp/bridge/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem represents a line item in an order
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductCode string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal // Quantity * UnitPrice
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrderItem creates a new order item
func NewOrderItem(orderID uuid.UUID, productCode, productName string, quantity, unitPrice decimal.Decimal) (*OrderItem, error) {
	if productCode == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_CODE", "Product code cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductCode: productCode,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Order represents an order aggregate root taken in by the modernized
// service. It deliberately carries no status machine: the bridge only owns
// intake, the rest of the order lifecycle still lives in the legacy system.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	CustomerID      uuid.UUID
	LegacySubjectID int64 // legacy subject the creation was authorized for
	Items           []OrderItem
	TotalAmount     decimal.Decimal // Sum of all item amounts
	Remark          string
}

// NewOrder creates a new order
func NewOrder(orderNumber string, customerID uuid.UUID, legacySubjectID int64) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if legacySubjectID <= 0 {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Legacy subject ID must be positive")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		LegacySubjectID:   legacySubjectID,
		Items:             make([]OrderItem, 0),
		TotalAmount:       decimal.Zero,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AddItem adds a new item to the order
func (o *Order) AddItem(productCode, productName string, quantity, unitPrice decimal.Decimal) (*OrderItem, error) {
	for _, item := range o.Items {
		if item.ProductCode == productCode {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists in order, update quantity instead")
		}
	}

	item, err := NewOrderItem(o.ID, productCode, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotal()
	o.Touch()

	return item, nil
}

// RemoveItem removes the item with the given product code from the order
func (o *Order) RemoveItem(productCode string) error {
	for idx, item := range o.Items {
		if item.ProductCode == productCode {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.recalculateTotal()
			o.Touch()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Order item not found")
}

// SetRemark sets the order remark
func (o *Order) SetRemark(remark string) {
	o.Remark = remark
	o.Touch()
}

// Validate checks the persistable state of the order
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Order must have at least one item")
	}
	if o.TotalAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Order total cannot be negative")
	}
	return nil
}

// ItemCount returns the number of items in the order
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// recalculateTotal recalculates the order total
func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount)
	}
	o.TotalAmount = total
}
