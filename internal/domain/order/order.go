package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew        Status = "Nouvelle"
	StatusProcessing Status = "En traitement"
	StatusShipped    Status = "Expédiée"
	StatusDelivered  Status = "Livrée"
	StatusCancelled  Status = "Annulée"
)

// Statuses lists every order status in workflow order.
var Statuses = []Status{StatusNew, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var (
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrMissingFullName = errors.New("full name is required")
	ErrMissingPhone    = errors.New("phone number is required")
	ErrMissingAddress  = errors.New("address is required")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmptyUpdate     = errors.New("order update has no fields")
	ErrInvalidAmount   = errors.New("total amount must be non-negative with at most 2 decimal places")
)

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// CustomerDetails is the contact block captured at checkout.
type CustomerDetails struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Email       string `json:"email,omitempty"`
}

func (c CustomerDetails) Validate() error {
	switch {
	case strings.TrimSpace(c.FullName) == "":
		return ErrMissingFullName
	case strings.TrimSpace(c.PhoneNumber) == "":
		return ErrMissingPhone
	case strings.TrimSpace(c.Address) == "":
		return ErrMissingAddress
	}
	return nil
}

// FormData is the snapshot of the ordered product taken at order time. It is
// never re-derived from the live product afterwards.
type FormData struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
}

type Order struct {
	ID              string          `json:"id"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	FormData        FormData        `json:"form_data"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Draft is an order as submitted, before the backend assigns id and created_at.
type Draft struct {
	CustomerDetails CustomerDetails `json:"customer_details"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          Status          `json:"status"`
	FormData        FormData        `json:"form_data"`
}

// Update is a partial order update; nil fields are left untouched.
type Update struct {
	Status          *Status          `json:"status,omitempty"`
	CustomerDetails *CustomerDetails `json:"customer_details,omitempty"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	FormData        *FormData        `json:"form_data,omitempty"`
}

func (u Update) Empty() bool {
	return u.Status == nil && u.CustomerDetails == nil && u.TotalAmount == nil && u.FormData == nil
}

// StatusUpdate builds an Update that only touches the status.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// Apply returns o with u applied.
func (o Order) Apply(u Update) Order {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.CustomerDetails != nil {
		o.CustomerDetails = *u.CustomerDetails
	}
	if u.TotalAmount != nil {
		o.TotalAmount = *u.TotalAmount
	}
	if u.FormData != nil {
		o.FormData = *u.FormData
	}
	return o
}
