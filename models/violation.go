package models

import (
	"errors"
	"fmt"
	"strconv"
)

type ViolationKind string

const (
	ViolationKindCreditLimit    ViolationKind = "credit_limit"
	ViolationKindStockLimit     ViolationKind = "stock_limit"
	ViolationKindRequestedLimit ViolationKind = "requested_limit"
)

func (k ViolationKind) IsValid() bool {
	switch k {
	case ViolationKindCreditLimit, ViolationKindStockLimit, ViolationKindRequestedLimit:
		return true
	}
	return false
}

func (k ViolationKind) MarshalText() ([]byte, error) {
	return []byte(k), nil
}

func (k *ViolationKind) UnmarshalText(text []byte) error {
	kind := ViolationKind(text)
	if !kind.IsValid() {
		return errors.New("invalid violation kind " + strconv.Quote(string(text)))
	}
	*k = kind
	return nil
}

// Violation is a non-fatal diagnostic attached to an engine result.
type Violation struct {
	OrderId string        `json:"order_id"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return v.Message
}

func creditLimitViolation(orderId string, maxQty int) Violation {
	return Violation{
		OrderId: orderId,
		Kind:    ViolationKindCreditLimit,
		Message: fmt.Sprintf("%s: quantity limited by customer credit (max %d)", orderId, maxQty),
	}
}

func stockLimitViolation(orderId string, maxQty int) Violation {
	return Violation{
		OrderId: orderId,
		Kind:    ViolationKindStockLimit,
		Message: fmt.Sprintf("%s: quantity limited by available stock (max %d)", orderId, maxQty),
	}
}

func overCreditViolation(order *Order, credit string) Violation {
	return Violation{
		OrderId: order.ID,
		Kind:    ViolationKindCreditLimit,
		Message: fmt.Sprintf("%s: allocation of %d exceeds customer credit %s", order.ID, order.AllocatedQty, credit),
	}
}

func overRequestedViolation(order *Order) Violation {
	return Violation{
		OrderId: order.ID,
		Kind:    ViolationKindRequestedLimit,
		Message: fmt.Sprintf("%s: allocation of %d exceeds requested quantity %d", order.ID, order.AllocatedQty, order.RequestedQty),
	}
}
