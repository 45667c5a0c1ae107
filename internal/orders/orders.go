// Package orders is a mock order-status API. It stands in for the real
// commerce backend at the same call shape: endpoint plus method in, a
// structured result out.
package orders

import (
	"fmt"
	"strconv"
	"strings"
)

// Order is the payload for a successful lookup.
type Order struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// Result is the lookup outcome. Status is "ok" or "error".
type Result struct {
	Status   string `json:"status"`
	Endpoint string `json:"endpoint,omitempty"`
	Data     *Order `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Lookup serves GET /orders/{id}. Odd numeric ids report "processing",
// everything else "shipped"; any other endpoint or method is an error
// result, not a failure.
func Lookup(endpoint, method string) Result {
	if strings.EqualFold(method, "GET") && strings.HasPrefix(endpoint, "/orders/") {
		parts := strings.Split(endpoint, "/")
		orderID := parts[len(parts)-1]
		state := "shipped"
		if n, err := strconv.Atoi(orderID); err == nil && n%2 == 1 {
			state = "processing"
		}
		return Result{
			Status:   "ok",
			Endpoint: endpoint,
			Data:     &Order{OrderID: orderID, State: state},
		}
	}
	return Result{
		Status:  "error",
		Message: fmt.Sprintf("Unknown endpoint: %s %s", strings.ToUpper(method), endpoint),
	}
}
