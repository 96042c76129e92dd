package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// CartState returns the raw cart payload from /carrito/estado.
func (c *Client) CartState(ctx context.Context) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.get(ctx, "/carrito/estado", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AddToCart increments a product by one and returns the resulting cart.
func (c *Client) AddToCart(ctx context.Context, id string) (json.RawMessage, error) {
	return c.cartMutation(ctx, "agregar", id)
}

// SubtractFromCart decrements a product by one and returns the resulting cart.
func (c *Client) SubtractFromCart(ctx context.Context, id string) (json.RawMessage, error) {
	return c.cartMutation(ctx, "restar", id)
}

// RemoveFromCart drops a product line and returns the resulting cart.
func (c *Client) RemoveFromCart(ctx context.Context, id string) (json.RawMessage, error) {
	return c.cartMutation(ctx, "eliminar", id)
}

// ClearCart empties the cart and returns the resulting cart.
func (c *Client) ClearCart(ctx context.Context) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.postJSON(ctx, "/carrito/limpiar", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ValidateCart asks the server whether the cart can be checked out.
func (c *Client) ValidateCart(ctx context.Context) (CartValidation, error) {
	var v CartValidation
	if err := c.postJSON(ctx, "/carrito/validar", nil, &v); err != nil {
		return CartValidation{}, err
	}
	return v, nil
}

// Pay submits the card fields and charges the cart.
func (c *Client) Pay(ctx context.Context, card CardPayment) (PaymentResult, error) {
	var res PaymentResult
	if err := c.postJSON(ctx, "/carrito/pagar", card, &res); err != nil {
		return PaymentResult{}, err
	}
	return res, nil
}

// Receipt fetches the receipt for orderID, or for the latest order when
// orderID is empty.
func (c *Client) Receipt(ctx context.Context, orderID string) (Receipt, error) {
	values := url.Values{}
	if id := strings.TrimSpace(orderID); id != "" {
		values.Set("order", id)
	}
	var r Receipt
	if err := c.get(ctx, "/carrito/boleta_json", values, &r); err != nil {
		return Receipt{}, err
	}
	return r, nil
}

func (c *Client) cartMutation(ctx context.Context, action, id string) (json.RawMessage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("product id required")
	}
	var payload json.RawMessage
	if err := c.postJSON(ctx, "/carrito/"+action+"/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
