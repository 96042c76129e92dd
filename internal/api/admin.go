package api

import (
	"context"
	"net/url"
	"strings"
)

const filterDateLayout = "2006-01-02"

// Orders lists orders for the admin sales panel.
func (c *Client) Orders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var orders []Order
	if err := c.get(ctx, "/admin/orders", filter.values(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder registers a manual order from the admin panel.
func (c *Client) CreateOrder(ctx context.Context, body any) (Order, error) {
	var order Order
	if err := c.postJSON(ctx, "/admin/orders", body, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// OrdersSummary returns aggregated sales figures for the filter window.
func (c *Client) OrdersSummary(ctx context.Context, filter OrderFilter) (OrdersSummary, error) {
	var summary OrdersSummary
	if err := c.get(ctx, "/admin/orders/summary", filter.values(), &summary); err != nil {
		return OrdersSummary{}, err
	}
	return summary, nil
}

func (f OrderFilter) values() url.Values {
	values := url.Values{}
	if status := strings.TrimSpace(f.Status); status != "" {
		values.Set("status", status)
	}
	if !f.From.IsZero() {
		values.Set("from", f.From.Format(filterDateLayout))
	}
	if !f.To.IsZero() {
		values.Set("to", f.To.Format(filterDateLayout))
	}
	return values
}
