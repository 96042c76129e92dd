package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CreatePreference asks the server for a payment-provider checkout preference.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return Preference{}, fmt.Errorf("order id required")
	}
	var pref Preference
	if err := c.postJSON(ctx, "/api/payments/create-preference", req, &pref); err != nil {
		return Preference{}, err
	}
	return pref, nil
}

// PaymentStatus fetches the provider status of a payment.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (PaymentStatusResponse, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentStatusResponse{}, fmt.Errorf("payment id required")
	}
	var status PaymentStatusResponse
	if err := c.get(ctx, "/api/payments/status/"+url.PathEscape(paymentID), nil, &status); err != nil {
		return PaymentStatusResponse{}, err
	}
	return status, nil
}
