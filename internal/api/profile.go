package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PlanKind selects one of the profile plan collections.
type PlanKind string

const (
	HeroPlans    PlanKind = "hero-plans"
	DietPlans    PlanKind = "diet-plans"
	RoutinePlans PlanKind = "routine-plans"
)

// Profile returns the raw profile record.
func (c *Client) Profile(ctx context.Context) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.get(ctx, "/profile/me", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// UpdateProfile applies a partial profile update and returns the new record.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.sendJSON(ctx, http.MethodPut, "/profile/me", fields, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Plans lists the plans of one kind.
func (c *Client) Plans(ctx context.Context, kind PlanKind) ([]Plan, error) {
	var plans []Plan
	if err := c.get(ctx, "/profile/"+string(kind), nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Plan fetches a plan by id.
func (c *Client) Plan(ctx context.Context, kind PlanKind, id string) (Plan, error) {
	p, err := planPath(kind, id)
	if err != nil {
		return Plan{}, err
	}
	var plan Plan
	if err := c.get(ctx, p, nil, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// CreatePlan asks the server to generate a new plan from the given inputs.
func (c *Client) CreatePlan(ctx context.Context, kind PlanKind, body any) (Plan, error) {
	var plan Plan
	if err := c.postJSON(ctx, "/profile/"+string(kind), body, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// HeroPlanPDF downloads the PDF rendering of a hero plan.
func (c *Client) HeroPlanPDF(ctx context.Context, id string) ([]byte, error) {
	p, err := planPath(HeroPlans, id)
	if err != nil {
		return nil, err
	}
	var pdf []byte
	if err := c.get(ctx, p+"/pdf", nil, &pdf); err != nil {
		return nil, err
	}
	return pdf, nil
}

func planPath(kind PlanKind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("plan id required")
	}
	return "/profile/" + string(kind) + "/" + url.PathEscape(id), nil
}
