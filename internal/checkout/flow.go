package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
	"github.com/herofit/storefront/internal/cart"
)

var (
	// ErrNoRedirect is returned when a preference carries no usable URL.
	ErrNoRedirect = errors.New("payment preference has no redirect url")
	// ErrMissingOrder is returned by a return page with no order id and
	// nothing cached.
	ErrMissingOrder = errors.New("no order id to reconcile")
)

// DeclinedError is a payment the server answered but did not accept.
type DeclinedError struct {
	Message string
	Estado  string
}

func (e *DeclinedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "El pago fue rechazado."
}

// CartInvalidError carries the reasons /carrito/validar rejected the cart.
type CartInvalidError struct {
	Reasons []string
}

func (e *CartInvalidError) Error() string {
	if len(e.Reasons) == 0 {
		return "El carrito no se puede pagar."
	}
	return strings.Join(e.Reasons, "\n")
}

// Backend is the API surface the checkout flow drives. *api.Client
// implements it.
type Backend interface {
	StatusFetcher
	ValidateCart(ctx context.Context) (api.CartValidation, error)
	Pay(ctx context.Context, card api.CardPayment) (api.PaymentResult, error)
	Receipt(ctx context.Context, orderID string) (api.Receipt, error)
	CreatePreference(ctx context.Context, req api.PreferenceRequest) (api.Preference, error)
}

var _ Backend = (*api.Client)(nil)

// CartRefresher reloads the cart after a charge. *cart.Store implements it.
type CartRefresher interface {
	Refresh(ctx context.Context, opts ...cart.OpOption) error
}

// PendingOrders caches the order handed to the payment provider.
// *prefs.Store implements it.
type PendingOrders interface {
	PendingOrder() string
	SetPendingOrder(id string) error
}

// Options configure a Flow. Nil fields disable the matching side effect.
type Options struct {
	Cart      CartRefresher
	Pending   PendingOrders
	Validator *Validator
	Logger    logrus.FieldLogger
	// Sandbox selects the provider's sandbox redirect.
	Sandbox bool
}

// Flow runs card checkout and provider-redirect checkout.
type Flow struct {
	backend   Backend
	cart      CartRefresher
	pending   PendingOrders
	validator *Validator
	log       logrus.FieldLogger
	sandbox   bool
}

// NewFlow builds a Flow.
func NewFlow(backend Backend, opts Options) *Flow {
	f := &Flow{
		backend:   backend,
		cart:      opts.Cart,
		pending:   opts.Pending,
		validator: opts.Validator,
		log:       opts.Logger,
		sandbox:   opts.Sandbox,
	}
	if f.validator == nil {
		f.validator = NewValidator()
	}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}
	f.log = f.log.WithField("component", "checkout")
	return f
}

// Validator exposes the form validator for inline field feedback.
func (f *Flow) Validator() *Validator {
	return f.validator
}

// ValidateCart asks the server whether the cart can be paid.
func (f *Flow) ValidateCart(ctx context.Context) error {
	v, err := f.backend.ValidateCart(ctx)
	if err != nil {
		return fmt.Errorf("validate cart: %w", err)
	}
	if !v.Exito {
		return &CartInvalidError{Reasons: v.Errores}
	}
	return nil
}

// Result is a completed card payment.
type Result struct {
	Payment api.PaymentResult
	Receipt *api.Receipt
	// ReceiptErr is set when the charge succeeded but the receipt could not
	// be loaded.
	ReceiptErr error
}

// OrderID returns the charged order id.
func (r Result) OrderID() string {
	return r.Payment.OrderID.String()
}

// Pay validates the form locally and, only when it passes, charges the cart.
// On success the cart is refreshed in the background and the receipt loaded.
func (f *Flow) Pay(ctx context.Context, form Form) (Result, error) {
	if fields := f.validator.Validate(form); len(fields) > 0 {
		return Result{}, &ValidationError{Fields: fields}
	}

	res, err := f.backend.Pay(ctx, form.Payment())
	if err != nil {
		f.log.WithError(err).Warn("payment failed")
		return Result{}, fmt.Errorf("pay cart: %w", err)
	}
	if !res.Exito && res.OrderID == "" {
		return Result{Payment: res}, &DeclinedError{Message: res.Mensaje, Estado: res.Estado}
	}

	log := f.log.WithField("order_id", res.OrderID.String())
	log.Info("payment accepted")

	if f.cart != nil {
		if err := f.cart.Refresh(ctx, cart.Silent()); err != nil {
			log.WithError(err).Warn("cart refresh after payment failed")
		}
	}

	out := Result{Payment: res}
	receipt, err := f.backend.Receipt(ctx, res.OrderID.String())
	if err != nil {
		log.WithError(err).Warn("receipt fetch failed")
		out.ReceiptErr = fmt.Errorf("fetch receipt: %w", err)
		return out, nil
	}
	out.Receipt = &receipt
	return out, nil
}

// StartProviderCheckout creates a provider preference for orderID and returns
// the URL the buyer must be sent to. The order id is cached for the return
// page.
func (f *Flow) StartProviderCheckout(ctx context.Context, orderID string, payer api.Payer) (string, error) {
	orderID = strings.TrimSpace(orderID)
	pref, err := f.backend.CreatePreference(ctx, api.PreferenceRequest{OrderID: orderID, PayerInfo: payer})
	if err != nil {
		return "", fmt.Errorf("create preference: %w", err)
	}

	target := pref.InitPoint
	fallback := pref.SandboxInitPoint
	if f.sandbox {
		target, fallback = fallback, target
	}
	if strings.TrimSpace(target) == "" {
		target = fallback
	}
	if strings.TrimSpace(target) == "" {
		return "", ErrNoRedirect
	}

	if f.pending != nil {
		if err := f.pending.SetPendingOrder(orderID); err != nil {
			f.log.WithError(err).Warn("cache pending order failed")
		}
	}
	f.log.WithFields(logrus.Fields{"order_id": orderID, "sandbox": f.sandbox, "preference": pref.ID}).Info("provider checkout started")
	return target, nil
}

// ReturnKind identifies which provider return page was reached.
type ReturnKind string

const (
	ReturnSuccess ReturnKind = "success"
	ReturnFailure ReturnKind = "failure"
	ReturnPending ReturnKind = "pending"
)

// Return holds the parameters of a provider return URL.
type Return struct {
	Kind      ReturnKind
	PaymentID string
	OrderID   string
	Status    string
}

// ParseReturn reads a provider return URL. The page kind comes from the last
// path segment, or from the status when the path does not name one. A
// missing order id falls back to the cached pending order.
func (f *Flow) ParseReturn(rawURL string) (Return, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Return{}, fmt.Errorf("parse return url: %w", err)
	}
	q := u.Query()
	ret := Return{
		PaymentID: firstParam(q, "payment_id", "collection_id"),
		OrderID:   firstParam(q, "external_reference", "order_id"),
		Status:    firstParam(q, "status", "collection_status"),
	}
	if ret.OrderID == "" && f.pending != nil {
		ret.OrderID = f.pending.PendingOrder()
	}

	switch strings.ToLower(path.Base(u.Path)) {
	case "success", "exito":
		ret.Kind = ReturnSuccess
	case "failure", "error", "fallo":
		ret.Kind = ReturnFailure
	case "pending", "pendiente":
		ret.Kind = ReturnPending
	default:
		switch NormalizeStatus(ret.Status) {
		case StatusApproved:
			ret.Kind = ReturnSuccess
		case StatusRejected, StatusCancelled:
			ret.Kind = ReturnFailure
		default:
			ret.Kind = ReturnPending
		}
	}
	return ret, nil
}

func firstParam(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" && v != "null" {
			return v
		}
	}
	return ""
}

// Phase is the state of a return page.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseReady   Phase = "ready"
)

// ReturnPage is what a return page shows.
type ReturnPage struct {
	Kind      ReturnKind
	Phase     Phase
	OrderID   string
	PaymentID string
	Status    PaymentStatus
	// Verified is true when the provider confirmed the payment status.
	Verified bool
	Order    *api.Receipt
	Err      error
}

// Reconcile resolves any return page. Only success pages touch the network.
func (f *Flow) Reconcile(ctx context.Context, ret Return, observe func(ReturnPage)) ReturnPage {
	if ret.Kind == ReturnSuccess {
		return f.ReconcileSuccess(ctx, ret, observe)
	}
	status := NormalizeStatus(ret.Status)
	if status == StatusUnknown {
		status = NormalizeStatus(string(ret.Kind))
	}
	page := ReturnPage{Kind: ret.Kind, Phase: PhaseReady, OrderID: ret.OrderID, PaymentID: ret.PaymentID, Status: status}
	if observe != nil {
		observe(page)
	}
	return page
}

// ReconcileSuccess moves a success page from loading to error or ready. A
// payment id is verified with the provider first; a failed verification is
// logged and the order fetch still decides the outcome. observe, when set,
// sees every phase.
func (f *Flow) ReconcileSuccess(ctx context.Context, ret Return, observe func(ReturnPage)) ReturnPage {
	emit := func(p ReturnPage) ReturnPage {
		if observe != nil {
			observe(p)
		}
		return p
	}
	page := emit(ReturnPage{Kind: ReturnSuccess, Phase: PhaseLoading, OrderID: ret.OrderID, PaymentID: ret.PaymentID, Status: NormalizeStatus(ret.Status)})
	log := f.log.WithFields(logrus.Fields{"order_id": ret.OrderID, "payment_id": ret.PaymentID})

	if page.OrderID == "" {
		page.Phase = PhaseError
		page.Err = ErrMissingOrder
		return emit(page)
	}

	if page.PaymentID != "" {
		status, err := f.backend.PaymentStatus(ctx, page.PaymentID)
		if err != nil {
			log.WithError(err).Warn("payment verification failed; loading order anyway")
		} else {
			page.Status = NormalizeStatus(status.Status)
			page.Verified = true
		}
	}

	order, err := f.backend.Receipt(ctx, page.OrderID)
	if err != nil {
		log.WithError(err).Warn("order fetch failed")
		page.Phase = PhaseError
		page.Err = fmt.Errorf("fetch order %s: %w", page.OrderID, err)
		return emit(page)
	}

	page.Phase = PhaseReady
	page.Order = &order
	if f.pending != nil && f.pending.PendingOrder() == page.OrderID {
		if err := f.pending.SetPendingOrder(""); err != nil {
			log.WithError(err).Warn("clear pending order failed")
		}
	}
	log.WithField("status", page.Status).Info("order reconciled")
	return emit(page)
}
