package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Amount is a monetary or numeric value the backend sends either as a JSON
// number or as a numeric string. Anything else decodes to zero.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount(ParseNumber(data))
	return nil
}

// ParseNumber reads a JSON number or numeric string, returning 0 otherwise.
func ParseNumber(data []byte) float64 {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0
	}
	return NumberFrom(v)
}

// NumberFrom converts a decoded JSON value into a float64, returning 0 for
// non-numeric or non-finite input.
func NumberFrom(v any) float64 {
	f := numberFrom(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func numberFrom(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Ref is an identifier the backend sends as a number or a string.
type Ref string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("ref: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

func (r Ref) String() string { return string(r) }

// Product mirrors a catalog entry from /producto.
type Product struct {
	ID          Ref      `json:"id"`
	Nombre      string   `json:"nombre"`
	Descripcion string   `json:"descripcion"`
	Precio      Amount   `json:"precio"`
	Stock       int      `json:"stock"`
	Categoria   string   `json:"categoria"`
	Imagen      string   `json:"imagen"`
	Slug        string   `json:"slug"`
	Tags        []string `json:"tags,omitempty"`
}

// productList accepts either a bare array or an object wrapping one.
type productList []Product

func (l *productList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []Product
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var wrapped struct {
		Productos []Product `json:"productos"`
		Items     []Product `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	if wrapped.Productos != nil {
		*l = wrapped.Productos
	} else {
		*l = wrapped.Items
	}
	return nil
}

// CartValidation mirrors /carrito/validar.
type CartValidation struct {
	Exito   bool     `json:"exito"`
	Errores []string `json:"errores,omitempty"`
}

// CardPayment is the raw card payload posted to /carrito/pagar.
type CardPayment struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

// PaymentResult mirrors the /carrito/pagar response.
type PaymentResult struct {
	Exito   bool   `json:"exito"`
	OrderID Ref    `json:"order_id"`
	Mensaje string `json:"mensaje"`
	Estado  string `json:"estado"`
}

// Receipt mirrors /carrito/boleta_json.
type Receipt struct {
	OrderID Ref           `json:"order_id"`
	Fecha   string        `json:"fecha"`
	Estado  string        `json:"estado"`
	Items   []ReceiptLine `json:"items"`
	Total   Amount        `json:"total"`
}

// ReceiptLine is a single receipt row.
type ReceiptLine struct {
	Nombre         string `json:"nombre"`
	Cantidad       int    `json:"cantidad"`
	PrecioUnitario Amount `json:"precio_unitario"`
	Subtotal       Amount `json:"subtotal"`
}

// Payer identifies the buyer for the payment provider.
type Payer struct {
	Name    string `json:"name"`
	Surname string `json:"surname,omitempty"`
	Email   string `json:"email"`
}

// PreferenceRequest is posted to /api/payments/create-preference.
type PreferenceRequest struct {
	OrderID   string `json:"order_id"`
	PayerInfo Payer  `json:"payer_info"`
}

// Preference holds the provider redirect targets.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// PaymentStatusResponse mirrors /api/payments/status/:id.
type PaymentStatusResponse struct {
	ID                Ref    `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail"`
	ExternalReference string `json:"external_reference"`
	OrderID           Ref    `json:"order_id"`
}

// Plan is a hero, diet or routine plan from /profile.
type Plan struct {
	ID        Ref             `json:"id"`
	Titulo    string          `json:"titulo"`
	Objetivo  string          `json:"objetivo"`
	CreadoEn  string          `json:"creado_en"`
	Contenido json.RawMessage `json:"contenido,omitempty"`
}

// Order is an admin order row.
type Order struct {
	ID      Ref    `json:"id"`
	Usuario string `json:"usuario"`
	Email   string `json:"email"`
	Total   Amount `json:"total"`
	Estado  string `json:"estado"`
	Fecha   string `json:"fecha"`
}

// OrdersSummary mirrors /admin/orders/summary.
type OrdersSummary struct {
	TotalOrders  int            `json:"total_orders"`
	TotalRevenue Amount         `json:"total_revenue"`
	ByStatus     map[string]int `json:"by_status"`
}

// OrderFilter narrows admin order queries.
type OrderFilter struct {
	Status string
	From   time.Time
	To     time.Time
}

// ChatMessage is one bot reply from /chat/send.
type ChatMessage struct {
	Text string `json:"text"`
}

// Routine mirrors /chat/routine/:id.
type Routine struct {
	ID     Ref          `json:"id"`
	Nombre string       `json:"nombre"`
	Nivel  string       `json:"nivel"`
	Dias   []RoutineDay `json:"dias"`
}

// RoutineDay groups the exercises for one training day.
type RoutineDay struct {
	Dia        string     `json:"dia"`
	Ejercicios []Exercise `json:"ejercicios"`
}

// Exercise is a single routine entry.
type Exercise struct {
	Nombre       string `json:"nombre"`
	Series       int    `json:"series"`
	Repeticiones string `json:"repeticiones"`
}

// MFASetup is returned when a user starts enrolling a TOTP factor.
type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}
