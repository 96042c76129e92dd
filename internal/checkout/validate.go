package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/herofit/storefront/internal/api"
)

// Form is the card entry form. Field keys in FieldErrors follow the json tags.
type Form struct {
	CardNumber string `json:"cardNumber" validate:"cardlen,luhn"`
	Expiry     string `json:"expiry" validate:"expiry"`
	CVV        string `json:"cvv" validate:"cvv"`
	HolderName string `json:"holderName" validate:"holder"`
}

// Payment converts the form into the payload posted to the server, with the
// card number reduced to its digits.
func (f Form) Payment() api.CardPayment {
	return api.CardPayment{
		CardNumber: stripSpace(f.CardNumber),
		Expiry:     strings.TrimSpace(f.Expiry),
		CVV:        strings.TrimSpace(f.CVV),
		HolderName: strings.TrimSpace(f.HolderName),
	}
}

// FieldErrors maps a form field key to its message.
type FieldErrors map[string]string

// ValidationError blocks a submission before it reaches the network.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid payment form: " + strings.Join(parts, "; ")
}

// AsValidation extracts the field errors from err, if any.
func AsValidation(err error) (FieldErrors, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3}$`)
	digitsPattern = regexp.MustCompile(`^\d{13,19}$`)
)

var messages = map[string]string{
	"cardlen": "El número de tarjeta debe tener entre 13 y 19 dígitos.",
	"luhn":    "El número de tarjeta no es válido.",
	"expiry":  "La fecha de vencimiento debe tener formato MM/AA y no estar vencida.",
	"cvv":     "El CVV debe tener 3 dígitos.",
	"holder":  "Ingresa el nombre del titular.",
}

// Validator checks a Form. Each field is checked independently.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator registers the card rules on a fresh go-playground validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	mustRegister(v.validate, "cardlen", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(stripSpace(fl.Field().String()))
	})
	mustRegister(v.validate, "luhn", func(fl validator.FieldLevel) bool {
		return Luhn(stripSpace(fl.Field().String()))
	})
	mustRegister(v.validate, "expiry", func(fl validator.FieldLevel) bool {
		return ExpiryNotPast(fl.Field().String(), v.now())
	})
	mustRegister(v.validate, "cvv", func(fl validator.FieldLevel) bool {
		return cvvPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v.validate, "holder", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate returns the failing fields of f; an empty map means f may be submitted.
func (v *Validator) Validate(f Form) FieldErrors {
	out := FieldErrors{}
	err := v.validate.Struct(f)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out[fe.Field()] = msg
	}
	return out
}

// ValidCardNumber reports whether s, ignoring whitespace, is 13 to 19
// digits with a valid Luhn checksum.
func ValidCardNumber(s string) bool {
	digits := stripSpace(s)
	return digitsPattern.MatchString(digits) && Luhn(digits)
}

// Luhn reports whether the digit string has a checksum of 0 mod 10.
// Non-digit input is never valid.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ExpiryNotPast reports whether an MM/YY expiry is still valid at now. The
// card is valid through the end of month MM of year 2000+YY.
func ExpiryNotPast(expiry string, now time.Time) bool {
	expiry = strings.TrimSpace(expiry)
	if !expiryPattern.MatchString(expiry) {
		return false
	}
	month := int(expiry[0]-'0')*10 + int(expiry[1]-'0')
	year := 2000 + int(expiry[3]-'0')*10 + int(expiry[4]-'0')
	end := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	return end.After(now)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
