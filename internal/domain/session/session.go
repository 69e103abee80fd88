package session

import (
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentOnlineTransfer PaymentMethod = "Online Transfer"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCashOnDelivery, PaymentOnlineTransfer}

// ParsePaymentMethod accepts the display names and their compact spellings
// ("CashOnDelivery", "cash_on_delivery"), ignoring case.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	key := normalizeMethod(raw)
	for _, m := range PaymentMethods {
		if key == normalizeMethod(string(m)) {
			return m, nil
		}
	}
	return "", shoperr.Validation(shoperr.FieldError{Field: "payment_method", Message: "invalid payment method"})
}

func normalizeMethod(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// PhonePolicy decides which phone numbers a login accepts.
type PhonePolicy string

const (
	// PhoneStandard requires a digit-only string of length 10 or 11.
	PhoneStandard PhonePolicy = "standard"
	// PhoneStrict drops every non-digit, then requires the "03" mobile prefix.
	PhoneStrict PhonePolicy = "strict"
)

// NormalizePhone applies the policy and returns the stored form.
func (p PhonePolicy) NormalizePhone(raw string) (string, bool) {
	phone := strings.TrimSpace(raw)
	if p == PhoneStrict {
		phone = digitsOnly(phone)
		if !strings.HasPrefix(phone, "03") {
			return "", false
		}
	}
	if !isDigits(phone) || (len(phone) != 10 && len(phone) != 11) {
		return "", false
	}
	return phone, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// User is the logged-in shopper. PaymentMethod stays empty until a checkout succeeds.
type User struct {
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
}

// Details is the unvalidated login input.
type Details struct {
	Name    string
	Phone   string
	Address string
}

// NewUser validates details under policy, reporting every offending field at once.
func NewUser(d Details, policy PhonePolicy) (*User, error) {
	var problems []shoperr.FieldError

	name := strings.TrimSpace(d.Name)
	if name == "" {
		problems = append(problems, shoperr.FieldError{Field: "name", Message: "is required"})
	}
	phone, ok := policy.NormalizePhone(d.Phone)
	if !ok {
		msg := "must be 10 or 11 digits"
		if policy == PhoneStrict {
			msg = "must start with 03 and be 10 or 11 digits"
		}
		problems = append(problems, shoperr.FieldError{Field: "phone", Message: msg})
	}
	address := strings.TrimSpace(d.Address)
	if address == "" {
		problems = append(problems, shoperr.FieldError{Field: "address", Message: "is required"})
	}
	if len(problems) > 0 {
		return nil, shoperr.Validation(problems...)
	}

	return &User{Name: name, Phone: phone, Address: address}, nil
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
