package services

import (
	"regexp"
	"strconv"
	"strings"
	"ticketing/src/types"
	"time"

	"github.com/go-playground/validator/v10"
)

// CardDetails is a new card as typed by the buyer. It is never persisted in
// full; only brand, last4, holder and expiry survive.
type CardDetails struct {
	Number     string `validate:"required,number,min=13,max=19"`
	HolderName string `validate:"required,min=2"`
	Expiry     string `validate:"required,card_expiry"`
	CVC        string `validate:"omitempty,number,min=3,max=4"`
}

type ValidCard struct {
	Number     string
	Brand      string
	Last4      string
	HolderName string
	ExpMonth   int
	ExpYear    int
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)

var cardValidate = newCardValidator()

func newCardValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("card_expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	return v
}

var cardFieldNames = map[string]string{
	"Number":     "number",
	"HolderName": "holder_name",
	"Expiry":     "expiry",
	"CVC":        "cvc",
}

var cardFieldReasons = map[string]string{
	"number":      "card number must be 13-19 digits",
	"holder_name": "holder name must be at least 2 characters",
	"expiry":      "expiry must be MM/YY with month 01-12",
	"cvc":         "cvc must be 3 or 4 digits",
}

// ValidateCard normalizes and checks a new card. Expiry is valid through the
// last day of its month.
func ValidateCard(c CardDetails, now time.Time) (*ValidCard, error) {
	c.Number = strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	c.HolderName = strings.TrimSpace(c.HolderName)
	c.Expiry = strings.TrimSpace(c.Expiry)

	if err := cardValidate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field := cardFieldNames[verrs[0].Field()]
			return nil, types.ErrInvalidCard.
				Withf("%s", cardFieldReasons[field]).
				With(map[string]any{"field": field})
		}
		return nil, types.ErrInvalidCard
	}

	m := expiryPattern.FindStringSubmatch(c.Expiry)
	month, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	year := 2000 + yy
	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(endOfMonth) {
		return nil, types.ErrInvalidCard.Withf("card has expired").With(map[string]any{"field": "expiry"})
	}

	return &ValidCard{
		Number:     c.Number,
		Brand:      cardBrand(c.Number),
		Last4:      c.Number[len(c.Number)-4:],
		HolderName: c.HolderName,
		ExpMonth:   month,
		ExpYear:    year,
	}, nil
}

func cardBrand(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "visa"
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "amex"
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"):
		return "discover"
	}
	if len(number) >= 2 {
		if p, _ := strconv.Atoi(number[:2]); p >= 51 && p <= 55 {
			return "mastercard"
		}
	}
	if len(number) >= 4 {
		if p, _ := strconv.Atoi(number[:4]); p >= 2221 && p <= 2720 {
			return "mastercard"
		}
	}
	return "card"
}
