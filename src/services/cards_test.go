package services

import (
	"testing"
	"ticketing/src/types"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCard(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	good := CardDetails{Number: "4242 4242 4242 4242", HolderName: "Jo Buyer", Expiry: "12/30", CVC: "123"}

	valid, err := ValidateCard(good, now)
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", valid.Number)
	assert.Equal(t, "visa", valid.Brand)
	assert.Equal(t, "4242", valid.Last4)
	assert.Equal(t, 12, valid.ExpMonth)
	assert.Equal(t, 2030, valid.ExpYear)

	cases := map[string]struct {
		mutate func(c *CardDetails)
		field  string
	}{
		"short number":   {func(c *CardDetails) { c.Number = "4242" }, "number"},
		"letters":        {func(c *CardDetails) { c.Number = "4242abcd42424242" }, "number"},
		"empty holder":   {func(c *CardDetails) { c.HolderName = " " }, "holder_name"},
		"month 13":       {func(c *CardDetails) { c.Expiry = "13/30" }, "expiry"},
		"bad format":     {func(c *CardDetails) { c.Expiry = "1230" }, "expiry"},
		"expired":        {func(c *CardDetails) { c.Expiry = "09/26" }, "expiry"},
		"cvc too long":   {func(c *CardDetails) { c.CVC = "12345" }, "cvc"},
		"cvc not digits": {func(c *CardDetails) { c.CVC = "12a" }, "cvc"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := good
			tc.mutate(&c)
			_, err := ValidateCard(c, now)
			require.ErrorIs(t, err, types.ErrInvalidCard)
			appErr, _ := types.AsAppError(err)
			assert.Equal(t, tc.field, appErr.Details["field"])
		})
	}
}

func TestValidateCardCurrentMonthStillValid(t *testing.T) {
	now := time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC)
	_, err := ValidateCard(CardDetails{Number: "5555555555554444", HolderName: "Jo", Expiry: "10/26"}, now)
	assert.NoError(t, err)

	_, err = ValidateCard(CardDetails{Number: "5555555555554444", HolderName: "Jo", Expiry: "10/26"}, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, types.ErrInvalidCard)
}

func TestCardBrand(t *testing.T) {
	assert.Equal(t, "visa", cardBrand("4111111111111111"))
	assert.Equal(t, "mastercard", cardBrand("5555555555554444"))
	assert.Equal(t, "mastercard", cardBrand("2223003122003222"))
	assert.Equal(t, "amex", cardBrand("378282246310005"))
	assert.Equal(t, "discover", cardBrand("6011111111111117"))
	assert.Equal(t, "card", cardBrand("9999999999999"))
}
