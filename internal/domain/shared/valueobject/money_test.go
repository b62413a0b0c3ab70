package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Currency
		wantErr bool
	}{
		{name: "upper case", input: "USD", want: "USD"},
		{name: "lower case is normalized", input: "eur", want: "EUR"},
		{name: "surrounding space", input: " gbp ", want: "GBP"},
		{name: "too short", input: "US", wantErr: true},
		{name: "digits", input: "U5D", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("150.00"), "USD")
	require.NoError(t, err)
	assert.Equal(t, Currency("USD"), m.Currency())
	assert.True(t, m.IsPositive())

	_, err = NewMoney(decimal.NewFromInt(1), "")
	assert.ErrorContains(t, err, "currency cannot be empty")
}

func TestMoney_Add(t *testing.T) {
	a, _ := NewMoneyFromString("100.25", "USD")
	b, _ := NewMoneyFromString("49.75", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))

	eur, _ := NewMoneyFromString("1", "EUR")
	_, err = a.Add(eur)
	assert.ErrorContains(t, err, "different currencies")
}

func TestMoney_EqualsIgnoresScale(t *testing.T) {
	a, _ := NewMoneyFromString("150", "USD")
	b, _ := NewMoneyFromString("150.00", "USD")
	c, _ := NewMoneyFromString("150.00", "EUR")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.Equal(t, "150.00 USD", a.String())
}

func TestMoney_JSON(t *testing.T) {
	m, _ := NewMoneyFromString("150.5", "USD")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"150.5","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1"}`), &decoded))
}

func TestZero(t *testing.T) {
	z := Zero("USD")
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
}
