package money

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a := New(10)
	b := New(3)

	assert.Equal(t, 0, a.Add(b).Cmp(New(13)))
	assert.Equal(t, 0, a.Sub(b).Cmp(New(7)))
	assert.Equal(t, 0, a.Mul(b).Cmp(New(30)))
	assert.True(t, a.GreaterThan(b))
	assert.True(t, b.LessThan(a))
}

func TestDiv_ByZeroReturnsZero(t *testing.T) {
	assert.True(t, New(10).Div(Zero, 8).IsZero())
}

func TestDiv_RoundsToRequestedPlaces(t *testing.T) {
	got, err := NewFromString("10")
	require.NoError(t, err)
	three, err := NewFromString("3")
	require.NoError(t, err)

	assert.Equal(t, "3.333333", got.Div(three, 6).String())
}

func TestBpsOf(t *testing.T) {
	got := New(1000).BpsOf(50)
	assert.Equal(t, 0, got.Cmp(New(5)))
}

func TestBpsRatio(t *testing.T) {
	assert.Equal(t, 500, BpsRatio(New(5), New(100)))
	assert.Equal(t, 0, BpsRatio(New(5), Zero))
}

func TestRoundDown_TruncatesTowardZero(t *testing.T) {
	a, err := NewFromString("1.999")
	require.NoError(t, err)
	assert.Equal(t, "1.99", a.RoundDown(2).String())
}

func TestRoundHalfEven_BankersRounding(t *testing.T) {
	a, err := NewFromString("2.5")
	require.NoError(t, err)
	assert.Equal(t, "2", a.RoundHalfEven(0).String())

	b, err := NewFromString("3.5")
	require.NoError(t, err)
	assert.Equal(t, "4", b.RoundHalfEven(0).String())
}

func TestRawUnitsRoundTrip(t *testing.T) {
	a, err := NewFromString("1.23")
	require.NoError(t, err)
	raw := a.ToRawUnits(6)
	assert.Equal(t, big.NewInt(1_230_000), raw)

	back := FromRawUnits(raw, 6)
	assert.Equal(t, 0, back.Cmp(a))
}

func TestToRawUnits_RoundsDown(t *testing.T) {
	a, err := NewFromString("1.2399999")
	require.NoError(t, err)
	raw := a.ToRawUnits(6)
	assert.Equal(t, big.NewInt(1_239_999), raw)
}

func TestJSONRoundTrip(t *testing.T) {
	a, err := NewFromString("42.5")
	require.NoError(t, err)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"42.5"`, string(b))

	var out Amount
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, 0, out.Cmp(a))
}

func TestUnmarshalJSON_NullAndEmptyAreZero(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte("null"), &a))
	assert.True(t, a.IsZero())

	var b Amount
	require.NoError(t, json.Unmarshal([]byte(`""`), &b))
	assert.True(t, b.IsZero())
}

func TestNewFromString_RejectsMalformed(t *testing.T) {
	_, err := NewFromString("not-a-number")
	assert.Error(t, err)
}
