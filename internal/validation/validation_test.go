package validation

import (
	"strings"
	"testing"

	"github.com/openHPI/velo/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	valid := map[string]dto.ResourceID{
		"0":                 0,
		"1":                 1,
		"42":                42,
		"-3":                -3,
		"2.0":               2,
		"1e3":               1000,
		"9007199254740991":  dto.MaxSafeInteger,
		"-9007199254740991": -dto.MaxSafeInteger,
	}
	for raw, expected := range valid {
		t.Run("accepts "+raw, func(t *testing.T) {
			id, err := ValidateID(raw)
			require.NoError(t, err)
			assert.Equal(t, expected, id)
		})
	}

	invalid := []string{"", "abc", "1.5", "0.1", "NaN", "Inf", "-Infinity", "9007199254740992", "1e300", "12abc",
		"0x10", "0x1p3", "-0X1P3", "+0x8", " 0x10"}
	for _, raw := range invalid {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ValidateID(raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidatePayload(t *testing.T) {
	t.Run("accepts brand and color", func(t *testing.T) {
		payload, err := ValidatePayload(map[string]any{"brand": "Veloretti", "color": "green"})
		require.NoError(t, err)
		assert.Equal(t, dto.Payload{Brand: "Veloretti", Color: "green"}, payload)
	})

	invalid := map[string]any{
		"missing color":     map[string]any{"brand": "Veloretti"},
		"missing brand":     map[string]any{"color": "green"},
		"empty object":      map[string]any{},
		"additional field":  map[string]any{"brand": "Veloretti", "color": "green", "wheels": "2"},
		"number as color":   map[string]any{"brand": "Veloretti", "color": 42.0},
		"null as brand":     map[string]any{"brand": nil, "color": "green"},
		"capitalized field": map[string]any{"Brand": "Veloretti", "color": "green"},
		"null":              nil,
		"string":            "Veloretti",
		"array":             []any{"Veloretti", "green"},
	}
	for name, raw := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ValidatePayload(raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateCreateBody(t *testing.T) {
	t.Run("accepts envelope with valid data", func(t *testing.T) {
		payload, err := ValidateCreateBody(strings.NewReader(`{"data": {"brand": "Batavus", "color": "yellow"}}`))
		require.NoError(t, err)
		assert.Equal(t, dto.Payload{Brand: "Batavus", Color: "yellow"}, payload)
	})

	t.Run("ignores other envelope fields", func(t *testing.T) {
		payload, err := ValidateCreateBody(
			strings.NewReader(`{"data": {"brand": "Batavus", "color": "yellow"}, "comment": "new"}`))
		require.NoError(t, err)
		assert.Equal(t, dto.Payload{Brand: "Batavus", Color: "yellow"}, payload)
	})

	t.Run("accepts trailing whitespace", func(t *testing.T) {
		_, err := ValidateCreateBody(strings.NewReader(`{"data": {"brand": "Batavus", "color": "yellow"}}` + "\n"))
		assert.NoError(t, err)
	})

	invalid := map[string]string{
		"empty body":       ``,
		"broken json":      `{"data": `,
		"null":             `null`,
		"array":            `[]`,
		"missing data":     `{"brand": "Batavus", "color": "yellow"}`,
		"null data":        `{"data": null}`,
		"invalid data":     `{"data": {"brand": "Batavus"}}`,
		"trailing data":    `{"data": {"brand": "Batavus", "color": "yellow"}} {}`,
		"trailing garbage": `{"data": {"brand": "Batavus", "color": "yellow"}}]`,
	}
	for name, body := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ValidateCreateBody(strings.NewReader(body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateFixture(t *testing.T) {
	valid := dto.Payload{Brand: "Gazelle", Color: "black"}
	assert.NoError(t, ValidateFixture(dto.MaxSafeInteger, valid))
	assert.NoError(t, ValidateFixture(-dto.MaxSafeInteger, valid))

	assert.ErrorIs(t, ValidateFixture(dto.MaxSafeInteger+1, valid), ErrInvalid)
	assert.ErrorIs(t, ValidateFixture(-dto.MaxSafeInteger-1, valid), ErrInvalid)
	assert.ErrorIs(t, ValidateFixture(1, dto.Payload{Brand: "Gazelle"}), ErrInvalid)
	assert.ErrorIs(t, ValidateFixture(1, dto.Payload{Color: "black"}), ErrInvalid)
}
