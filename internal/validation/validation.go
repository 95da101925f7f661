// Package validation checks identifiers and payloads of incoming requests before they reach the storage.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/openHPI/velo/pkg/dto"
)

var (
	// ErrInvalid is wrapped by every error of this package.
	ErrInvalid = errors.New("invalid request")

	errNotAnObject  = errors.New("not an object")
	errMissingData  = errors.New("data is missing")
	errNotAString   = errors.New("value must be a string")
	errMissingField = errors.New("brand and color must be set")
	errTrailingData = errors.New("unexpected data after the JSON value")
)

const dataKey = "data"

// ValidateID converts the raw id into a ResourceID.
// It accepts every decimal number representation that is finite, integral and whose magnitude is at most
// dto.MaxSafeInteger, e.g. "42", "-3", "2.0" or "1e3". Hexadecimal literals such as "0x10" are rejected.
func ValidateID(raw string) (dto.ResourceID, error) {
	trimmed := strings.TrimSpace(raw)
	if isHexadecimal(trimmed) {
		return 0, fmt.Errorf("%w: id %q is not a decimal number", ErrInvalid, raw)
	}
	number, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || raw == "" {
		return 0, fmt.Errorf("%w: id %q is not a number", ErrInvalid, raw)
	}
	if math.IsInf(number, 0) || math.IsNaN(number) || math.Trunc(number) != number {
		return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalid, raw)
	}
	if math.Abs(number) > dto.MaxSafeInteger {
		return 0, fmt.Errorf("%w: id %q exceeds the safe integer range", ErrInvalid, raw)
	}
	return dto.ResourceID(number), nil
}

// isHexadecimal reports whether the optionally signed number starts with the prefix 0x that strconv.ParseFloat
// would interpret as a hexadecimal mantissa.
func isHexadecimal(number string) bool {
	unsigned := strings.TrimLeft(number, "+-")
	return len(unsigned) >= 2 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X')
}

// ValidatePayload accepts only an object holding exactly the string fields brand and color.
func ValidatePayload(raw any) (dto.Payload, error) {
	var payload dto.Payload
	object, ok := raw.(map[string]any)
	if !ok {
		return payload, fmt.Errorf("%w: payload: %w", ErrInvalid, errNotAnObject)
	}
	// mapstructure treats null like an absent value, but a null field is neither absent nor a string.
	for key, value := range object {
		if _, isString := value.(string); !isString {
			return payload, fmt.Errorf("%w: payload field %q: %w", ErrInvalid, key, errNotAString)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		ErrorUnset:  true,
		MatchName:   func(mapKey, fieldName string) bool { return mapKey == fieldName },
		Result:      &payload,
	})
	if err != nil {
		return payload, fmt.Errorf("error creating payload decoder: %w", err)
	}
	if err := decoder.Decode(object); err != nil {
		return dto.Payload{}, fmt.Errorf("%w: payload: %w", ErrInvalid, err)
	}
	return payload, nil
}

// ValidateCreateBody parses a JSON request body of the form {"data": {"brand": ..., "color": ...}}
// and returns the validated payload. Other fields of the envelope are ignored, data after the envelope is not.
func ValidateCreateBody(body io.Reader) (dto.Payload, error) {
	decoder := json.NewDecoder(body)
	var envelope any
	if err := decoder.Decode(&envelope); err != nil {
		return dto.Payload{}, fmt.Errorf("%w: error parsing JSON request body: %w", ErrInvalid, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return dto.Payload{}, fmt.Errorf("%w: body: %w", ErrInvalid, errTrailingData)
	}
	object, ok := envelope.(map[string]any)
	if !ok {
		return dto.Payload{}, fmt.Errorf("%w: body: %w", ErrInvalid, errNotAnObject)
	}
	data, ok := object[dataKey]
	if !ok {
		return dto.Payload{}, fmt.Errorf("%w: body: %w", ErrInvalid, errMissingData)
	}
	return ValidatePayload(data)
}

// ValidateFixture checks an object that is stored without passing the API, e.g. from the configuration file.
// As a decoded configuration cannot tell a missing field from an empty one, both brand and color must be set.
func ValidateFixture(id dto.ResourceID, payload dto.Payload) error {
	if id > dto.MaxSafeInteger || id < -dto.MaxSafeInteger {
		return fmt.Errorf("%w: id %d exceeds the safe integer range", ErrInvalid, id)
	}
	if payload.Brand == "" || payload.Color == "" {
		return fmt.Errorf("%w: fixture %d: %w", ErrInvalid, id, errMissingField)
	}
	return nil
}
