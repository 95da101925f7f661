// Package tests contains values shared by the unit and end-to-end tests.
package tests

import (
	"errors"
	"time"

	"github.com/openHPI/velo/pkg/dto"
)

const (
	NonExistingIntegerID = 9999
	DefaultResourceType  = "bicycle"
	AnotherResourceType  = "boat"
	DefaultBrand         = "Veloretti"
	DefaultColor         = "green"
	AnotherBrand         = "Batavus"
	AnotherColor         = "yellow"
	ShortTimeout         = 100 * time.Millisecond
)

var (
	ErrDefault     = errors.New("an error occurred")
	DefaultPayload = dto.Payload{Brand: DefaultBrand, Color: DefaultColor}
	AnotherPayload = dto.Payload{Brand: AnotherBrand, Color: AnotherColor}
)
