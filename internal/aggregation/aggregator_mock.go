package aggregation

import (
	"context"

	"github.com/openHPI/velo/pkg/dto"
	"github.com/stretchr/testify/mock"
)

// AggregatorMock is a mock type for the Aggregator type.
type AggregatorMock struct {
	mock.Mock
}

// Aggregate provides a mock function with given fields: ctx, id
func (_m *AggregatorMock) Aggregate(ctx context.Context, id dto.ResourceID) (*dto.AggregationResponse, error) {
	ret := _m.Called(ctx, id)

	var r0 *dto.AggregationResponse
	if rf, ok := ret.Get(0).(func(context.Context, dto.ResourceID) *dto.AggregationResponse); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*dto.AggregationResponse)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, dto.ResourceID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
