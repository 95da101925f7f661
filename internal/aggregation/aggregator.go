package aggregation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/openHPI/velo/internal/downstream"
	"github.com/openHPI/velo/internal/translation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
)

var (
	log = logging.GetLogger("aggregation")
	// ErrMissingJoinKey is returned if the primary resource does not reference a secondary resource.
	ErrMissingJoinKey = errors.New("primary resource has no brand")
)

// Aggregator composes a primary resource with the secondary resource it references.
type Aggregator interface {
	// Aggregate fetches the primary resource with the passed id and the secondary resource named by its brand.
	// Returned errors are already translated (see translation.Kind).
	Aggregate(ctx context.Context, id dto.ResourceID) (*dto.AggregationResponse, error)
}

// Caller performs a single downstream call.
type Caller interface {
	Call(ctx context.Context, url string) (*downstream.Response, error)
}

type aggregator struct {
	caller       Caller
	primaryURL   string
	secondaryURL string
}

// NewAggregator creates an Aggregator requesting the primary resources from primaryURL/<id>
// and the secondary resources from secondaryURL/<brand>.
func NewAggregator(caller Caller, primaryURL, secondaryURL string) Aggregator {
	return &aggregator{
		caller:       caller,
		primaryURL:   strings.TrimSuffix(primaryURL, "/"),
		secondaryURL: strings.TrimSuffix(secondaryURL, "/"),
	}
}

func (a *aggregator) Aggregate(ctx context.Context, id dto.ResourceID) (*dto.AggregationResponse, error) {
	primary, err := a.fetchPrimary(ctx, id)
	if err != nil {
		return nil, translation.Translate(err)
	}

	secondary, err := a.fetchSecondary(ctx, primary.Brand)
	if err != nil {
		if translation.Kind(err) == dto.NotFound {
			log.WithContext(ctx).WithField("brand", primary.Brand).
				Warn("Primary resource references a missing secondary resource")
		}
		return nil, translation.Translate(err)
	}

	result := &dto.AggregationResponse{
		ID:    id,
		Color: primary.Color,
		Brand: secondary.Name,
	}
	if primary.ID != nil {
		result.ID = *primary.ID
	}
	return result, nil
}

func (a *aggregator) fetchPrimary(ctx context.Context, id dto.ResourceID) (primary *dto.PrimaryResource, err error) {
	logging.StartSpan(ctx, "aggregation.primary", "Fetch primary resource", func(ctx context.Context) {
		var response *downstream.Response
		response, err = a.caller.Call(ctx, a.primaryURL+"/"+id.ToString())
		if err != nil {
			err = fmt.Errorf("error fetching primary resource %d: %w", id, err)
			return
		}
		primary = &dto.PrimaryResource{}
		if err = response.DecodeJSON(primary); err != nil {
			return
		}
		if primary.Brand == "" {
			err = fmt.Errorf("primary resource %d: %w", id, ErrMissingJoinKey)
		}
	})
	return primary, err
}

func (a *aggregator) fetchSecondary(ctx context.Context, brand string) (secondary *dto.SecondaryResource, err error) {
	logging.StartSpan(ctx, "aggregation.secondary", "Fetch secondary resource", func(ctx context.Context) {
		var response *downstream.Response
		response, err = a.caller.Call(ctx, a.secondaryURL+"/"+url.PathEscape(brand))
		if err != nil {
			err = fmt.Errorf("error fetching secondary resource %q: %w", brand, err)
			return
		}
		secondary = &dto.SecondaryResource{}
		err = response.DecodeJSON(secondary)
	})
	return secondary, err
}
