//go:build e2e

package e2e

import (
	"net/http"

	"github.com/openHPI/velo/internal/config"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/tests"
	"github.com/openHPI/velo/tests/helpers"
)

func (s *E2ETestSuite) TestAggregationOfMissingPrimaryResourceIsNotFound() {
	if !config.Config.Aggregation.Enabled() {
		s.T().Skip("Aggregation is not configured")
	}
	id := dto.ResourceID(tests.NonExistingIntegerID)
	resp, err := http.Get(helpers.BuildURL(config.Config.Aggregation.PathPrefix, "/", id.ToString()))
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *E2ETestSuite) TestAggregationRejectsInvalidID() {
	if !config.Config.Aggregation.Enabled() {
		s.T().Skip("Aggregation is not configured")
	}
	resp, err := http.Get(helpers.BuildURL(config.Config.Aggregation.PathPrefix, "/1.5"))
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
