//go:build e2e

package e2e

import (
	"net/http"

	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/tests"
	"github.com/openHPI/velo/tests/helpers"
)

func (s *E2ETestSuite) createResource(resourceType string, payload dto.Payload) dto.ResourceID {
	resp, err := helpers.HTTPPostJSON(helpers.BuildURL("/", resourceType), dto.CreateRequest{Data: payload})
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created dto.CreatedResponse
	s.Require().NoError(helpers.DecodeJSONBody(resp, &created))
	return created.ID
}

func (s *E2ETestSuite) TestResourceLifecycle() {
	id := s.createResource(tests.DefaultResourceType, tests.DefaultPayload)
	url := helpers.ResourceURL(tests.DefaultResourceType, id)

	s.Run("get created resource", func() {
		resp, err := http.Get(url)
		s.Require().NoError(err)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		var payload dto.Payload
		s.Require().NoError(helpers.DecodeJSONBody(resp, &payload))
		s.Equal(tests.DefaultPayload, payload)
	})

	s.Run("update resource", func() {
		resp, err := helpers.HTTPPostJSON(url+"/update", dto.CreateRequest{Data: tests.AnotherPayload})
		s.Require().NoError(err)
		_ = resp.Body.Close()
		s.Equal(http.StatusNoContent, resp.StatusCode)
	})

	s.Run("upsert existing resource", func() {
		resp, err := helpers.HTTPPutJSON(url, dto.CreateRequest{Data: tests.DefaultPayload})
		s.Require().NoError(err)
		_ = resp.Body.Close()
		s.Equal(http.StatusNoContent, resp.StatusCode)
	})

	s.Run("delete resource", func() {
		resp, err := helpers.HTTPDelete(url)
		s.Require().NoError(err)
		_ = resp.Body.Close()
		s.Equal(http.StatusNoContent, resp.StatusCode)

		resp, err = http.Get(url)
		s.Require().NoError(err)
		_ = resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func (s *E2ETestSuite) TestUpsertCreatesMissingResource() {
	id := s.createResource(tests.AnotherResourceType, tests.DefaultPayload)
	missingID := id + tests.NonExistingIntegerID
	url := helpers.ResourceURL(tests.AnotherResourceType, missingID)

	resp, err := helpers.HTTPPutJSON(url, dto.CreateRequest{Data: tests.AnotherPayload})
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created dto.CreatedResponse
	s.Require().NoError(helpers.DecodeJSONBody(resp, &created))
	s.Equal(missingID, created.ID)

	resp, err = helpers.HTTPDelete(url)
	s.Require().NoError(err)
	_ = resp.Body.Close()
}

func (s *E2ETestSuite) TestInvalidRequestsAreRejected() {
	resp, err := http.Get(helpers.BuildURL("/", tests.DefaultResourceType, "/not-a-number"))
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, err = helpers.HTTPPostJSON(helpers.BuildURL("/", tests.DefaultResourceType),
		map[string]interface{}{"data": map[string]string{"brand": tests.DefaultBrand}})
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
