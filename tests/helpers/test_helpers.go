// Package helpers contains functions that help executing tests.
// The helper functions generally look from the client side - a Velo user.
package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openHPI/velo/internal/config"
	"github.com/openHPI/velo/pkg/dto"
)

// BuildURL joins multiple route paths.
func BuildURL(parts ...string) string {
	parts = append([]string{config.Config.Server.URL().String()}, parts...)
	return strings.Join(parts, "")
}

// ResourceURL returns the URL of the resource with the passed type and id.
func ResourceURL(resourceType string, id dto.ResourceID) string {
	return BuildURL("/", resourceType, "/", id.ToString())
}

func httpRequest(method, url string, body io.Reader) (*http.Request, error) {
	//nolint:noctx // we don't need a http.NewRequestWithContext in our tests
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return req, nil
}

func do(method, url string, body io.Reader) (*http.Response, error) {
	req, err := httpRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing request: %w", err)
	}
	return resp, nil
}

// HTTPDelete sends a Delete Http Request to the passed url.
func HTTPDelete(url string) (response *http.Response, err error) {
	return do(http.MethodDelete, url, http.NoBody)
}

// HTTPPutJSON sends the body encoded as JSON in a Put Http Request to the passed url.
func HTTPPutJSON(url string, body interface{}) (response *http.Response, err error) {
	requestByteString, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal json http body: %w", err)
	}
	return do(http.MethodPut, url, bytes.NewReader(requestByteString))
}

// HTTPPostJSON sends the body encoded as JSON in a Post Http Request to the passed url.
func HTTPPostJSON(url string, body interface{}) (response *http.Response, err error) {
	requestByteString, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal passed http post body: %w", err)
	}
	return do(http.MethodPost, url, bytes.NewReader(requestByteString))
}

// DecodeJSONBody decodes and closes the body of the response.
func DecodeJSONBody(response *http.Response, v interface{}) error {
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(v); err != nil {
		return fmt.Errorf("error decoding response body: %w", err)
	}
	return nil
}
