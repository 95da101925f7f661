package dto

import (
	"net/http"
	"strconv"
)

// MaxSafeInteger is the largest integer magnitude a ResourceID may have (2^53-1).
// Clients decoding ids into IEEE 754 doubles can represent every id up to this bound exactly.
const MaxSafeInteger = 1<<53 - 1

// ResourceID is the key of a stored resource.
type ResourceID int64

// ToString parses a ResourceID back to a string.
func (id ResourceID) ToString() string {
	return strconv.FormatInt(int64(id), 10)
}

// Payload is the content stored for one resource, e.g. a bicycle or a boat.
type Payload struct {
	Brand string `json:"brand" mapstructure:"brand"`
	Color string `json:"color" mapstructure:"color"`
}

// CreateRequest is the expected json structure of the request body for the create, update and upsert routes.
type CreateRequest struct {
	Data Payload `json:"data"`
}

// CreatedResponse is the response when a resource was created.
type CreatedResponse struct {
	ID ResourceID `json:"id"`
}

// AggregationResponse is the composition of a primary resource and the secondary resource it references.
type AggregationResponse struct {
	ID    ResourceID `json:"id"`
	Color string     `json:"color"`
	Brand string     `json:"brand"`
}

// PrimaryResource is the expected response of the primary service of an aggregation.
// The id is optional as plain resource services only respond with the Payload.
type PrimaryResource struct {
	ID    *ResourceID `json:"id,omitempty"`
	Brand string      `json:"brand"`
	Color string      `json:"color"`
}

// SecondaryResource is the expected response of the secondary service of an aggregation.
type SecondaryResource struct {
	Name string `json:"name"`
}

// ErrorKind is the externally visible category of a failed request.
type ErrorKind uint8

const (
	ServerError ErrorKind = iota
	BadRequest
	NotFound
	BadGateway
)

// StatusCode returns the HTTP status code that represents the ErrorKind.
func (k ErrorKind) StatusCode() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case BadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) String() string {
	switch k {
	case BadRequest:
		return "BadRequest"
	case NotFound:
		return "NotFound"
	case BadGateway:
		return "BadGateway"
	default:
		return "ServerError"
	}
}

// ClientError is the response interface if the request is not valid.
type ClientError struct {
	Message string `json:"message"`
}

// InternalServerError is the response interface that is returned when an error occurs.
type InternalServerError struct {
	Message   string    `json:"message"`
	ErrorCode ErrorCode `json:"errorCode"`
}

// ErrorCode is the type for error codes returned alongside server-side failures.
type ErrorCode string

const (
	ErrorDownstreamUnreachable ErrorCode = "DOWNSTREAM_UNREACHABLE"
	ErrorStorageInconsistent   ErrorCode = "STORAGE_INCONSISTENT"
	ErrorUnknown               ErrorCode = "UNKNOWN"
)

// Formatter mirrors the available Formatters of logrus for configuration purposes.
type Formatter string

const (
	FormatterText = "TextFormatter"
	FormatterJSON = "JSONFormatter"
)

// ContextKey is the type for keys in a request context that is used for passing data to the next handler.
type ContextKey string

// Keys to reference information (for logging or monitoring).
const (
	KeyRequestID    = "request_id"
	KeyResourceID   = "resource_id"
	KeyResourceType = "resource_type"
)

// LoggedContextKeys defines which keys of a request context are added to every log entry.
var LoggedContextKeys = []ContextKey{KeyRequestID, KeyResourceID, KeyResourceType}

// StatisticalResourceData contains the statistical data of one resource storage.
type StatisticalResourceData struct {
	Count uint `json:"count"`
}
