package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openHPI/velo/internal/validation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
	"github.com/openHPI/velo/pkg/monitoring"
	"github.com/openHPI/velo/pkg/storage"
)

const (
	ResourceIDKey   = "id"
	UpdatePath      = "/update"
	createRouteName = "create"
	getRouteName    = "get"
	updateRouteName = "update"
	upsertRouteName = "upsert"
	deleteRouteName = "delete"

	maxRequestBodySize = 1 << 20
)

// ResourceController serves the CRUD routes of one resource type.
type ResourceController struct {
	resourceType string
	storage      storage.Storage[dto.Payload]
}

// NewResourceController creates a controller serving the objects of s under the path /<resourceType>.
func NewResourceController(resourceType string, s storage.Storage[dto.Payload]) *ResourceController {
	return &ResourceController{resourceType: resourceType, storage: s}
}

// ConfigureRoutes configures a given router with the resource routes.
func (c *ResourceController) ConfigureRoutes(router *mux.Router) {
	// The create route is served with and without a trailing slash.
	router.HandleFunc("/"+c.resourceType, c.create).Methods(http.MethodPost).Name(c.routeName(createRouteName))
	resourceRouter := router.PathPrefix("/" + c.resourceType).Subrouter()
	resourceRouter.HandleFunc("/", c.create).Methods(http.MethodPost).Name(c.routeName(createRouteName))

	resourcePath := fmt.Sprintf("/{%s}", ResourceIDKey)
	resourceRouter.HandleFunc(resourcePath, c.get).Methods(http.MethodGet).Name(c.routeName(getRouteName))
	resourceRouter.HandleFunc(resourcePath+UpdatePath, c.update).
		Methods(http.MethodPost).Name(c.routeName(updateRouteName))
	resourceRouter.HandleFunc(resourcePath, c.upsert).Methods(http.MethodPut).Name(c.routeName(upsertRouteName))
	resourceRouter.HandleFunc(resourcePath, c.delete).Methods(http.MethodDelete).Name(c.routeName(deleteRouteName))
}

func (c *ResourceController) routeName(operation string) string {
	return c.resourceType + "_" + operation
}

// create handles the request for storing a new resource under a freshly issued id.
func (c *ResourceController) create(writer http.ResponseWriter, request *http.Request) {
	payload, err := parseCreateBody(writer, request)
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}

	var id dto.ResourceID
	logging.StartSpan(request.Context(), "api.resource.create", "Create "+c.resourceType, func(_ context.Context) {
		id, err = c.storage.NextID()
		if err == nil {
			err = c.storage.Create(id, payload)
		}
	})
	if err != nil {
		writeInternalServerError(request.Context(), writer, err, errorCodeOf(err))
		return
	}

	request = c.withResource(request, id)
	log.WithContext(request.Context()).Debug("Created resource")
	sendJSON(request.Context(), writer, &dto.CreatedResponse{ID: id}, http.StatusCreated)
}

// get handles the request for reading the resource with the requested id.
func (c *ResourceController) get(writer http.ResponseWriter, request *http.Request) {
	request, id, ok := c.parseResourceID(writer, request)
	if !ok {
		return
	}

	var payload dto.Payload
	var err error
	logging.StartSpan(request.Context(), "api.resource.get", "Get "+c.resourceType, func(_ context.Context) {
		payload, err = c.storage.Get(id)
	})
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}
	sendJSON(request.Context(), writer, payload, http.StatusOK)
}

// update handles the request for replacing an existing resource.
func (c *ResourceController) update(writer http.ResponseWriter, request *http.Request) {
	request, id, ok := c.parseResourceID(writer, request)
	if !ok {
		return
	}
	payload, err := parseCreateBody(writer, request)
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}

	logging.StartSpan(request.Context(), "api.resource.update", "Update "+c.resourceType, func(_ context.Context) {
		err = c.storage.Update(id, payload)
	})
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// upsert handles the request for replacing a resource or creating it if it does not exist.
// It responds with 201 and the id if the resource was created, and with 204 if it was replaced.
func (c *ResourceController) upsert(writer http.ResponseWriter, request *http.Request) {
	request, id, ok := c.parseResourceID(writer, request)
	if !ok {
		return
	}
	payload, err := parseCreateBody(writer, request)
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}

	var created bool
	logging.StartSpan(request.Context(), "api.resource.upsert", "Upsert "+c.resourceType, func(_ context.Context) {
		created, err = upsert(c.storage, id, payload)
	})
	switch {
	case err != nil:
		writeInternalServerError(request.Context(), writer, err, errorCodeOf(err))
	case created:
		log.WithContext(request.Context()).Debug("Created resource by upsert")
		sendJSON(request.Context(), writer, &dto.CreatedResponse{ID: id}, http.StatusCreated)
	default:
		writer.WriteHeader(http.StatusNoContent)
	}
}

// upsert replaces the object with the passed id. If there is none, it is created instead.
// A create losing the race against a concurrent create of the same id falls back to a single update.
// Every error returned is a failure of the storage.
func upsert(s storage.Storage[dto.Payload], id dto.ResourceID, payload dto.Payload) (created bool, err error) {
	err = s.Update(id, payload)
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	err = s.Create(id, payload)
	if errors.Is(err, storage.ErrAlreadyExists) {
		if err = s.Update(id, payload); err != nil {
			return false, fmt.Errorf("resource %d vanished during upsert: %w", id, err)
		}
		return false, nil
	}
	return err == nil, err
}

// delete handles the request for deleting the resource with the requested id.
func (c *ResourceController) delete(writer http.ResponseWriter, request *http.Request) {
	request, id, ok := c.parseResourceID(writer, request)
	if !ok {
		return
	}

	var err error
	logging.StartSpan(request.Context(), "api.resource.delete", "Delete "+c.resourceType, func(_ context.Context) {
		err = c.storage.Delete(id)
	})
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

// parseResourceID validates the id of the request path. If it is invalid, a BadRequest is written and ok is false.
// The returned request carries the resource in its context.
func (c *ResourceController) parseResourceID(writer http.ResponseWriter, request *http.Request) (
	r *http.Request, id dto.ResourceID, ok bool) {
	id, err := validation.ValidateID(mux.Vars(request)[ResourceIDKey])
	if err != nil {
		writeError(request.Context(), writer, err)
		return request, 0, false
	}
	return c.withResource(request, id), id, true
}

func (c *ResourceController) withResource(request *http.Request, id dto.ResourceID) *http.Request {
	monitoring.AddResourceMonitoringData(request, c.resourceType, id)
	ctx := context.WithValue(request.Context(), dto.ContextKey(dto.KeyResourceType), c.resourceType)
	ctx = context.WithValue(ctx, dto.ContextKey(dto.KeyResourceID), id.ToString())
	return request.WithContext(ctx)
}

func parseCreateBody(writer http.ResponseWriter, request *http.Request) (dto.Payload, error) {
	body := http.MaxBytesReader(writer, request.Body, maxRequestBodySize)
	payload, err := validation.ValidateCreateBody(body)
	if err != nil {
		return dto.Payload{}, fmt.Errorf("error parsing request body: %w", err)
	}
	return payload, nil
}
