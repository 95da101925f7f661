package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openHPI/velo/internal/aggregation"
	"github.com/openHPI/velo/internal/validation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/monitoring"
)

const (
	aggregationResourceType = "aggregation"
	aggregateRouteName      = "aggregate"
)

// AggregationController serves the composition of a primary resource and the secondary resource it references.
type AggregationController struct {
	aggregator aggregation.Aggregator
	pathPrefix string
}

// ConfigureRoutes configures a given router with the aggregation route.
func (c *AggregationController) ConfigureRoutes(router *mux.Router) {
	aggregationRouter := router.PathPrefix(c.pathPrefix).Subrouter()
	aggregationRouter.HandleFunc(fmt.Sprintf("/{%s}", ResourceIDKey), c.aggregate).
		Methods(http.MethodGet).Name(aggregateRouteName)
}

// aggregate handles the request for the composed resource with the requested id.
// The id is validated before any downstream service is called.
func (c *AggregationController) aggregate(writer http.ResponseWriter, request *http.Request) {
	id, err := validation.ValidateID(mux.Vars(request)[ResourceIDKey])
	if err != nil {
		writeError(request.Context(), writer, err)
		return
	}
	monitoring.AddResourceMonitoringData(request, aggregationResourceType, id)
	ctx := context.WithValue(request.Context(), dto.ContextKey(dto.KeyResourceType), aggregationResourceType)
	ctx = context.WithValue(ctx, dto.ContextKey(dto.KeyResourceID), id.ToString())

	response, err := c.aggregator.Aggregate(ctx, id)
	if err != nil {
		writeError(ctx, writer, err)
		return
	}
	sendJSON(ctx, writer, response, http.StatusOK)
}
