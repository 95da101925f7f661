package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/openHPI/velo/internal/aggregation"
	"github.com/openHPI/velo/internal/config"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
	"github.com/openHPI/velo/pkg/monitoring"
	"github.com/openHPI/velo/pkg/storage"
)

var log = logging.GetLogger("api")

const (
	HealthPath     = "/health"
	VersionPath    = "/version"
	StatisticsPath = "/statistics"
	ResourcesPath  = "/resources"
)

// NewRouter returns a *mux.Router which can be used by the net/http package to serve the routes of our API.
// Every storage is served under the path of its resource type. The aggregation routes are only
// registered if aggregator is not nil.
func NewRouter(storages map[string]storage.Storage[dto.Payload], aggregator aggregation.Aggregator) *mux.Router {
	router := mux.NewRouter()
	configureRouter(router, storages, aggregator)
	router.Use(logging.HTTPLoggingMiddleware)
	router.Use(monitoring.InfluxDB2Middleware)
	return router
}

func configureRouter(router *mux.Router,
	storages map[string]storage.Storage[dto.Payload], aggregator aggregation.Aggregator) {
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithField("request", r.URL.Path).Debug("Not Found Handler")
		w.WriteHeader(http.StatusNotFound)
	})
	router.HandleFunc(HealthPath, Health).Methods(http.MethodGet).Name(HealthPath)
	router.HandleFunc(VersionPath, Version).Methods(http.MethodGet).Name(VersionPath)

	statisticsRouter := router.PathPrefix(StatisticsPath).Subrouter()
	statisticsRouter.HandleFunc(ResourcesPath, StatisticsResources(storages)).
		Methods(http.MethodGet).Name(StatisticsPath + ResourcesPath)

	for _, resourceType := range sortedKeys(storages) {
		NewResourceController(resourceType, storages[resourceType]).ConfigureRoutes(router)
	}

	if aggregator != nil {
		aggregationController := &AggregationController{
			aggregator: aggregator,
			pathPrefix: config.Config.Aggregation.PathPrefix,
		}
		aggregationController.ConfigureRoutes(router)
	}
}

// Version handles the version route.
// It responds the release information stored in the configuration.
func Version(writer http.ResponseWriter, request *http.Request) {
	release := config.Config.Sentry.Release
	if len(release) > 0 {
		sendJSON(request.Context(), writer, release, http.StatusOK)
	} else {
		writer.WriteHeader(http.StatusNotFound)
	}
}

// StatisticsResources handles the route for statistics about the resource storages.
// It responds the number of stored resources per resource type.
func StatisticsResources(storages map[string]storage.Storage[dto.Payload]) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		result := make(map[string]*dto.StatisticalResourceData, len(storages))
		for resourceType, s := range storages {
			result[resourceType] = &dto.StatisticalResourceData{Count: s.Length()}
		}
		sendJSON(request.Context(), writer, result, http.StatusOK)
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
