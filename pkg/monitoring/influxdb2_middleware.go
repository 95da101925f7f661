package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2API "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/openHPI/velo/internal/config"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
)

const (
	// influxdbContextKey is a key (dto.ContextKey) to reference the influxdb data point in the request context.
	influxdbContextKey dto.ContextKey = "influxdb data point"
	// measurementPrefix allows easier filtering in influxdb.
	measurementPrefix = "velo_"
	// MeasurementResourcePrefix prefixes the measurements of the resource storages.
	MeasurementResourcePrefix = measurementPrefix + "resource_"

	// The keys for the monitored tags and fields.
	influxKeyResourceID   = "resource_id"
	influxKeyResourceType = "resource_type"
)

var (
	log          = logging.GetLogger("monitoring")
	influxClient influxdb2API.WriteAPI
)

func InitializeInfluxDB(db *config.InfluxDB) (cancel func()) {
	if db.URL == "" {
		return func() {}
	}

	client := influxdb2.NewClient(db.URL, db.Token)
	influxClient = client.WriteAPI(db.Organization, db.Bucket)
	cancel = func() {
		influxClient.Flush()
		client.Close()
	}
	return cancel
}

// InfluxDB2Middleware is a middleware to send events to an influx database.
func InfluxDB2Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if currentRoute := mux.CurrentRoute(r); currentRoute != nil {
			route = currentRoute.GetName()
		}
		p := influxdb2.NewPointWithMeasurement(measurementPrefix + route)

		start := time.Now().UTC()
		p.SetTime(time.Now())

		ctx := context.WithValue(r.Context(), influxdbContextKey, p)
		requestWithPoint := r.WithContext(ctx)
		lrw := logging.NewLoggingResponseWriter(w)
		next.ServeHTTP(lrw, requestWithPoint)

		p.AddField("duration", time.Now().UTC().Sub(start).Nanoseconds())
		p.AddTag("status", strconv.Itoa(lrw.StatusCode))

		WriteInfluxPoint(p)
	})
}

// AddResourceMonitoringData adds the type and id of the requested resource to the influx data point
// of the current request.
func AddResourceMonitoringData(request *http.Request, resourceType string, id dto.ResourceID) {
	addInfluxDBTag(request, influxKeyResourceType, resourceType)
	addInfluxDBTag(request, influxKeyResourceID, id.ToString())
}

// WriteInfluxPoint schedules the influx data point to be sent.
func WriteInfluxPoint(p *write.Point) {
	if influxClient != nil {
		p.AddTag("stage", config.Config.InfluxDB.Stage)
		influxClient.WritePoint(p)
	}
}

// addInfluxDBTag adds a tag to the influxdb data point in the request.
func addInfluxDBTag(r *http.Request, key, value string) {
	if p := dataPointFromRequest(r); p != nil {
		p.AddTag(key, value)
	}
}

// dataPointFromRequest returns the data point in the passed request.
func dataPointFromRequest(r *http.Request) *write.Point {
	p, ok := r.Context().Value(influxdbContextKey).(*write.Point)
	if !ok {
		log.WithContext(r.Context()).Debug("Request does not contain an influxdb data point")
		return nil
	}
	return p
}
