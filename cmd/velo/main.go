package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/openHPI/velo/internal/aggregation"
	"github.com/openHPI/velo/internal/api"
	"github.com/openHPI/velo/internal/config"
	"github.com/openHPI/velo/internal/downstream"
	"github.com/openHPI/velo/internal/validation"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
	"github.com/openHPI/velo/pkg/monitoring"
	"github.com/openHPI/velo/pkg/storage"
	"golang.org/x/sys/unix"
)

var log = logging.GetLogger("main")

func getVcsRevision(short bool) string {
	vcsRevision := "unknown"
	vcsModified := false

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				vcsRevision = setting.Value
			case "vcs.modified":
				var err error
				vcsModified, err = strconv.ParseBool(setting.Value)
				if err != nil {
					vcsModified = true // fallback to true, so we can see that something is wrong
					log.WithError(err).Error("Could not parse the vcs.modified setting")
				}
			}
		}
	}

	const shortRevisionLength = 7
	if short && len(vcsRevision) > shortRevisionLength {
		vcsRevision = vcsRevision[:shortRevisionLength]
	}
	if vcsModified {
		return vcsRevision + "-modified"
	}
	return vcsRevision
}

func initSentry(options *sentry.ClientOptions) {
	if options.Release == "" {
		options.Release = getVcsRevision(false)
	}
	if err := sentry.Init(*options); err != nil {
		log.Errorf("sentry.Init: %s", err)
	}
}

func shutdownSentry() {
	if err := recover(); err != nil {
		sentry.CurrentHub().Recover(err)
		sentry.Flush(logging.GracefulSentryShutdown)
	}
}

// initStorages creates one monitored storage per configured resource type and fills it with the fixtures.
// It fails if a fixture of a configured resource type is invalid.
func initStorages(resourceTypes []string, fixtures map[string]map[dto.ResourceID]dto.Payload) (
	map[string]storage.Storage[dto.Payload], error) {
	storages := make(map[string]storage.Storage[dto.Payload], len(resourceTypes))
	for _, resourceType := range resourceTypes {
		if _, ok := storages[resourceType]; ok {
			log.WithField(dto.KeyResourceType, resourceType).Warn("Ignoring duplicate resource type")
			continue
		}
		storages[resourceType] = storage.NewMonitoredLocalStorage[dto.Payload](
			monitoring.MeasurementResourcePrefix+resourceType,
			func(p *write.Point, payload dto.Payload, _ storage.EventType) {
				p.AddTag("brand", payload.Brand)
			})
	}

	for resourceType, objects := range fixtures {
		s, ok := storages[resourceType]
		if !ok {
			log.WithField(dto.KeyResourceType, resourceType).Warn("Ignoring fixtures of unknown resource type")
			continue
		}
		ids := make([]dto.ResourceID, 0, len(objects))
		for id := range objects {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if err := validation.ValidateFixture(id, objects[id]); err != nil {
				return nil, fmt.Errorf("fixtures of %s: %w", resourceType, err)
			}
			if err := s.Create(id, objects[id]); err != nil {
				return nil, err
			}
		}
		log.WithField(dto.KeyResourceType, resourceType).WithField("count", len(ids)).Info("Loaded fixtures")
	}
	return storages, nil
}

// initAggregator returns nil if no aggregation is configured.
func initAggregator(options *config.Aggregation) aggregation.Aggregator {
	if !options.Enabled() {
		log.Debug("Aggregation disabled")
		return nil
	}
	client := downstream.NewClient(downstream.RetryPolicy{Attempts: options.Attempts, Timeout: options.Timeout}, nil)
	log.WithField("primary", options.PrimaryURL).
		WithField("secondary", options.SecondaryURL).
		WithField("worst_case_latency", client.Policy().WorstCaseLatency()).
		Info("Aggregation enabled")
	return aggregation.NewAggregator(client, options.PrimaryURL, options.SecondaryURL)
}

// initRouter builds a router that serves the resource storages and the aggregation.
func initRouter() *mux.Router {
	storages, err := initStorages(config.Config.Resources, config.Config.Fixtures)
	if err != nil {
		log.WithError(err).Fatal("Error loading fixtures")
	}
	return api.NewRouter(storages, initAggregator(&config.Config.Aggregation))
}

// initServer creates a server that serves the routes provided by the router.
func initServer(router *mux.Router) *http.Server {
	sentryHandler := sentryhttp.New(sentryhttp.Options{}).Handle(router)
	const readTimeout = 15 * time.Second
	const idleTimeout = 60 * time.Second

	return &http.Server{
		Addr:              config.Config.Server.URL().Host,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		Handler:           sentryHandler,
	}
}

func runServer(router *mux.Router, server *http.Server, cancel context.CancelFunc) {
	defer cancel()
	defer shutdownSentry() // shutdownSentry must be executed in the main goroutine.

	httpListeners := getHTTPListeners(server)
	notifySystemd(router)
	serveHTTPListeners(server, httpListeners)
}

func getHTTPListeners(server *http.Server) (httpListeners []net.Listener) {
	var err error
	if config.Config.Server.SystemdSocketActivation {
		httpListeners, err = activation.Listeners()
	} else {
		var httpListener net.Listener
		httpListener, err = net.Listen("tcp", server.Addr)
		httpListeners = append(httpListeners, httpListener)
	}
	if err != nil || len(httpListeners) == 0 {
		log.WithError(err).
			WithField("listeners", httpListeners).
			WithField("systemd_socket", config.Config.Server.SystemdSocketActivation).
			Fatal("Failed listening to any socket")
		return nil
	}
	return httpListeners
}

func serveHTTPListeners(server *http.Server, httpListeners []net.Listener) {
	var wg sync.WaitGroup
	wg.Add(len(httpListeners))
	for _, l := range httpListeners {
		go func(listener net.Listener) {
			defer wg.Done()
			log.WithField("address", listener.Addr()).Info("Serving Listener")
			err := server.Serve(listener)
			if errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).WithField("listener", listener.Addr()).Info("Server closed")
			} else {
				log.WithError(err).WithField("listener", listener.Addr()).Error("Error during listening and serving")
			}
		}(l)
	}
	wg.Wait()
}

func notifySystemd(router *mux.Router) {
	notify, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	switch {
	case err == nil && !notify:
		log.Debug("Systemd Readiness Notification not supported")
	case err != nil:
		log.WithError(err).WithField("notify", notify).Warn("Failed notifying Readiness to Systemd")
	default:
		log.Trace("Notified Readiness to Systemd")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		log.WithError(err).Debug("Systemd Watchdog not supported")
		return
	}
	go systemdWatchdogLoop(context.Background(), router, interval)
}

func systemdWatchdogLoop(ctx context.Context, router *mux.Router, interval time.Duration) {
	healthURL, err := watchdogHealthURL(router)
	if err != nil {
		log.WithError(err).Error("Failed to parse Health route")
		return
	}
	client := &http.Client{Timeout: interval}

	// notificationIntervalFactor defines how many more notifications we send than required.
	const notificationIntervalFactor = 2
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval / notificationIntervalFactor):
			notifySystemdWatchdog(ctx, healthURL, client)
		}
	}
}

var unspecifiedAddresses = regexp.MustCompile(`0\.0\.0\.0|\[::]`)

func watchdogHealthURL(router *mux.Router) (string, error) {
	healthRoute, err := router.Get(api.HealthPath).URL()
	if err != nil {
		return "", err
	}
	healthURL := config.Config.Server.URL().String() + healthRoute.String()
	return unspecifiedAddresses.ReplaceAllString(healthURL, "localhost"), nil
}

func notifySystemdWatchdog(ctx context.Context, healthURL string, client *http.Client) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, http.NoBody)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).Debug("Failed watchdog health check")
		return
	}
	_ = resp.Body.Close()

	notify, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	switch {
	case err == nil && !notify:
		log.Debug("Systemd Watchdog Notification not supported")
	case err != nil:
		log.WithError(err).WithField("notify", notify).Warn("Failed notifying Systemd Watchdog")
	default:
		log.Trace("Notified Systemd Watchdog")
	}
}

// shutdownOnOSSignal listens for a signal from the operating system.
// When receiving a signal the server shuts down but waits up to the configured timeout to close remaining connections.
func shutdownOnOSSignal(server *http.Server, ctx context.Context) {
	shutdownSignals := make(chan os.Signal, 1)
	signal.Notify(shutdownSignals, unix.SIGINT, unix.SIGTERM, unix.SIGABRT)
	defer signal.Stop(shutdownSignals)

	select {
	case <-ctx.Done():
		os.Exit(1)
	case <-shutdownSignals:
		log.Info("Received SIGINT, shutting down...")
		gracefulCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(gracefulCtx); err != nil {
			log.WithError(err).Warn("error shutting server down")
		}
	}
}

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Warn("Could not initialize configuration")
	}
	logging.InitializeLogging(config.Config.Logger.Level, config.Config.Logger.Formatter)
	initSentry(&config.Config.Sentry)

	cancelInflux := monitoring.InitializeInfluxDB(&config.Config.InfluxDB)
	defer cancelInflux()

	ctx, cancel := context.WithCancel(context.Background())
	router := initRouter()
	server := initServer(router)
	go runServer(router, server, cancel)
	shutdownOnOSSignal(server, ctx)
}
