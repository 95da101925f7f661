package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openHPI/velo/pkg/dto"
	"github.com/openHPI/velo/pkg/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config contains the default configuration of Velo.
var (
	Config = &configuration{
		Server: server{
			Address:         "127.0.0.1",
			Port:            3000,
			ShutdownTimeout: 15 * time.Second,
		},
		Resources: []string{"bicycle", "boat"},
		Fixtures:  map[string]map[dto.ResourceID]dto.Payload{},
		Aggregation: Aggregation{
			PrimaryURL:   "",
			SecondaryURL: "",
			PathPrefix:   "/aggregate",
			Timeout:      1250 * time.Millisecond,
			Attempts:     3,
		},
		Logger: Logger{
			Level:     "INFO",
			Formatter: dto.FormatterText,
		},
		Sentry: sentry.ClientOptions{},
		InfluxDB: InfluxDB{
			URL:          "",
			Token:        "",
			Organization: "",
			Bucket:       "",
			Stage:        "",
		},
	}
	configurationFilePath    = "./configuration.yaml"
	configurationInitialized = false
	log                      = logging.GetLogger("config")
	ErrConfigInitialized     = errors.New("configuration is already initialized")
)

// server configures the Velo webserver.
type server struct {
	Address                 string
	Port                    int
	SystemdSocketActivation bool
	ShutdownTimeout         time.Duration
}

// URL returns the URL of the Velo webserver.
func (s *server) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", s.Address, s.Port),
	}
}

// Aggregation configures the two downstream services whose resources are composed.
// The aggregation route is only served if both URLs are set.
type Aggregation struct {
	PrimaryURL   string
	SecondaryURL string
	PathPrefix   string
	Timeout      time.Duration
	Attempts     int
}

// Enabled reports whether both downstream services are configured.
func (a *Aggregation) Enabled() bool {
	return a.PrimaryURL != "" && a.SecondaryURL != ""
}

// Logger configures the used logger.
type Logger struct {
	Formatter dto.Formatter
	Level     string
}

// InfluxDB configures the usage of an Influx db monitoring.
type InfluxDB struct {
	URL          string
	Token        string
	Organization string
	Bucket       string
	Stage        string
}

// configuration contains the complete configuration of Velo.
type configuration struct {
	Server    server
	Resources []string
	// Fixtures are stored in the resource storages on startup. They can only be set by the configuration file.
	Fixtures    map[string]map[dto.ResourceID]dto.Payload
	Aggregation Aggregation
	Logger      Logger
	Sentry      sentry.ClientOptions
	InfluxDB    InfluxDB
}

// InitConfig merges configuration options from environment variables and
// a configuration file into the default configuration. Calls of InitConfig
// after the first call have no effect and return an error. InitConfig
// should be called directly after starting the program.
func InitConfig() error {
	if configurationInitialized {
		return ErrConfigInitialized
	}
	configurationInitialized = true
	content := readConfigFile()
	Config.mergeYaml(content)
	Config.mergeEnvironmentVariables()
	return nil
}

func readConfigFile() []byte {
	parseFlags()
	data, err := os.ReadFile(configurationFilePath)
	if err != nil {
		log.WithError(err).Info("Using default configuration...")
		return nil
	}
	return data
}

func parseFlags() {
	if flag.Lookup("config") == nil {
		flag.StringVar(&configurationFilePath, "config", configurationFilePath, "path of the yaml config file")
	}
	flag.Parse()
}

func (c *configuration) mergeYaml(content []byte) {
	if err := yaml.Unmarshal(content, c); err != nil {
		log.WithError(err).Fatal("Could not parse configuration file")
	}
}

func (c *configuration) mergeEnvironmentVariables() {
	readFromEnvironment("VELO", reflect.ValueOf(c).Elem())
}

func readFromEnvironment(prefix string, value reflect.Value) {
	logEntry := log.WithField("prefix", prefix)
	// if value was not derived from a pointer, it is not possible to alter its contents
	if !value.CanSet() {
		logEntry.Warn("Cannot overwrite struct field that can not be set")
		return
	}

	if value.Kind() != reflect.Struct {
		loadValue(prefix, value, logEntry)
	} else {
		for i := 0; i < value.NumField(); i++ {
			fieldName := value.Type().Field(i).Name
			newPrefix := fmt.Sprintf("%s_%s", prefix, strings.ToUpper(fieldName))
			readFromEnvironment(newPrefix, value.Field(i))
		}
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

func loadValue(prefix string, value reflect.Value, logEntry *logrus.Entry) {
	content, ok := os.LookupEnv(prefix)
	if !ok {
		return
	}
	logEntry = logEntry.WithField("content", content)

	switch {
	case value.Type() == durationType:
		duration, err := time.ParseDuration(content)
		if err != nil {
			logEntry.Warn("Could not parse environment variable as duration")
			return
		}
		value.SetInt(int64(duration))
	case value.Kind() == reflect.String:
		value.SetString(content)
	case value.Kind() == reflect.Int:
		integer, err := strconv.Atoi(content)
		if err != nil {
			logEntry.Warn("Could not parse environment variable as integer")
			return
		}
		value.SetInt(int64(integer))
	case value.Kind() == reflect.Bool:
		boolean, err := strconv.ParseBool(content)
		if err != nil {
			logEntry.Warn("Could not parse environment variable as boolean")
			return
		}
		value.SetBool(boolean)
	case value.Kind() == reflect.Slice && value.Type().Elem().Kind() == reflect.String:
		if len(content) > 0 && content[0] == '"' && content[len(content)-1] == '"' {
			content = content[1 : len(content)-1] // remove wrapping quotes
		}
		// The values replace the defaults instead of extending them.
		value.Set(reflect.ValueOf(strings.Fields(content)).Convert(value.Type()))
	default:
		// ignore this field
		logEntry.WithField("type", value.Type().Name()).
			Warn("Setting configuration option via environment variables is not supported")
	}
}
