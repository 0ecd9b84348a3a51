package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	sdk "github.com/SSSOC-CAN/laniakea-plugin-sdk"
	"github.com/SSSOC-CAN/laniakea-plugin-sdk/proto"
	"github.com/SSSOC-CAN/tinysa-plugin/cfg"
	"github.com/SSSOC-CAN/tinysa-plugin/tinysa"
	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-plugin"
	influx "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	pluginName                               = "tinysa-plugin"
	pluginVersion                            = "1.0.0"
	laniVersionConstraint                    = ">= 0.2.0"
	minPolInterval             time.Duration = 1 * time.Second
	ErrAlreadyRecording                      = bg.Error("already recording")
	ErrAlreadyStoppedRecording               = bg.Error("already stopped recording")
	ErrBlankInfluxOrgOrBucket                = bg.Error("influx organization or bucket cannot be blank")
	ErrInvalidOrg                            = bg.Error("invalid influx organization")
	ErrNoPort                                = bg.Error("no tinySA port configured or detected")
)

// device is the part of tinysa.Client the datasource polls
type device interface {
	Version() ([]byte, error)
	Data(src tinysa.TraceSource) ([]byte, error)
	Pause() ([]byte, error)
	Resume() ([]byte, error)
}

type TinySADatasource struct {
	sdk.DatasourceBase
	recording int32 // used atomically
	quitChan  chan struct{}
	device    device
	closer    func() error
	config    *cfg.Config
	client    influx.Client
	log       zerolog.Logger
	sync.WaitGroup
}

func newDatasource(dev device, closer func() error, config *cfg.Config, logger zerolog.Logger) *TinySADatasource {
	return &TinySADatasource{
		quitChan: make(chan struct{}),
		device:   dev,
		closer:   closer,
		config:   config,
		log:      logger,
	}
}

func (e *TinySADatasource) pollInterval() time.Duration {
	d := time.Duration(e.config.PollingInterval) * time.Second
	if d < minPolInterval {
		return minPolInterval
	}
	return d
}

// influxWriter prepares the bucket and returns a write API, or nil when Influx is disabled
func (e *TinySADatasource) influxWriter() (api.WriteAPI, error) {
	if !e.config.Influx {
		return nil, nil
	}
	if e.config.InfluxOrgName == "" || e.config.InfluxBucketName == "" {
		return nil, ErrBlankInfluxOrgOrBucket
	}
	orgAPI := e.client.OrganizationsAPI()
	org, err := orgAPI.FindOrganizationByName(context.Background(), e.config.InfluxOrgName)
	if err != nil {
		return nil, ErrInvalidOrg
	}
	bucketAPI := e.client.BucketsAPI()
	buckets, err := bucketAPI.FindBucketsByOrgName(context.Background(), e.config.InfluxOrgName)
	if err != nil {
		return nil, ErrInvalidOrg
	}
	var found bool
	for _, bucket := range *buckets {
		if bucket.Name == e.config.InfluxBucketName {
			found = true
			break
		}
	}
	if !found {
		e.log.Info().Str("bucket", e.config.InfluxBucketName).Msg("creating influx bucket")
		_, err := bucketAPI.CreateBucketWithName(context.Background(), org, e.config.InfluxBucketName, domain.RetentionRule{EverySeconds: 0})
		if err != nil {
			return nil, err
		}
	}
	return e.client.WriteAPI(e.config.InfluxOrgName, e.config.InfluxBucketName), nil
}

// poll reads one trace dump and turns it into a frame
func (e *TinySADatasource) poll(writeAPI api.WriteAPI) (*proto.Frame, error) {
	start := time.Now()
	payload, err := e.device.Data(tinysa.TraceSource(e.config.Trace))
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	if writeAPI != nil {
		p := influx.NewPoint(
			"tinysa_poll",
			map[string]string{
				"command": "data",
				"trace":   strconv.Itoa(e.config.Trace),
			},
			map[string]interface{}{
				"bytes":       len(payload),
				"duration_ms": elapsed.Milliseconds(),
			},
			start,
		)
		// write asynchronously
		writeAPI.WritePoint(p)
	}
	return &proto.Frame{
		Source:    pluginName,
		Type:      "text/plain",
		Timestamp: start.UnixMilli(),
		Payload:   payload,
	}, nil
}

// Implements the Datasource interface funciton StartRecord
func (e *TinySADatasource) StartRecord() (chan *proto.Frame, error) {
	if atomic.LoadInt32(&e.recording) == 1 {
		return nil, ErrAlreadyRecording
	}
	version, err := e.device.Version()
	if err != nil {
		return nil, err
	}
	e.log.Info().Bytes("version", version).Msg("tinySA connected")
	if _, err := e.device.Resume(); err != nil {
		return nil, err
	}
	writeAPI, err := e.influxWriter()
	if err != nil {
		return nil, err
	}
	if ok := atomic.CompareAndSwapInt32(&e.recording, 0, 1); !ok {
		return nil, ErrAlreadyRecording
	}
	ticker := time.NewTicker(e.pollInterval())
	frameChan := make(chan *proto.Frame)
	e.Add(1)
	go func() {
		defer e.Done()
		defer close(frameChan)
		defer func() {
			if _, err := e.device.Pause(); err != nil {
				e.log.Error().Err(err).Msg("could not pause sweep")
			}
			if writeAPI != nil {
				writeAPI.Flush()
			}
			ticker.Stop()
		}()
		for {
			select {
			case <-ticker.C:
				frame, err := e.poll(writeAPI)
				if err != nil {
					e.log.Error().Err(err).Msg("could not read trace data")
					// StopRecord already swapped the flag and is waiting to send
					if !atomic.CompareAndSwapInt32(&e.recording, 1, 0) {
						<-e.quitChan
					}
					return
				}
				select {
				case frameChan <- frame:
				case <-e.quitChan:
					return
				}
			case <-e.quitChan:
				return
			}
		}
	}()
	return frameChan, nil
}

// Implements the Datasource interface funciton StopRecord
func (e *TinySADatasource) StopRecord() error {
	if ok := atomic.CompareAndSwapInt32(&e.recording, 1, 0); !ok {
		return ErrAlreadyStoppedRecording
	}
	e.quitChan <- struct{}{}
	return nil
}

// Implements the Datasource interface funciton Stop
func (e *TinySADatasource) Stop() error {
	close(e.quitChan)
	e.Wait()
	if e.client != nil {
		e.client.Close()
	}
	if e.closer != nil {
		return e.closer()
	}
	return nil
}

// ConnectToTinySA opens the configured port, or the first detected tinySA when none is set
func ConnectToTinySA(config *cfg.Config, logger zerolog.Logger) (*tinysa.Connection, error) {
	port := config.Port
	if port == "" {
		name, ok, err := tinysa.FirstTinySA()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoPort
		}
		port = name
	}
	return tinysa.Open(port, config.ReadTimeout(), config.ConnectionOptions(logger)...)
}

// metricsRouter exposes the prometheus collectors
func metricsRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "plugin": pluginName, "version": pluginVersion})
	})
	return r
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Str("plugin", pluginName).Logger()
	config, err := cfg.InitConfig()
	if err != nil {
		logger.Error().Err(err).Msg("could not load config")
		return
	}
	logger = logger.Level(config.Level())
	conn, err := ConnectToTinySA(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("could not connect to tinySA")
		return
	}
	impl := newDatasource(tinysa.NewClient(conn, logger), conn.Close, config, logger)
	if config.Influx {
		if config.InfluxURL == "" || config.InfuxAPIToken == "" {
			logger.Warn().Msg("Influx URL or API Token config parameters cannot be blank")
		}
		impl.client = influx.NewClientWithOptions(config.InfluxURL, config.InfuxAPIToken, influx.DefaultOptions().SetTLSConfig(&tls.Config{InsecureSkipVerify: config.InfluxSkipTLS}))
	}
	if config.MetricsAddr != "" {
		tinysa.RegisterMetrics()
		go func() {
			if err := metricsRouter().Run(config.MetricsAddr); err != nil {
				logger.Error().Err(err).Str("addr", config.MetricsAddr).Msg("metrics server stopped")
			}
		}()
	}
	impl.SetPluginVersion(pluginVersion)              // set the plugin version before serving
	impl.SetVersionConstraints(laniVersionConstraint) // set required laniakea version before serving
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: sdk.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			pluginName: &sdk.DatasourcePlugin{Impl: impl},
		},
		// A non-nil value here enables gRPC serving for this plugin...
		GRPCServer: plugin.DefaultGRPCServer,
	})
}
