package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pyrometer-server/logger"
)

// MetricsCollector reads the pyrometer on every scrape.
// Concurrent scrapes run one at a time so each sees its own readings.
type MetricsCollector struct {
	mu      sync.Mutex
	inst    Instrument
	timeout time.Duration

	scrapeSuccess  prometheus.Gauge
	lastSuccess    prometheus.Gauge
	temperature    prometheus.Gauge
	emissivity     prometheus.Gauge
	transmissivity prometheus.Gauge
	errors         *prometheus.CounterVec
}

func NewMetricsCollector(inst Instrument) *MetricsCollector {
	return &MetricsCollector{
		inst:    inst,
		timeout: 5 * time.Second,
		scrapeSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pyrometer_scrape_success",
			Help: "Last scrape success (1=ok, 0=error)",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pyrometer_last_success_timestamp_seconds",
			Help: "Last successful scrape timestamp (epoch seconds)",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pyrometer_temperature_celsius",
			Help: "Measured temperature (celsius)",
		}),
		emissivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pyrometer_emissivity_percent",
			Help: "Configured emissivity (%)",
		}),
		transmissivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pyrometer_transmissivity_percent",
			Help: "Configured transmissivity (%)",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pyrometer_read_errors_total",
			Help: "Failed reads by error kind",
		}, []string{"kind"}),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.scrapeSuccess.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.temperature.Describe(ch)
	c.emissivity.Describe(ch)
	c.transmissivity.Describe(ch)
	c.errors.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	ok := c.read(ctx, c.temperature, c.inst.ReadTemperature) &&
		c.read(ctx, c.emissivity, c.inst.Emissivity) &&
		c.read(ctx, c.transmissivity, c.inst.Transmissivity)

	if ok {
		c.scrapeSuccess.Set(1)
		c.lastSuccess.Set(float64(time.Now().Unix()))
	} else {
		c.scrapeSuccess.Set(0)
	}
	c.collectAll(ch)
}

func (c *MetricsCollector) read(ctx context.Context, g prometheus.Gauge, get func(context.Context) (float64, error)) bool {
	v, err := get(ctx)
	if err != nil {
		c.errors.WithLabelValues(ErrorKind(err)).Inc()
		logger.Error("metrics scrape: %v", err)
		return false
	}
	g.Set(v)
	return true
}

func (c *MetricsCollector) collectAll(ch chan<- prometheus.Metric) {
	c.scrapeSuccess.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.temperature.Collect(ch)
	c.emissivity.Collect(ch)
	c.transmissivity.Collect(ch)
	c.errors.Collect(ch)
}

// MetricsHandler serves the collector on its own registry.
func MetricsHandler(c *MetricsCollector) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
