// Package metrics exposes Prometheus counters for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers and middleware report to.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordRedemption(outcome string)
	RecordLogin(method, outcome string)
	RecordRating()
	RecordComment()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	redemptions     *prometheus.CounterVec
	logins          *prometheus.CounterVec
	ratings         prometheus.Counter
	comments        prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volunteer_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_link_redemptions_total",
			Help: "Invite link redemptions by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volunteer_logins_total",
			Help: "Logins by method and outcome.",
		}, []string{"method", "outcome"}),
		ratings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteer_ratings_created_total",
			Help: "Tasks marked complete.",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volunteer_comments_created_total",
			Help: "Comments posted.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.redemptions,
		c.logins,
		c.ratings,
		c.comments,
	)

	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordRedemption(outcome string) {
	c.redemptions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordRating() {
	c.ratings.Inc()
}

func (c *Collector) RecordComment() {
	c.comments.Inc()
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordRedemption(string)                          {}
func (Nop) RecordLogin(string, string)                       {}
func (Nop) RecordRating()                                    {}
func (Nop) RecordComment()                                   {}
