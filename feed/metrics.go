package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_requests",
	Help: "Number of feed compositions by mode",
}, []string{"mode"})
