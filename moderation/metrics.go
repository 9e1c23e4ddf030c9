package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var moderationActionsTaken = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_actions_taken",
	Help: "Number of moderation status changes",
}, []string{"status"})
