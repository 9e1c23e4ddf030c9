package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signupsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "platform_signups_created",
	Help: "Number of accounts created",
})

var projectsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "platform_projects_created",
	Help: "Number of projects created",
})

var phasePostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "platform_phase_posts_created",
	Help: "Number of phase posts created",
}, []string{"type"})

var applicationsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "platform_applications_submitted",
	Help: "Number of remaker applications submitted",
})

var blobsUploaded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "platform_blobs_uploaded",
	Help: "Number of blobs uploaded",
})
