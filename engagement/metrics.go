package engagement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var likesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engagement_likes_toggled",
	Help: "Number of like toggles applied",
}, []string{"kind"})

var commentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engagement_comments_created",
	Help: "Number of comments created",
}, []string{"kind"})
