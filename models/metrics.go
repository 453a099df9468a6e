package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	worldIDLabel = "world_id"
	kindLabel    = "kind"
)

var (
	worldObjectCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "world_object_count",
		Help: "The number of objects in a world.",
	}, []string{worldIDLabel})

	observerNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_notifications",
		Help: "The number of object changes forwarded to observers.",
	}, []string{kindLabel})
)

func instrumentWorldObjectGauge(worldID string, count int) {
	worldObjectCount.
		With(prometheus.Labels{worldIDLabel: worldID}).
		Set(float64(count))
}

func instrumentObserverNotifications(news, frees int) {
	observerNotifications.
		With(prometheus.Labels{kindLabel: "new"}).
		Add(float64(news))

	observerNotifications.
		With(prometheus.Labels{kindLabel: "free"}).
		Add(float64(frees))
}
