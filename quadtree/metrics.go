package quadtree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	treeLabel      = "tree"
	operationLabel = "operation"
	kindLabel      = "kind"
)

var (
	quadtreeElements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_elements",
		Help: "The number of elements in a quadtree.",
	}, []string{treeLabel})

	quadtreeFixedPerceivers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_fixed_perceivers",
		Help: "The number of fixed perceivers registered in a quadtree.",
	}, []string{treeLabel})

	quadtreeDivides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_divides",
		Help: "The number of quadtree node divisions.",
	}, []string{treeLabel})

	quadtreeNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_notifications",
		Help: "The number of elements perceivers were told about.",
	}, []string{treeLabel, kindLabel})

	quadtreeOutOfBounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_out_of_bounds",
		Help: "The number of elements refused because they were outside the tree.",
	}, []string{treeLabel})

	quadtreeInvariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_invariant_violations",
		Help: "The number of detected quadtree invariant violations.",
	}, []string{treeLabel})

	quadtreeLockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadtree_lock_wait_seconds",
		Help:    "The time spent waiting for the quadtree lock.",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{treeLabel})

	quadtreeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadtree_operation_duration_seconds",
		Help:    "The duration of quadtree operations, notifications included.",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{treeLabel, operationLabel})
)

func instrumentElementGauge(tree string, count int) {
	quadtreeElements.
		With(prometheus.Labels{treeLabel: tree}).
		Set(float64(count))
}

func instrumentFixedPerceiverGauge(tree string, count int) {
	quadtreeFixedPerceivers.
		With(prometheus.Labels{treeLabel: tree}).
		Set(float64(count))
}

func instrumentDivide(tree string) {
	quadtreeDivides.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentNewsAndFrees(tree string, news, frees int) {
	if news > 0 {
		quadtreeNotifications.
			With(prometheus.Labels{treeLabel: tree, kindLabel: "new"}).
			Add(float64(news))
	}

	if frees > 0 {
		quadtreeNotifications.
			With(prometheus.Labels{treeLabel: tree, kindLabel: "free"}).
			Add(float64(frees))
	}
}

func instrumentOutOfBounds(tree string) {
	quadtreeOutOfBounds.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentInvariantViolation(tree string) {
	quadtreeInvariantViolations.
		With(prometheus.Labels{treeLabel: tree}).
		Inc()
}

func instrumentLockWait(tree string, start time.Time) {
	quadtreeLockWait.
		With(prometheus.Labels{treeLabel: tree}).
		Observe(time.Since(start).Seconds())
}

func instrumentOperation(tree, operation string, start time.Time) {
	quadtreeOperationDuration.
		With(prometheus.Labels{treeLabel: tree, operationLabel: operation}).
		Observe(time.Since(start).Seconds())
}
