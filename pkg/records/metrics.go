package records

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"p9e.in/energydesk/pkg/authz"
)

const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "energydesk_record_operations_total",
		Help: "Client record operations by operation and result",
	},
	[]string{"operation", "result"},
)

// Result classifies an operation outcome for metrics and logs.
func Result(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, authz.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, authz.ErrForbidden):
		return "forbidden"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}

func observe(op string, err error) {
	operationsTotal.WithLabelValues(op, Result(err)).Inc()
}
