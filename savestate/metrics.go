package savestate

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user-none/savestates/notify"
)

// Outcome labels
const (
	resultOK                  = "ok"
	resultInvalidFile         = "invalid_file"
	resultNewerVersion        = "newer_version"
	resultIncompatibleVersion = "incompatible_version"
	resultMissingROM          = "missing_rom"
	resultEmpty               = "empty"
	resultError               = "error"
)

// Metrics counts save state outcomes. A nil *Metrics records nothing.
type Metrics struct {
	saves   *prometheus.CounterVec
	loads   *prometheus.CounterVec
	resumes *prometheus.CounterVec
}

// NewMetrics creates the save state counters and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mstate",
			Subsystem: "savestate",
			Name:      "saves_total",
			Help:      "Save state writes by result.",
		}, []string{"result"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mstate",
			Subsystem: "savestate",
			Name:      "loads_total",
			Help:      "Save state loads by result.",
		}, []string{"result"}),
		resumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mstate",
			Subsystem: "savestate",
			Name:      "resumes_total",
			Help:      "Resume archive operations by operation and result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.saves, m.loads, m.resumes)
	}
	return m
}

func (m *Metrics) observeSave(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.saves.WithLabelValues(resultError).Inc()
		return
	}
	m.saves.WithLabelValues(resultOK).Inc()
}

func (m *Metrics) observeLoad(err error) {
	if m == nil {
		return
	}
	_, result := classify(err)
	m.loads.WithLabelValues(result).Inc()
}

func (m *Metrics) observeResume(op string, err error) {
	if m == nil {
		return
	}
	_, result := classify(err)
	m.resumes.WithLabelValues(op, result).Inc()
}

// classify maps a load error to its notification and metric label. The
// event is only meaningful for errors.
func classify(err error) (notify.Event, string) {
	switch {
	case err == nil:
		return notify.StateLoaded, resultOK
	case errors.Is(err, ErrEmptySaveState):
		return notify.EmptyFile, resultEmpty
	case errors.Is(err, ErrInvalidFile):
		return notify.InvalidFile, resultInvalidFile
	case errors.Is(err, ErrNewerVersion):
		return notify.NewerVersion, resultNewerVersion
	case errors.Is(err, ErrIncompatibleVersion):
		return notify.IncompatibleVersion, resultIncompatibleVersion
	case errors.Is(err, ErrMissingROM):
		return notify.MissingROM, resultMissingROM
	default:
		return notify.InvalidFile, resultError
	}
}
