package trainer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts trainer activity for the /metrics endpoint.
type Metrics struct {
	LessonsStarted   prometheus.Counter
	LessonsCompleted prometheus.Counter
	LessonsAborted   prometheus.Counter
	TurnsPlayed      *prometheus.CounterVec
	Imports          *prometheus.CounterVec
	Exports          prometheus.Counter
}

// NewMetrics registers the trainer's collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LessonsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "uttala_lessons_started_total",
			Help: "Lesson sessions started.",
		}),
		LessonsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "uttala_lessons_completed_total",
			Help: "Lesson sessions played to the end.",
		}),
		LessonsAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "uttala_lessons_aborted_total",
			Help: "Lesson sessions left before the end.",
		}),
		TurnsPlayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uttala_turns_played_total",
			Help: "Answered turns by exercise type and outcome.",
		}, []string{"exercise", "outcome"}),
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uttala_library_imports_total",
			Help: "Library import attempts by outcome.",
		}, []string{"outcome"}),
		Exports: factory.NewCounter(prometheus.CounterOpts{
			Name: "uttala_library_exports_total",
			Help: "Library documents exported.",
		}),
	}
}
