package recognize

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("intentgrammar.recognize")

var (
	// recognitions counts recognition calls.
	// Labels: outcome (match, fuzzy, none, error)
	recognitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentgrammar",
		Subsystem: "recognize",
		Name:      "calls_total",
		Help:      "Total recognition calls by outcome",
	}, []string{"outcome"})

	// recognizeLatency measures one recognition call end to end.
	recognizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "intentgrammar",
		Subsystem: "recognize",
		Name:      "latency_seconds",
		Help:      "Recognition latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// sentencesTried counts templates handed to the matcher and templates
	// the regex filter ruled out first.
	// Labels: stage (matched, filtered)
	sentencesTried = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intentgrammar",
		Subsystem: "recognize",
		Name:      "sentences_total",
		Help:      "Sentence templates considered by stage",
	}, []string{"stage"})
)

func startRecognizeSpan(ctx context.Context, name, text string, fuzzy bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.Int("recognize.text_length", len(text)),
			attribute.Bool("recognize.fuzzy", fuzzy),
		),
	)
}

// observe records one finished recognition call.
func observe(span trace.Span, start time.Time, results int, outcome string, err error) {
	recognitions.WithLabelValues(outcome).Inc()
	recognizeLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("recognize.results", results),
		attribute.String("recognize.outcome", outcome),
	)
	if err != nil {
		span.RecordError(err)
	}
}
