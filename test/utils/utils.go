// Package utils provides shared test doubles for pipeline tests: recording
// metrics collectors for the service and handler interfaces and a scripted
// language-model provider.
package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/handlers"
	"github.com/TFMV/parley/pkg/services"
)

// ServiceMetrics is a thread-safe recording collector satisfying
// services.MetricsCollector.
type ServiceMetrics struct {
	mu         sync.RWMutex
	counters   map[string]int
	histograms map[string][]float64
	gauges     map[string]float64
	timers     map[string]int
}

// NewServiceMetrics creates an empty recording collector.
func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		counters:   make(map[string]int),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
		timers:     make(map[string]int),
	}
}

// IncrementCounter implements services.MetricsCollector.
func (m *ServiceMetrics) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// RecordHistogram implements services.MetricsCollector.
func (m *ServiceMetrics) RecordHistogram(name string, value float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
}

// RecordGauge implements services.MetricsCollector.
func (m *ServiceMetrics) RecordGauge(name string, value float64, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// StartTimer implements services.MetricsCollector.
func (m *ServiceMetrics) StartTimer(name string) services.Timer {
	return &serviceTimer{name: name, start: time.Now(), metrics: m}
}

// CounterCount returns how many times the named counter was incremented.
func (m *ServiceMetrics) CounterCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// GaugeValue returns the last recorded value of the named gauge.
func (m *ServiceMetrics) GaugeValue(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[name]
}

// TimerCount returns how many timers of the given name were stopped.
func (m *ServiceMetrics) TimerCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timers[name]
}

type serviceTimer struct {
	name    string
	start   time.Time
	metrics *ServiceMetrics
}

func (t *serviceTimer) Stop() time.Duration {
	d := time.Since(t.start)
	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()
	t.metrics.timers[t.name]++
	return d
}

// HandlerMetrics is a thread-safe recording collector satisfying
// handlers.MetricsCollector.
type HandlerMetrics struct {
	mu       sync.RWMutex
	counters map[string]int
	timers   map[string]int
}

// NewHandlerMetrics creates an empty recording collector.
func NewHandlerMetrics() *HandlerMetrics {
	return &HandlerMetrics{
		counters: make(map[string]int),
		timers:   make(map[string]int),
	}
}

// IncrementCounter implements handlers.MetricsCollector.
func (m *HandlerMetrics) IncrementCounter(name string, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// RecordHistogram implements handlers.MetricsCollector.
func (m *HandlerMetrics) RecordHistogram(name string, value float64, tags ...string) {}

// RecordGauge implements handlers.MetricsCollector.
func (m *HandlerMetrics) RecordGauge(name string, value float64, tags ...string) {}

// StartTimer implements handlers.MetricsCollector.
func (m *HandlerMetrics) StartTimer(name string) handlers.Timer {
	return &handlerTimer{name: name, metrics: m}
}

// CounterCount returns how many times the named counter was incremented.
func (m *HandlerMetrics) CounterCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

type handlerTimer struct {
	name    string
	metrics *HandlerMetrics
}

func (t *handlerTimer) Stop() {
	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()
	t.metrics.timers[t.name]++
}

// PipelineLogger adapts zerolog to the Logger interface shared by the
// service and handler packages. Key/value pairs attach as Interface fields.
type PipelineLogger struct {
	Logger zerolog.Logger
}

// Debug implements the pipeline Logger interface.
func (l *PipelineLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.emit(l.Logger.Debug(), msg, keysAndValues)
}

// Info implements the pipeline Logger interface.
func (l *PipelineLogger) Info(msg string, keysAndValues ...interface{}) {
	l.emit(l.Logger.Info(), msg, keysAndValues)
}

// Warn implements the pipeline Logger interface.
func (l *PipelineLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.emit(l.Logger.Warn(), msg, keysAndValues)
}

// Error implements the pipeline Logger interface.
func (l *PipelineLogger) Error(msg string, keysAndValues ...interface{}) {
	l.emit(l.Logger.Error(), msg, keysAndValues)
}

func (l *PipelineLogger) emit(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	event.Msg(msg)
}

// ProviderCall records one completion request made to a ScriptedProvider.
type ProviderCall struct {
	System string
	User   string
}

// ScriptedProvider is a classify.Provider that replays canned completions
// in order. It records every call so tests can inspect the prompts. Running
// out of responses is a test bug and returns an error.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []ProviderCall
}

// NewScriptedProvider creates a provider that returns the given responses
// in order.
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

// Enqueue appends more canned responses.
func (p *ScriptedProvider) Enqueue(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

// Fail makes every subsequent completion return err.
func (p *ScriptedProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Complete implements classify.Provider.
func (p *ScriptedProvider) Complete(ctx context.Context, system, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, ProviderCall{System: system, User: user})
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return "", fmt.Errorf("scripted provider exhausted after %d calls", len(p.calls))
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

// Calls returns a copy of every recorded completion request.
func (p *ScriptedProvider) Calls() []ProviderCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProviderCall, len(p.calls))
	copy(out, p.calls)
	return out
}
