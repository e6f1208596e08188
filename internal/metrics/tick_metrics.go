package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TickMetrics метрики игрового цикла сервера
type TickMetrics struct {
	tickDuration    prometheus.Histogram
	ticks           prometheus.Counter
	inputsApplied   prometheus.Counter
	inputsDropped   prometheus.Counter
	chunksGenerated prometheus.Counter
	chunksSaved     prometheus.Counter
	chunksSent      prometheus.Counter
	players         prometheus.Gauge
	loadedChunks    prometheus.Gauge
}

// TickSample результаты одного тика
type TickSample struct {
	Duration        time.Duration
	InputsApplied   int
	InputsDropped   int
	ChunksGenerated int
	ChunksSaved     int
	ChunksSent      int
	Players         int
	LoadedChunks    int
}

// NewTickMetrics создаёт метрики и регистрирует их в reg
func NewTickMetrics(reg prometheus.Registerer) *TickMetrics {
	const ns = "blockverse"
	m := &TickMetrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tick_duration_seconds",
			Help:      "Длительность серверного тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "ticks_total",
			Help:      "Число выполненных тиков.",
		}),
		inputsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "inputs_applied_total",
			Help:      "Применённые кадры ввода.",
		}),
		inputsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "inputs_dropped_total",
			Help:      "Отброшенные кадры ввода (устаревшие или сверх лимита).",
		}),
		chunksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "chunks_generated_total",
			Help:      "Сгенерированные или загруженные чанки.",
		}),
		chunksSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "chunks_saved_total",
			Help:      "Изменённые чанки, записанные в хранилище.",
		}),
		chunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "chunks_sent_total",
			Help:      "Чанки, отправленные клиентам.",
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "players_online",
			Help:      "Игроки на сервере.",
		}),
		loadedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "chunks_loaded",
			Help:      "Чанки в памяти сервера.",
		}),
	}
	reg.MustRegister(m.tickDuration, m.ticks, m.inputsApplied, m.inputsDropped,
		m.chunksGenerated, m.chunksSaved, m.chunksSent, m.players, m.loadedChunks)
	return m
}

// Observe учитывает результаты тика. nil-получатель допустим.
func (m *TickMetrics) Observe(s TickSample) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(s.Duration.Seconds())
	m.ticks.Inc()
	m.inputsApplied.Add(float64(s.InputsApplied))
	m.inputsDropped.Add(float64(s.InputsDropped))
	m.chunksGenerated.Add(float64(s.ChunksGenerated))
	m.chunksSaved.Add(float64(s.ChunksSaved))
	m.chunksSent.Add(float64(s.ChunksSent))
	m.players.Set(float64(s.Players))
	m.loadedChunks.Set(float64(s.LoadedChunks))
}
