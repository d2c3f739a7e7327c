package extension

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowscan/optset"
)

const (
	Success  = "success"
	NotFound = "notfound"
	Error    = "error"
)

// Collection of prometheus metrics shared by the metric extensions of one or
// more stores
type StoreMetrics struct {
	AdditionalLabels        []string
	LoadTimeHistogram       *prometheus.HistogramVec
	LoadBatchHistogram      *prometheus.HistogramVec
	SaveTimeHistogram       *prometheus.HistogramVec
	SaveBatchHistogram      *prometheus.HistogramVec
	LayerLoadTimeHistogram  *prometheus.HistogramVec
	LayerLoadBatchHistogram *prometheus.HistogramVec
	LayerSaveTimeHistogram  *prometheus.HistogramVec
	LayerSaveBatchHistogram *prometheus.HistogramVec
}

// Create a new store metric collector
// additionalLabels is a list of additional labels used for metric partitioning
func NewStoreMetrics(additionalLabels ...string) *StoreMetrics {
	c := &StoreMetrics{}
	c.AdditionalLabels = additionalLabels
	c.LoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Name:      "load_time_seconds",
		Help:      "The time it takes to resolve a load request",
	}, append(additionalLabels, []string{"store", "status"}...))
	c.LoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Name:      "load_batch",
		Help:      "The batch size for each load",
	}, append(additionalLabels, []string{"store"}...))
	c.LayerLoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Subsystem: "layer",
		Name:      "load_time_seconds",
		Help:      "The time a layer takes to resolve a load request",
	}, append(additionalLabels, []string{"store", "layer", "status"}...))
	c.LayerLoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Subsystem: "layer",
		Name:      "load_batch",
		Help:      "The batch size for each load on to a layer",
	}, append(additionalLabels, []string{"store", "layer"}...))
	c.SaveTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Name:      "save_time_seconds",
		Help:      "The time it takes to resolve a save request",
	}, append(additionalLabels, []string{"store", "status"}...))
	c.SaveBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Name:      "save_batch",
		Help:      "The batch size for each save",
	}, append(additionalLabels, []string{"store"}...))
	c.LayerSaveTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Subsystem: "layer",
		Name:      "save_time_seconds",
		Help:      "The time a layer takes to resolve a save request",
	}, append(additionalLabels, []string{"store", "layer", "status"}...))
	c.LayerSaveBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "optset",
		Subsystem: "layer",
		Name:      "save_batch",
		Help:      "The batch size for each save on to a layer",
	}, append(additionalLabels, []string{"store", "layer"}...))
	return c
}

// Register all of the collector's metrics on the given registerer
func (c *StoreMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.LoadTimeHistogram,
		c.LoadBatchHistogram,
		c.SaveTimeHistogram,
		c.SaveBatchHistogram,
		c.LayerLoadTimeHistogram,
		c.LayerLoadBatchHistogram,
		c.LayerSaveTimeHistogram,
		c.LayerSaveBatchHistogram,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// PrometheusMetrics is an extension for store and layer instrumentation
type PrometheusMetrics[TKey comparable, TFlag optset.Flag] struct {
	storeName          string
	metrics            *StoreMetrics
	labelValues        []string
	layerLoadStartTime map[string]map[uint64]time.Time
	layerSaveStartTime map[string]map[uint64]time.Time
	loadStartTime      map[uint64]time.Time
	saveStartTime      map[uint64]time.Time
	layerLoadMu        sync.Mutex
	layerSaveMu        sync.Mutex
	loadMu             sync.Mutex
	saveMu             sync.Mutex
}

// Create a new prometheus metrics extension with the given metrics collector
// labelValues is an optional parameter filling the additional labels of the collector
func NewPrometheusMetrics[TKey comparable, TFlag optset.Flag](metrics *StoreMetrics, labelValues ...string) *PrometheusMetrics[TKey, TFlag] {
	return &PrometheusMetrics[TKey, TFlag]{
		labelValues: labelValues,
		metrics:     metrics,
	}
}

func (e *PrometheusMetrics[TKey, TFlag]) Name() string { return "PrometheusMetrics" }

func (e *PrometheusMetrics[TKey, TFlag]) InitializationHook(store *optset.Store[TKey, TFlag], layers []optset.Layer[TKey, TFlag]) error {
	e.storeName = store.Identifier()
	e.layerLoadStartTime = make(map[string]map[uint64]time.Time, len(layers))
	e.layerSaveStartTime = make(map[string]map[uint64]time.Time, len(layers))
	e.loadStartTime = make(map[uint64]time.Time)
	e.saveStartTime = make(map[uint64]time.Time)
	for _, layer := range layers {
		e.layerLoadStartTime[layer.Identifier()] = make(map[uint64]time.Time)
		e.layerSaveStartTime[layer.Identifier()] = make(map[uint64]time.Time)
	}
	return nil
}

func (e *PrometheusMetrics[TKey, TFlag]) PreLoadHook(traceID uint64, keys []TKey) []error {
	// record the batch size
	e.metrics.LoadBatchHistogram.WithLabelValues(append(e.labelValues, e.storeName)...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.loadMu.Lock()
	e.loadStartTime[traceID] = time.Now()
	e.loadMu.Unlock()
	return nil
}

func (e *PrometheusMetrics[TKey, TFlag]) PostLoadHook(traceID uint64, keys []TKey, masks []TFlag, errors []error) {
	// record the duration of the trace
	e.loadMu.Lock()
	traceTime := time.Since(e.loadStartTime[traceID]).Seconds()
	delete(e.loadStartTime, traceID)
	e.loadMu.Unlock()

	// record the status and trace for each key
	for i := 0; i < len(keys); i++ {
		status := loadStatus[TKey](errors, i)
		e.metrics.LoadTimeHistogram.WithLabelValues(append(e.labelValues, e.storeName, status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TFlag]) PreSaveHook(traceID uint64, keys []TKey, masks []TFlag) []error {
	// record the batch size
	e.metrics.SaveBatchHistogram.WithLabelValues(append(e.labelValues, e.storeName)...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.saveMu.Lock()
	e.saveStartTime[traceID] = time.Now()
	e.saveMu.Unlock()
	return nil
}

func (e *PrometheusMetrics[TKey, TFlag]) PostSaveHook(traceID uint64, keys []TKey, masks []TFlag, errors [][]error) {
	// record the duration of the trace
	e.saveMu.Lock()
	traceTime := time.Since(e.saveStartTime[traceID]).Seconds()
	delete(e.saveStartTime, traceID)
	e.saveMu.Unlock()

	// a key counts as saved when at least one layer stored it without error
	var status string
	for i := 0; i < len(keys); i++ {
		status = Error
		for _, layerErrors := range errors {
			if len(layerErrors) == 0 || layerErrors[i] == nil {
				status = Success
				break
			}
		}
		e.metrics.SaveTimeHistogram.WithLabelValues(append(e.labelValues, e.storeName, status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TFlag]) LayerPreLoadHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey) {
	// record the batch size
	e.metrics.LayerLoadBatchHistogram.WithLabelValues(append(e.labelValues, e.storeName, layer.Identifier())...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.layerLoadMu.Lock()
	e.layerLoadStartTime[layer.Identifier()][traceID] = time.Now()
	e.layerLoadMu.Unlock()
}

func (e *PrometheusMetrics[TKey, TFlag]) LayerPostLoadHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error) {
	// record the duration of the trace
	e.layerLoadMu.Lock()
	traceTime := time.Since(e.layerLoadStartTime[layer.Identifier()][traceID]).Seconds()
	delete(e.layerLoadStartTime[layer.Identifier()], traceID)
	e.layerLoadMu.Unlock()

	// record the status and trace for each key
	for i := 0; i < len(keys); i++ {
		status := loadStatus[TKey](errors, i)
		e.metrics.LayerLoadTimeHistogram.WithLabelValues(append(e.labelValues, e.storeName, layer.Identifier(), status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TFlag]) LayerPreSaveHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag) {
	// record the batch size
	e.metrics.LayerSaveBatchHistogram.WithLabelValues(append(e.labelValues, e.storeName, layer.Identifier())...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.layerSaveMu.Lock()
	e.layerSaveStartTime[layer.Identifier()][traceID] = time.Now()
	e.layerSaveMu.Unlock()
}

func (e *PrometheusMetrics[TKey, TFlag]) LayerPostSaveHook(traceID uint64, layer optset.Layer[TKey, TFlag], keys []TKey, masks []TFlag, errors []error) {
	// record the duration of the trace
	e.layerSaveMu.Lock()
	traceTime := time.Since(e.layerSaveStartTime[layer.Identifier()][traceID]).Seconds()
	delete(e.layerSaveStartTime[layer.Identifier()], traceID)
	e.layerSaveMu.Unlock()

	// record the status and trace for each key
	var status string
	for i := 0; i < len(keys); i++ {
		if len(errors) == 0 || errors[i] == nil {
			status = Success
		} else {
			status = Error
		}
		e.metrics.LayerSaveTimeHistogram.WithLabelValues(append(e.labelValues, e.storeName, layer.Identifier(), status)...).Observe(traceTime)
	}
}

func loadStatus[TKey any](errors []error, i int) string {
	if len(errors) == 0 || errors[i] == nil {
		return Success
	}
	if _, ok := errors[i].(optset.ErrNotFound[TKey]); ok {
		return NotFound
	}
	return Error
}
