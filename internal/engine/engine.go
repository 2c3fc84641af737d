// Package engine is the facade that owns the six models, trains them from a
// business snapshot and serves one insight getter per model.
package engine

import (
	"sync"
	"time"

	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/retry"
	"smartbiz-ml/internal/sources"
	"smartbiz-ml/internal/telemetry"
)

// Sources are the read-only collaborators the getters query. Nil entries
// behave as empty sources; the static context is used when Context is nil.
type Sources struct {
	Sales     sources.SalesProvider
	Inventory sources.InventoryProvider
	Customers sources.CustomerStore
	Market    sources.MarketSource
	Context   sources.ContextSource
}

// FromStore wires every record collaborator to one store.
func FromStore(s *sources.Store, ctx sources.ContextSource) Sources {
	return Sources{Sales: s, Inventory: s, Customers: s, Market: s, Context: ctx}
}

// Engine owns one instance of each model. It is safe for concurrent use.
type Engine struct {
	src Sources

	clock            func() time.Time
	callTimeout      time.Duration
	retry            retry.Config
	trainConcurrency int
	metrics          *telemetry.Metrics

	demand       models.DemandForecaster
	segmentation models.CustomerSegmenter
	price        models.PriceOptimizer
	inventory    models.InventoryOptimizer
	churn        models.ChurnPredictor
	sales        models.SalesForecaster

	mu      sync.RWMutex
	lastRun *TrainingRun
}

func New(src Sources, opts ...Option) *Engine {
	o := options{
		clock:            time.Now,
		callTimeout:      DefaultCallTimeout,
		retry:            retry.DefaultConfig(),
		trainConcurrency: DefaultTrainConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	if o.trainConcurrency <= 0 {
		o.trainConcurrency = DefaultTrainConcurrency
	}

	empty := sources.NewStore()
	if src.Sales == nil {
		src.Sales = empty
	}
	if src.Inventory == nil {
		src.Inventory = empty
	}
	if src.Customers == nil {
		src.Customers = empty
	}
	if src.Market == nil {
		src.Market = empty
	}
	if src.Context == nil {
		src.Context = sources.NewStaticContext()
	}

	e := &Engine{
		src:              src,
		clock:            o.clock,
		callTimeout:      o.callTimeout,
		retry:            o.retry,
		trainConcurrency: o.trainConcurrency,
		metrics:          o.metrics,
		demand:           o.demand,
		segmentation:     o.segmentation,
		price:            o.price,
		inventory:        o.inventory,
		churn:            o.churn,
		sales:            o.sales,
	}
	// Each default model draws from its own stream so one model's calls do not shift another's noise.
	if e.demand == nil {
		e.demand = models.NewDemandModel(models.NewLockedRand(o.seed))
	}
	if e.segmentation == nil {
		e.segmentation = models.NewSegmentationModel()
	}
	if e.price == nil {
		e.price = models.NewPriceModel()
	}
	if e.inventory == nil {
		e.inventory = models.NewInventoryModel()
	}
	if e.churn == nil {
		e.churn = models.NewChurnModel()
	}
	if e.sales == nil {
		e.sales = models.NewSalesModel(models.NewLockedRand(o.seed + 1))
	}
	return e
}

// Status reports the last training run and which models are trained.
type Status struct {
	LastRun *TrainingRun    `json:"lastRun,omitempty"`
	Models  map[string]bool `json:"models"`
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	var run *TrainingRun
	if e.lastRun != nil {
		copied := *e.lastRun
		run = &copied
	}
	e.mu.RUnlock()

	return Status{
		LastRun: run,
		Models: map[string]bool{
			models.ModelDemand:       e.demand.Trained(),
			models.ModelSegmentation: e.segmentation.Trained(),
			models.ModelPrice:        e.price.Trained(),
			models.ModelInventory:    e.inventory.Trained(),
			models.ModelChurn:        e.churn.Trained(),
			models.ModelSales:        e.sales.Trained(),
		},
	}
}
