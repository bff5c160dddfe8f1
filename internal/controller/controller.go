package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coldchain/fridgewatch/internal/metrics"
	"github.com/coldchain/fridgewatch/internal/store"
	"github.com/coldchain/fridgewatch/internal/telemetry"
	"github.com/coldchain/fridgewatch/internal/view"
)

// Update is the atomic output tuple of one cycle. KPIs and Payload are
// always derived from the same filtered slice of the same series; a
// renderer never sees one without the other.
type Update struct {
	CycleID string           `json:"cycle_id"`
	Seq     uint64           `json:"seq"`
	KPIs    metrics.KPISet   `json:"kpis"`
	Payload view.Payload     `json:"payload"`
	Window  telemetry.Window `json:"window"`
	Bounds  telemetry.Window `json:"bounds"`
	Live    bool             `json:"live"`
	Stale   bool             `json:"stale"`
	At      time.Time        `json:"at"`
}

// Renderer consumes updates. Render is called from the controller's
// single cycle goroutine, in trigger order; implementations that fan
// out must not block the cycle.
type Renderer interface {
	Render(Update)
}

type eventKind int

const (
	evWindow eventKind = iota
	evView
	evLive
)

type event struct {
	kind   eventKind
	window telemetry.Window
	view   string
	live   bool
}

// Controller serializes the four input channels into one event queue
// and runs exactly one recomputation cycle per event batch. All state
// below the channels is owned by the run goroutine; no locks needed.
type Controller struct {
	store    *store.Store
	renderer Renderer
	opts     view.Options

	events chan event
	ticks  chan struct{}
	stopCh chan struct{}
	done   chan struct{}

	window telemetry.Window
	viewID view.ID
	live   bool
	series *telemetry.Series
	seq    uint64
	last   *Update
}

// New creates a controller. defaultView must be a valid view id; live
// is the initial liveness flag.
func New(st *store.Store, renderer Renderer, defaultView view.ID, live bool, opts view.Options) *Controller {
	return &Controller{
		store:    st,
		renderer: renderer,
		opts:     opts,
		events:   make(chan event, 64),
		ticks:    make(chan struct{}, 1), // at most one pending tick
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		viewID:   defaultView,
		live:     live,
	}
}

// Start runs the cycle loop. The first cycle runs immediately so a
// renderer has output before any input arrives.
func (c *Controller) Start() {
	go c.run()
}

// Stop ends the loop after the in-flight cycle completes. A started
// cycle is never aborted mid-way.
func (c *Controller) Stop() {
	close(c.stopCh)
	<-c.done
}

// SetWindow queues a WindowChanged event.
func (c *Controller) SetWindow(w telemetry.Window) {
	c.events <- event{kind: evWindow, window: w}
}

// SetView queues a ViewChanged event. Unknown selectors are resolved
// in-cycle: the previously valid view stays selected.
func (c *Controller) SetView(id string) {
	c.events <- event{kind: evView, view: id}
}

// SetLive queues a LiveToggled event.
func (c *Controller) SetLive(live bool) {
	c.events <- event{kind: evLive, live: live}
}

// Tick delivers a TickElapsed event. Ticks arriving while a cycle is
// in flight coalesce: at most one stays pending, the rest are dropped.
func (c *Controller) Tick() {
	select {
	case c.ticks <- struct{}{}:
	default:
	}
}

func (c *Controller) run() {
	defer close(c.done)

	ctx := context.Background()
	c.cycle(ctx)

	for {
		select {
		case <-c.stopCh:
			return
		case ev := <-c.events:
			c.apply(ev)
			c.drain()
			c.cycle(ctx)
		case <-c.ticks:
			c.drain()
			c.cycle(ctx)
		}
	}
}

// drain folds every already-queued event into the upcoming cycle, so a
// batch of simultaneous inputs still yields exactly one output tuple.
func (c *Controller) drain() {
	for {
		select {
		case ev := <-c.events:
			c.apply(ev)
		case <-c.ticks:
		default:
			return
		}
	}
}

func (c *Controller) apply(ev event) {
	switch ev.kind {
	case evWindow:
		if !ev.window.Valid() {
			fmt.Printf("Rejecting crossed window [%d, %d]\n", ev.window.Start, ev.window.End)
			return
		}
		c.window = ev.window
	case evView:
		id, err := view.ParseID(ev.view)
		if err != nil {
			fmt.Printf("Keeping view %q: %v\n", c.viewID, err)
			return
		}
		c.viewID = id
	case evLive:
		c.live = ev.live
	}
}

// cycle is one reload-or-reuse -> filter -> aggregate/compose -> emit
// sequence. It runs to completion; there is no mid-cycle abort.
func (c *Controller) cycle(ctx context.Context) {
	if c.live || c.series == nil {
		series, err := c.store.Load(ctx)
		if err != nil {
			fmt.Printf("Reload failed, serving stale output: %v\n", err)
			c.emitStale()
			return
		}
		c.series = series
	}

	bounds := c.series.Bounds()
	if c.window.IsZero() {
		c.window = bounds
	}
	w := c.window.Clamp(bounds)

	filtered := c.series.Window(w)
	kpis := metrics.Aggregate(filtered)
	payload, err := view.Compose(filtered, c.viewID, c.opts)
	if err != nil {
		// Unreachable while apply() validates selectors; a bad view
		// id must never crash a cycle regardless.
		fmt.Printf("Compose failed: %v\n", err)
		c.emitStale()
		return
	}

	c.emit(Update{
		KPIs:    kpis,
		Payload: payload,
		Window:  w,
		Bounds:  bounds,
		Live:    c.live,
	})
}

// emitStale re-emits the last good tuple flagged stale, or an
// undefined tuple if no load has ever succeeded. The renderer keeps
// showing data instead of blanking.
func (c *Controller) emitStale() {
	if c.last != nil {
		u := *c.last
		u.Stale = true
		u.Live = c.live
		c.send(u)
		return
	}
	c.send(Update{
		KPIs:    metrics.Undefined(),
		Payload: view.Payload{View: c.viewID, Empty: true},
		Live:    c.live,
		Stale:   true,
	})
}

func (c *Controller) emit(u Update) {
	c.last = &u
	c.send(u)
}

func (c *Controller) send(u Update) {
	c.seq++
	u.Seq = c.seq
	u.CycleID = uuid.New().String()
	u.At = time.Now()
	c.renderer.Render(u)
}
