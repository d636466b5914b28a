package listview

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPollInterval = 3 * time.Second

// ListState is the query state a list view fetches with.
type ListState struct {
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Query   string      `json:"query,omitempty"`
	Filters FilterState `json:"filters,omitempty"`
	Sort    Sort        `json:"sort"`
}

func (s ListState) clone() ListState {
	s.Filters = s.Filters.Clone()
	return s
}

func (s ListState) request(def TableDefinition) PageRequest {
	page := s.Page
	if page < 1 {
		page = 1
	}
	perPage := s.PerPage
	if perPage <= 0 {
		perPage = def.DefaultPerPage
	}
	return PageRequest{
		Resource: def.Resource,
		ItemsKey: def.ItemsKey,
		Page:     page,
		PerPage:  perPage,
		Query:    s.Query,
		Filters:  s.Filters.Active(),
		Sort:     s.Sort,
	}
}

// PollSnapshot is a copy of the poller state after the latest applied fetch.
type PollSnapshot struct {
	State      ListState `json:"state"`
	Rows       []Row     `json:"rows"`
	TotalCount int       `json:"total_count"`
	Sequence   uint64    `json:"sequence"`
	Loading    bool      `json:"loading"`
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Table     TableDefinition
	Source    Source
	State     ListState
	Interval  time.Duration
	Scheduler Scheduler
	Hook      RefreshHook
	Notifier  Notifier
	Telemetry Telemetry
	Logger    *zerolog.Logger
	// OnSortReset runs after a server error cleared the sort.
	OnSortReset func(ctx context.Context)
}

// Poller keeps one list view fresh: it fetches on start, on every state
// change, on demand and on a fixed interval. Each fetch takes a sequence
// number and responses older than the latest applied one are dropped.
type Poller struct {
	opts   PollerOptions
	logger zerolog.Logger

	mu        sync.Mutex
	state     ListState
	rows      []Row
	rowsState ListState
	total     int
	issued    uint64
	applied   uint64
	loading   bool
	stopTick  func()
	ownSched  *CronScheduler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPoller builds a poller. A nil scheduler defaults to a cron scheduler
// owned by the poller.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Source == nil {
		return nil, errMissingSource
	}
	if opts.Table.Name == "" {
		return nil, errInvalidTable
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.Hook == nil {
		opts.Hook = noopRefreshHook{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	p := &Poller{opts: opts, logger: zerolog.Nop(), state: opts.State.clone()}
	if opts.Logger != nil {
		p.logger = opts.Logger.With().Str("table", opts.Table.Name).Logger()
	}
	if p.opts.Scheduler == nil {
		p.ownSched = NewCronScheduler()
		p.opts.Scheduler = p.ownSched
	}
	if p.state.PerPage <= 0 {
		p.state.PerPage = opts.Table.DefaultPerPage
	}
	if p.state.Page < 1 {
		p.state.Page = 1
	}
	p.rowsState = p.state.clone()
	return p, nil
}

// Start performs the initial load and then schedules the interval fetch.
// The returned error is the initial fetch error, if any; polling continues
// regardless.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Unlock()

	p.setLoading(true)
	err := p.fetch(ctx, "load")
	p.setLoading(false)
	return err
}

// Stop cancels the interval job and any fetch started by it.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopTick != nil {
		p.stopTick()
		p.stopTick = nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	own := p.ownSched
	p.mu.Unlock()
	if own != nil {
		own.Stop()
	}
}

// Refresh re-issues the fetch with the current state.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.fetch(ctx, "refresh")
}

// Update mutates the list state and fetches with the result.
func (p *Poller) Update(ctx context.Context, mutate func(*ListState)) error {
	p.mu.Lock()
	next := p.state.clone()
	mutate(&next)
	if next.Page < 1 {
		next.Page = 1
	}
	p.state = next
	p.mu.Unlock()
	return p.fetch(ctx, "state")
}

// State returns a copy of the current list state.
func (p *Poller) State() ListState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Snapshot returns the latest applied rows with the state they were fetched for.
func (p *Poller) Snapshot() PollSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollSnapshot{
		State:      p.rowsState.clone(),
		Rows:       append([]Row(nil), p.rows...),
		TotalCount: p.total,
		Sequence:   p.applied,
		Loading:    p.loading,
	}
}

func (p *Poller) setLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loading == loading {
		return
	}
	p.loading = loading
	if p.stopTick != nil {
		p.stopTick()
		p.stopTick = nil
	}
	if !loading && p.ctx != nil && p.ctx.Err() == nil {
		p.stopTick = p.opts.Scheduler.Every(p.opts.Interval, p.tick)
	}
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx, loading := p.ctx, p.loading
	p.mu.Unlock()
	if ctx == nil || loading || ctx.Err() != nil {
		return
	}
	if err := p.fetch(ctx, "poll"); err != nil {
		p.logger.Debug().Err(err).Msg("listview: poll fetch failed")
	}
}

func (p *Poller) fetch(ctx context.Context, reason string) error {
	p.mu.Lock()
	state := p.state.clone()
	req := state.request(p.opts.Table)
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	result, err := p.opts.Source.FetchPage(ctx, req)

	p.mu.Lock()
	if seq < p.applied {
		p.mu.Unlock()
		p.logger.Debug().Uint64("sequence", seq).Str("reason", reason).Msg("listview: stale response discarded")
		p.opts.Telemetry.Record(ctx, "listview.poll.stale", map[string]any{
			"table":    p.opts.Table.Name,
			"sequence": seq,
		})
		return nil
	}
	p.applied = seq
	if err != nil {
		resetSort := IsServerError(err) && !p.state.Sort.IsZero()
		if resetSort {
			p.state.Sort = Sort{}
		}
		p.mu.Unlock()
		p.failed(ctx, seq, err, resetSort)
		return err
	}
	p.rows = result.Rows
	p.rowsState = state
	p.total = result.TotalCount
	p.mu.Unlock()

	if hookErr := p.opts.Hook.ListUpdated(ctx, ListEvent{
		Table:      p.opts.Table.Name,
		Reason:     reason,
		Sequence:   seq,
		TotalCount: result.TotalCount,
		Rows:       result.Rows,
	}); hookErr != nil {
		p.logger.Warn().Err(hookErr).Msg("listview: refresh hook failed")
	}
	return nil
}

func (p *Poller) failed(ctx context.Context, seq uint64, err error, resetSort bool) {
	p.logger.Error().Err(err).Uint64("sequence", seq).Bool("sort_reset", resetSort).Msg("listview: fetch failed")
	if resetSort && p.opts.OnSortReset != nil {
		p.opts.OnSortReset(ctx)
	}
	n := Notification{Level: LevelError, Table: p.opts.Table.Name, Message: UserMessage(err)}
	p.opts.Notifier.Notify(ctx, n)
	if hookErr := p.opts.Hook.ListUpdated(ctx, ListEvent{
		Table:        p.opts.Table.Name,
		Reason:       "error",
		Sequence:     seq,
		Notification: &n,
	}); hookErr != nil {
		p.logger.Warn().Err(hookErr).Msg("listview: refresh hook failed")
	}
}
