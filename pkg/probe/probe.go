// Package probe runs scheduled reachability checks against the upstream
// platforms so operators see connectivity problems before callers do.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/voxgate/voxgate/internal/observability"
)

// checkTimeout bounds one reachability check. Any HTTP answer inside the
// window counts as reachable; only transport failure counts as down.
const checkTimeout = 10 * time.Second

// Result is the latest observation for one target.
type Result struct {
	Target    string        `json:"target"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// TargetsFunc yields the targets for a sweep. Called fresh each sweep so
// configuration reloads change what gets probed without a restart.
type TargetsFunc func() []Target

// OnChangeFunc is invoked when a target's reachability flips, including the
// first observation.
type OnChangeFunc func(target string, reachable bool)

// Options wires a Prober.
type Options struct {
	// Schedule is a cron expression or @every descriptor, e.g. "@every 5m".
	Schedule string
	Targets  TargetsFunc
	OnChange OnChangeFunc
	Logger   zerolog.Logger
}

// Prober sweeps the configured targets on a cron schedule and remembers the
// last result per target.
type Prober struct {
	schedule string
	targets  TargetsFunc
	onChange OnChangeFunc
	logger   zerolog.Logger

	httpClient *http.Client

	mu      sync.Mutex
	runner  *cron.Cron
	last    map[string]Result
	running bool
}

// New creates a Prober. The schedule is validated up front so a bad
// expression fails at wiring time, not at first tick.
func New(opts Options) (*Prober, error) {
	if opts.Targets == nil {
		return nil, fmt.Errorf("targets func is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 5m"
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid probe schedule %q: %w", opts.Schedule, err)
	}

	observability.EnsureRegistered()

	return &Prober{
		schedule:   opts.Schedule,
		targets:    opts.Targets,
		onChange:   opts.OnChange,
		logger:     opts.Logger.With().Str("component", "probe").Logger(),
		httpClient: &http.Client{},
		last:       make(map[string]Result),
	}, nil
}

// Start schedules sweeps and kicks an immediate one so status surfaces have
// data right away.
func (p *Prober) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("prober already running")
	}

	runner := cron.New()
	if _, err := runner.AddFunc(p.schedule, func() {
		p.RunNow(context.Background())
	}); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to schedule probes: %w", err)
	}
	runner.Start()
	p.runner = runner
	p.running = true
	p.mu.Unlock()

	p.logger.Info().Str("schedule", p.schedule).Msg("Connectivity probes started")

	go p.RunNow(context.Background())
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (p *Prober) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	runner := p.runner
	p.runner = nil
	p.running = false
	p.mu.Unlock()

	<-runner.Stop().Done()
	p.logger.Info().Msg("Connectivity probes stopped")
	return nil
}

// IsRunning reports whether sweeps are scheduled.
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunNow sweeps every target once and returns the results in target order.
func (p *Prober) RunNow(ctx context.Context) []Result {
	targets := p.targets()
	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		results = append(results, p.check(ctx, target))
	}
	return results
}

// Results returns the last observation per target, sorted by name.
func (p *Prober) Results() []Result {
	p.mu.Lock()
	results := make([]Result, 0, len(p.last))
	for _, r := range p.last {
		results = append(results, r)
	}
	p.mu.Unlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Target < results[j].Target })
	return results
}

func (p *Prober) check(ctx context.Context, target Target) Result {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.request(ctx, target)
	result := Result{
		Target:    target.Name,
		Reachable: err == nil,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}

	observability.SetUpstreamReachable(target.Name, result.Reachable)

	p.mu.Lock()
	previous, seen := p.last[target.Name]
	p.last[target.Name] = result
	p.mu.Unlock()

	changed := !seen || previous.Reachable != result.Reachable
	if changed {
		event := p.logger.Info()
		if !result.Reachable {
			event = p.logger.Warn()
		}
		event.
			Str("target", target.Name).
			Bool("reachable", result.Reachable).
			Dur("latency", result.Latency).
			Str("error", result.Error).
			Msg("Upstream reachability changed")

		observability.RecordConfigAudit(ctx, "probe", target.Name, map[string]interface{}{
			"reachable": result.Reachable,
			"error":     result.Error,
		})
		if p.onChange != nil {
			p.onChange(target.Name, result.Reachable)
		}
	}

	return result
}

func (p *Prober) request(ctx context.Context, target Target) error {
	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	for name, values := range target.Header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
