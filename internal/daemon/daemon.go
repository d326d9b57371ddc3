package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/logger"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
	"github.com/voxgate/voxgate/pkg/agentforce"
	"github.com/voxgate/voxgate/pkg/bridge"
	"github.com/voxgate/voxgate/pkg/gateway"
	"github.com/voxgate/voxgate/pkg/httpapi"
	"github.com/voxgate/voxgate/pkg/probe"
	"github.com/voxgate/voxgate/pkg/speech"
)

// Daemon owns the voice gateway process: the upstream clients, the bridge,
// both serving surfaces, and the background workers around them.
type Daemon struct {
	store  *config.Store
	logger *logger.Logger

	// Core modules
	agentClient  *agentforce.Client
	speechClient *speech.Client
	voiceBridge  *bridge.Bridge
	evictor      *agentforce.Evictor
	prober       *probe.Prober

	// Services
	gatewayServer *gateway.Server
	httpServer    *httpapi.Server

	// Internal
	watcher   *config.Watcher
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// New creates a new daemon instance. The store is consulted live by the
// upstream clients, so configuration reloads reach them without a rebuild.
func New(store *config.Store, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	observability.EnsureRegistered()
	if err := tracing.InitOpenTelemetry("voxgate-daemon"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
	} else {
		log.Info().Msg("Tracing initialized successfully")
	}

	d := &Daemon{
		store:          store,
		logger:         log,
		ctx:            ctx,
		cancel:         cancel,
		tracingEnabled: true,
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		cancel()
		if d.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
			d.tracingEnabled = false
		}
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize services
	if err := d.initializeServices(); err != nil {
		cancel()
		if d.tracingEnabled {
			_ = tracing.ShutdownOpenTelemetry(context.Background())
			d.tracingEnabled = false
		}
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules wires the upstream clients and the bridge
func (d *Daemon) initializeCoreModules() error {
	cfg, err := d.store.Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize audit logger
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to create data directory")
		}
		auditPath := filepath.Join(cfg.DataDir, "audit.log")
		if err := observability.InitAuditLogger(auditPath); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
		} else {
			d.logger.Info().Str("path", auditPath).Msg("Audit logger initialized")
		}
	}

	agentClient, err := agentforce.NewClient(d.agentCredentials)
	if err != nil {
		return fmt.Errorf("failed to create agentforce client: %w", err)
	}
	d.agentClient = agentClient
	d.logger.Info().Bool("enabled", cfg.Agentforce.Enabled).Msg("Agentforce client initialized")

	speechClient, err := speech.NewClient(d.speechSettings)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}
	d.speechClient = speechClient
	d.logger.Info().Bool("enabled", cfg.Speech.Enabled).Msg("Speech client initialized")

	voiceBridge, err := bridge.New(bridge.Config{
		Agent:  d.agentClient,
		Speech: d.speechClient,
		Store:  d.store,
		Logger: d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create voice bridge: %w", err)
	}
	d.voiceBridge = voiceBridge
	d.logger.Info().Msg("Voice bridge initialized")

	d.evictor = agentforce.NewEvictor(
		d.agentClient,
		time.Duration(cfg.Conversations.IdleTTLMinutes)*time.Minute,
		time.Duration(cfg.Conversations.CleanupIntervalMinutes)*time.Minute,
	)
	d.logger.Info().
		Int("idle_ttl_minutes", cfg.Conversations.IdleTTLMinutes).
		Msg("Conversation evictor initialized")

	return nil
}

// initializeServices wires the serving surfaces and background workers
func (d *Daemon) initializeServices() error {
	cfg, err := d.store.Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Probe.Enabled {
		prober, err := probe.New(probe.Options{
			Schedule: cfg.Probe.Schedule,
			Targets:  d.probeTargets,
			OnChange: d.handleReachabilityChange,
			Logger:   d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create prober: %w", err)
		}
		d.prober = prober
		d.logger.Info().Str("schedule", cfg.Probe.Schedule).Msg("Connectivity prober initialized")
	}

	if cfg.Gateway.Enabled {
		gatewayServer, err := gateway.NewServer(gateway.Config{
			Port:         cfg.Gateway.Port,
			Host:         cfg.Gateway.Host,
			SharedSecret: cfg.Gateway.SharedSecret,
			Bridge:       d.voiceBridge,
			Status:       d.statusPayload,
			Logger:       d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway server: %w", err)
		}
		d.gatewayServer = gatewayServer
		d.logger.Info().Int("port", cfg.Gateway.Port).Msg("Gateway server initialized")

		d.voiceBridge.SetEventEmitter(func(ctx context.Context, evt bridge.TurnEvent) {
			payload := map[string]interface{}{
				"text":   evt.Text,
				"source": evt.Source,
			}
			if evt.SequenceID > 0 {
				payload["sequence_id"] = evt.SequenceID
			}
			d.gatewayServer.BroadcastTyped(gateway.EventMessage{
				Event:        evt.Event,
				Data:         payload,
				TraceID:      tracing.GetTraceID(ctx),
				Conversation: evt.ConversationID,
				Timestamp:    time.Now().UnixMilli(),
			})
		})
	}

	if cfg.HTTP.Enabled {
		httpServer, err := httpapi.NewServer(httpapi.ServerOptions{
			Port:               cfg.HTTP.Port,
			Host:               cfg.HTTP.Host,
			SharedSecret:       cfg.HTTP.SharedSecret,
			RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		}, d.voiceBridge, d.logger.GetZerolog())
		if err != nil {
			return fmt.Errorf("failed to create HTTP API server: %w", err)
		}
		d.httpServer = httpServer
		d.logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP API server initialized")
	}

	if path := d.store.Path(); path != "" {
		watcher, err := config.NewWatcher(path, d.handleConfigReload, d.logger.GetZerolog())
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to create config watcher, hot reload disabled")
		} else {
			d.watcher = watcher
			d.logger.Info().Str("path", path).Msg("Config watcher initialized")
		}
	}

	return nil
}

// agentCredentials feeds the agentforce client from the live configuration.
func (d *Daemon) agentCredentials() (agentforce.Credentials, error) {
	cfg, err := d.store.Get()
	if err != nil {
		return agentforce.Credentials{}, err
	}
	if err := cfg.Agentforce.Check(); err != nil {
		return agentforce.Credentials{}, err
	}
	return agentforce.Credentials{
		ServerHost:   cfg.Agentforce.ServerHost,
		ClientID:     cfg.Agentforce.ClientID,
		ClientSecret: cfg.Agentforce.ClientSecret,
		AgentID:      cfg.Agentforce.AgentID,
		OrgID:        cfg.Agentforce.OrgID,
	}, nil
}

// speechSettings feeds the speech client from the live configuration.
func (d *Daemon) speechSettings() (speech.Settings, error) {
	cfg, err := d.store.Get()
	if err != nil {
		return speech.Settings{}, err
	}
	if err := cfg.Speech.Check(); err != nil {
		return speech.Settings{}, err
	}
	return speech.Settings{
		Endpoint:        cfg.Speech.Endpoint,
		APIKey:          cfg.Speech.APIKey,
		TranscribeModel: cfg.Speech.TranscribeModel,
		ChatModel:       cfg.Speech.ChatModel,
		TTSModel:        cfg.Speech.TTSModel,
		TTSVoice:        cfg.Speech.TTSVoice,
		TTSFormat:       cfg.Speech.TTSFormat,
		MaxTokens:       cfg.Speech.MaxTokens,
		Temperature:     cfg.Speech.Temperature,
	}, nil
}

// probeTargets resolves probe targets per sweep so reloads change coverage.
func (d *Daemon) probeTargets() []probe.Target {
	cfg, err := d.store.Get()
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to load configuration for probe sweep")
		return nil
	}
	return probe.TargetsFromConfig(cfg)
}

// handleReachabilityChange pushes reachability flips to connected clients.
func (d *Daemon) handleReachabilityChange(target string, reachable bool) {
	if d.gatewayServer == nil {
		return
	}
	d.gatewayServer.Broadcast(gateway.EventUpstreamStatus, map[string]interface{}{
		"target":    target,
		"reachable": reachable,
	})
}

// handleConfigReload reloads the store when the config file changes. A
// reload that fails validation restores the previous snapshot so the
// daemon never runs on a half-written file.
func (d *Daemon) handleConfigReload() {
	ctx := tracing.NewRequestContext(context.Background())
	logger := tracing.LoggerFromContext(ctx, d.logger.GetZerolog())

	previous, prevErr := d.store.Get()

	cfg, err := d.store.Reload()
	if err != nil {
		logger.Error().Err(err).Msg("Config reload failed, keeping previous configuration")
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Reloaded config is invalid, keeping previous configuration")
		if prevErr == nil {
			d.store.Set(previous)
		}
		return
	}

	// Cached sessions were minted with the old credentials; drop them so
	// the next turn authenticates fresh.
	dropped := d.voiceBridge.ResetAll(ctx)

	observability.RecordConfigAudit(ctx, "reload", d.store.Path(), map[string]interface{}{
		"conversations_reset": dropped,
	})

	if d.gatewayServer != nil {
		d.gatewayServer.Broadcast(gateway.EventConfigReloaded, map[string]interface{}{
			"conversations_reset": dropped,
		})
	}

	logger.Info().Int("conversations_reset", dropped).Msg("Configuration reloaded")
}

// statusPayload is the daemon-level half of the status surface. The
// gateway adds its own client count on top.
func (d *Daemon) statusPayload() map[string]interface{} {
	status := d.Status()

	payload := map[string]interface{}{
		"running":        status.Running,
		"uptime_seconds": int64(status.Uptime.Seconds()),
	}
	if d.voiceBridge != nil {
		payload["active_conversations"] = d.voiceBridge.ActiveConversations()
	}
	if d.prober != nil {
		payload["upstreams"] = d.prober.Results()
	}
	return payload
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting voxgate daemon")

	// Start lifecycle manager
	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	// Start gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Start(); err != nil {
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
		logger.Info().Msg("Gateway server started")
	}

	// Start HTTP API server. Start blocks on the listener, so it runs on
	// its own goroutine and reports failure through the log.
	if d.httpServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.httpServer.Start(); err != nil {
				d.logger.Error().Err(err).Msg("HTTP API server stopped unexpectedly")
			}
		}()
		logger.Info().Msg("HTTP API server started")
	}

	// Start conversation evictor
	if err := d.evictor.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start conversation evictor")
	} else {
		logger.Info().Msg("Conversation evictor started")
	}

	// Start connectivity prober
	if d.prober != nil {
		if err := d.prober.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start connectivity prober")
		} else {
			logger.Info().Msg("Connectivity prober started")
		}
	}

	// Start config watcher
	if d.watcher != nil {
		d.watcher.Start()
		logger.Info().Msg("Config watcher started")
	}

	logger.Info().Msg("Daemon started successfully - all modules active")

	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping voxgate daemon")

	// Stop config watcher
	if d.watcher != nil {
		d.watcher.Stop()
	}

	// Stop connectivity prober
	if d.prober != nil && d.prober.IsRunning() {
		if err := d.prober.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop connectivity prober")
		}
	}

	// Stop conversation evictor
	if d.evictor != nil && d.evictor.IsRunning() {
		if err := d.evictor.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop conversation evictor")
		}
	}

	// Stop HTTP API server
	if d.httpServer != nil {
		if err := d.httpServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop HTTP API server")
		}
	}

	// Stop gateway server
	if d.gatewayServer != nil {
		if err := d.gatewayServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop gateway server")
		}
	}

	// Cancel context
	d.cancel()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	// Stop lifecycle manager
	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	if d.tracingEnabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}

	// Close audit logger
	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait waits for the daemon to stop
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetStore returns the configuration store
func (d *Daemon) GetStore() *config.Store {
	return d.store
}

// GetLogger returns the daemon logger
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetBridge returns the voice bridge
func (d *Daemon) GetBridge() *bridge.Bridge {
	return d.voiceBridge
}

// GetGatewayServer returns the gateway server, nil when disabled
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gatewayServer
}

// Status represents daemon status
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}
