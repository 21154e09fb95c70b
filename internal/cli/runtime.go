package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sufield/clusterauth/internal/adapters/logging"
	"github.com/sufield/clusterauth/internal/adapters/metrics"
	"github.com/sufield/clusterauth/internal/adapters/secondary/config"
	"github.com/sufield/clusterauth/internal/adapters/secondary/kubernetes"
	"github.com/sufield/clusterauth/internal/adapters/secondary/memory"
	"github.com/sufield/clusterauth/internal/adapters/secondary/monitoring"
	"github.com/sufield/clusterauth/internal/adapters/secondary/redisstore"
	"github.com/sufield/clusterauth/internal/core/application"
	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/ports"
	"github.com/sufield/clusterauth/internal/core/services"
	"github.com/sufield/clusterauth/internal/shutdown"
)

// policyQueue is implemented by the engines that buffer requests for an evaluator.
type policyQueue interface {
	ports.PolicyEngine
	Next(ctx context.Context) (domain.PolicyRequest, bool, error)
}

// environment is everything a command needs, composed from one configuration file.
type environment struct {
	cfg      *config.Config
	logger   ports.Logger
	registry *prometheus.Registry
	builder  *services.ConnectOptionsBuilder
	verifier *services.CredentialVerifier
	gate     *services.PolicyGate
	events   policyQueue
	manager  *application.ClusterManager
	shutdown *shutdown.Coordinator
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get config flag: %v", ErrUsage, err)
	}
	cfg, err := config.NewLoader().Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	env := &environment{
		cfg:      cfg,
		logger:   logging.NewSecureLogger(logging.NewHandler(cmd.ErrOrStderr(), logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})),
		registry: prometheus.NewRegistry(),
	}
	env.shutdown = shutdown.NewCoordinator(shutdown.Config{Logger: env.logger})
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		env.shutdown.RegisterCleanupFunc(func(context.Context) error {
			if err := prometheus.WriteToTextfile(path, env.registry); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			return nil
		})
	}
	reporter := metrics.NewPrometheusMetrics(env.registry)

	system, err := application.CreateManagedSystem(cfg.System.ID, cfg.System.Name, cfg.System.Endpoints, cfg.System.Authentications)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	system.Zone = cfg.System.Zone
	system.HTTPProxy = cfg.System.HTTPProxy

	connector := kubernetes.NewConnector()
	env.builder = services.NewConnectOptionsBuilder(services.NewSSLPolicyResolver(), cfg.Settings.ProviderSettings())
	verifierOpts := []services.VerifierOption{
		services.WithMonitoringManager(monitoring.NewAlertsManager(env.logger)),
		services.WithCredentialStore(memory.NewCredentialStore(system)),
		services.WithVerifierMetrics(reporter),
		services.WithVerifierLogger(env.logger),
	}
	if cfg.Settings.ProbeMetrics {
		verifierOpts = append(verifierOpts, services.WithMetricsProbe(domain.RolePrometheus, monitoring.BuildInfoProbe{}))
	}
	env.verifier = services.NewCredentialVerifier(connector, env.builder, verifierOpts...)

	store, jobs, err := env.policyBackend(ctx)
	if err != nil {
		_ = env.shutdown.Shutdown(ctx)
		return nil, err
	}

	handlers := services.NewHandlerRegistry()
	env.gate = services.NewPolicyGate(env.events, store, handlers,
		services.WithGateMetrics(reporter),
		services.WithGateLogger(env.logger),
	)

	env.manager, err = application.NewClusterManager(system, application.Dependencies{
		Connector:  connector,
		Builder:    env.builder,
		Verifier:   env.verifier,
		Gate:       env.gate,
		Jobs:       jobs,
		Logger:     env.logger,
		ServerHost: cfg.Policy.ServerHost,
	})
	if err != nil {
		_ = env.shutdown.Shutdown(ctx)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	directory := application.NewDirectory()
	directory.Add(env.manager)
	application.RegisterHandlers(handlers, directory)
	return env, nil
}

func (e *environment) policyBackend(ctx context.Context) (ports.ContinuationStore, ports.JobQueue, error) {
	p := e.cfg.Policy
	if p.Backend != config.BackendRedis {
		e.events = memory.NewQueueEngine()
		return memory.NewContinuationStore(), memory.NewJobQueue(), nil
	}

	client, err := redisstore.Connect(ctx, redisstore.Options{
		Addr:            p.RedisAddr,
		DB:              p.RedisDB,
		KeyPrefix:       p.KeyPrefix,
		EventQueue:      p.EventQueue,
		JobQueue:        p.JobQueue,
		ContinuationTTL: p.ContinuationTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRuntime, err)
	}
	e.shutdown.RegisterClient(client)
	e.events = client.Events()
	return client.Continuations(), client.Jobs(), nil
}

// persistent reports whether decisions can be resolved by a later process.
func (e *environment) persistent() bool {
	return e.cfg.Policy.Backend == config.BackendRedis
}

// finish releases backend connections and writes the metrics file when one was
// requested.
func (e *environment) finish(ctx context.Context) error {
	if err := e.shutdown.Shutdown(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return nil
}

// withEnvironment runs fn with a loaded environment and always releases it.
func withEnvironment(cmd *cobra.Command, fn func(*environment) error) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	runErr := fn(env)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := env.finish(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		return err
	}
	return runErr
}
