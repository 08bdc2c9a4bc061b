package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/config"
	"github.com/rshade/stork/internal/fixture"
	"github.com/rshade/stork/internal/logging"
	"github.com/rshade/stork/internal/query"
	"github.com/rshade/stork/internal/session"
)

// ErrNoFixture is returned by query commands run without a data source.
var ErrNoFixture = errors.New("no market data source: pass --fixture or set " + EnvFixture)

// EnvFixture names the market data fixture used when --fixture is not given.
const EnvFixture = "STORK_FIXTURE"

// app holds the state resolved by the root command for its subcommands.
type app struct {
	configPath string
	cacheDir   string
	noCache    bool
	debug      bool

	cfg       *config.Config
	logResult *logging.LogPathResult
}

// load resolves the configuration and applies root flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	cfg := config.New()
	if cmd.Annotations[annotationSkipConfig] == "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("cache-dir") {
		cfg.Cache.Directory = a.cacheDir
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}

	a.cfg = cfg
	return nil
}

// settings returns the resolved configuration, falling back to defaults for
// commands that run without the root pre-run hook.
func (a *app) settings() *config.Config {
	if a.cfg == nil {
		a.cfg = config.New()
	}
	return a.cfg
}

// openStore opens the file store described by the configuration.
func (a *app) openStore() (*cache.FileStore, error) {
	cfg := a.settings()

	policy, err := cfg.TTLPolicy()
	if err != nil {
		return nil, err
	}

	opts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Cache.MemoryTier {
		opts = append(opts, cache.WithMemoryTier())
	}

	store, err := cache.NewFileStore(cfg.Cache.Directory, cfg.Cache.Enabled, policy, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

// newSession creates a session with the configured idle timeout.
func (a *app) newSession() *session.Session {
	return session.New(
		session.WithIdleTimeout(a.settings().IdleTimeout()),
		session.WithLogger(logger),
	)
}

// newService wires the fixture provider, cache and sess into a query service.
func (a *app) newService(fixturePath string, store cache.Store, sess *session.Session) (*query.Service, error) {
	provider, err := loadProvider(fixturePath)
	if err != nil {
		return nil, err
	}

	return query.NewService(provider, store, sess,
		query.WithPageSize(a.settings().Session.PageSize),
		query.WithLogger(logger),
	), nil
}

func loadProvider(path string) (*fixture.Provider, error) {
	if path == "" {
		return nil, ErrNoFixture
	}
	provider, err := fixture.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading fixture: %w", err)
	}
	return provider, nil
}
