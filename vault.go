// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scriptvault

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/scriptvault/config"
	"github.com/poiesic/scriptvault/httpapi"
	"github.com/poiesic/scriptvault/storage"
	"github.com/poiesic/scriptvault/storage/badger"
	"github.com/poiesic/scriptvault/storage/filesystem"
	"github.com/poiesic/scriptvault/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Vault wires a storage backend, a store and its metrics together.
type Vault struct {
	cfg      *config.Config
	backend  storage.Backend
	store    *store.Store
	registry *prometheus.Registry
	logger   *slog.Logger
}

// Open opens the backend named in cfg and builds a store on top of it.
// Nil cfg means config.DefaultConfig().
func Open(cfg *config.Config) (*Vault, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := store.NewMetrics(registry)
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger := slog.Default().With("component", "vault")
	st, err := store.NewStore(backend,
		store.WithRetention(cfg.Retention),
		store.WithMetrics(metrics),
		store.WithLogger(slog.Default().With("component", "store")),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger.Info("vault opened", "backend", cfg.Backend, "data_dir", cfg.DataDir, "retention", st.Retention())
	return &Vault{
		cfg:      cfg,
		backend:  backend,
		store:    st,
		registry: registry,
		logger:   logger,
	}, nil
}

func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendFilesystem:
		return filesystem.NewBackend(cfg.DataDir)
	case config.BackendBadger:
		return badger.NewBackend(cfg.DataDir)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

func (v *Vault) Close() error {
	if err := v.backend.Close(); err != nil {
		v.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (v *Vault) Store() *store.Store {
	return v.store
}

func (v *Vault) Registry() *prometheus.Registry {
	return v.registry
}

// NewServer builds an HTTP server for the vault's store using the
// transport settings from its config. Extra options are applied last.
func (v *Vault) NewServer(opts ...httpapi.Option) (*httpapi.Server, error) {
	base := []httpapi.Option{
		httpapi.WithAPIKeys(v.cfg.APIKeys...),
		httpapi.WithMaxPayloadBytes(v.cfg.MaxPayloadBytes),
		httpapi.WithPoolSize(v.cfg.WorkerPoolSize),
		httpapi.WithGatherer(v.registry),
		httpapi.WithLogger(slog.Default().With("component", "httpapi")),
	}
	return httpapi.NewServer(v.store, append(base, opts...)...)
}
