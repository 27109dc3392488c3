package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/backend"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "tools")

// Catalog is the set of descriptors one backend advertises.
type Catalog struct {
	Backend backend.Backend
	Tools   []Descriptor
}

// Registry holds per-backend catalogs in dispatch precedence order:
// authenticated backends first, then the order backends were given.
type Registry struct {
	catalogs []*Catalog
	owners   map[string]backend.Backend
}

// Discover queries every enabled backend concurrently and merges the
// results. A backend that fails discovery contributes an empty catalog; the
// failure is logged and counted, never raised. Disabled backends are
// excluded before discovery is attempted.
func Discover(ctx context.Context, backends ...backend.Backend) *Registry {
	started := time.Now()
	defer metricskey.PerfCatalogDiscovery.MeasureSince(started, chatmodel.GetShopDomain(ctx))

	var enabled []backend.Backend
	for _, b := range backends {
		if b.Enabled() {
			enabled = append(enabled, b)
		}
	}

	catalogs := make([]*Catalog, len(enabled))
	var wg sync.WaitGroup
	for i, b := range enabled {
		wg.Add(1)
		go func(i int, b backend.Backend) {
			defer wg.Done()
			catalogs[i] = discoverOne(ctx, b)
		}(i, b)
	}
	wg.Wait()

	sort.SliceStable(catalogs, func(i, j int) bool {
		return catalogs[i].Backend.Authenticated() && !catalogs[j].Backend.Authenticated()
	})

	owners := make(map[string]backend.Backend)
	for _, cat := range catalogs {
		for _, d := range cat.Tools {
			if _, taken := owners[d.Name]; !taken {
				owners[d.Name] = cat.Backend
			}
		}
	}

	return &Registry{
		catalogs: catalogs,
		owners:   owners,
	}
}

func discoverOne(ctx context.Context, b backend.Backend) *Catalog {
	cat := &Catalog{Backend: b}

	defs, err := b.ListTools(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "catalog_discovery",
			"backend", b.Name(),
			"err", err.Error(),
		)
		metricskey.StatsCatalogDiscoveryFailed.IncrCounter(1, b.Name())
		return cat
	}

	for _, def := range defs {
		d, err := FromDefinition(def)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "invalid_tool",
				"backend", b.Name(),
				"tool", def.Name,
				"err", err.Error(),
			)
			continue
		}
		cat.Tools = append(cat.Tools, d)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"backend", b.Name(),
		"tools", len(cat.Tools),
	)
	return cat
}

// Catalogs returns the per-backend catalogs in precedence order.
func (r *Registry) Catalogs() []*Catalog {
	return r.catalogs
}

// Size returns the total number of advertised tools across all backends.
// Names repeated across backends count once per backend.
func (r *Registry) Size() int {
	n := 0
	for _, cat := range r.catalogs {
		n += len(cat.Tools)
	}
	return n
}

// Merged returns every advertised descriptor in precedence order. Names may
// repeat across backends.
func (r *Registry) Merged() []Descriptor {
	out := make([]Descriptor, 0, r.Size())
	for _, cat := range r.catalogs {
		out = append(out, cat.Tools...)
	}
	return out
}

// Resolve returns the backend that owns a tool name. A name advertised by
// several backends resolves to the authenticated one.
func (r *Registry) Resolve(name string) (backend.Backend, bool) {
	b, ok := r.owners[name]
	return b, ok
}

// LLMTools projects the merged catalog for a provider request. A collided
// name appears once, described by its owning backend.
func (r *Registry) LLMTools() []llms.Tool {
	var out []llms.Tool
	seen := make(map[string]bool)
	for _, cat := range r.catalogs {
		for _, d := range cat.Tools {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d.LLMTool())
		}
	}
	return out
}
