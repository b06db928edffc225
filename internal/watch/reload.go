package watch

import (
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/config"
	"github.com/lodestar-catalog/lodestar/internal/generation"
)

// Reloader recompiles the schema set and publishes the result. A failed
// compile leaves the previous generation active; a schema change is all or
// nothing.
type Reloader struct {
	cfg  *config.Config
	pub  *generation.Publisher
	opts generation.Options
	log  *zap.Logger
}

// NewReloader creates a reloader bound to a publisher
func NewReloader(cfg *config.Config, pub *generation.Publisher, opts generation.Options, log *zap.Logger) *Reloader {
	return &Reloader{cfg: cfg, pub: pub, opts: opts, log: log}
}

// Reload compiles the configured schema set and publishes it on success.
// It returns an error only for the caller's information; the published
// generation never regresses.
func (r *Reloader) Reload(changed []string) error {
	sources, err := config.LoadSources(r.cfg.Schema.Paths)
	if err != nil {
		r.log.Error("schema reload aborted; keeping current generation", zap.Error(err))
		return err
	}
	bindings, err := config.LoadEntityRegistry(r.cfg.Schema.EntityRegistry)
	if err != nil {
		r.log.Error("schema reload aborted; keeping current generation", zap.Error(err))
		return err
	}

	gen, errs := generation.Compile(sources, bindings, r.opts)
	for _, warning := range errs.Warnings() {
		r.log.Warn("compile warning", zap.String("diagnostic", warning.Error()))
	}
	if errs.HasErrors() {
		r.log.Error("schema compile failed; keeping current generation",
			zap.Strings("changed", changed),
			zap.Int("errors", len(errs.Errors())),
			zap.String("first", errs.Errors()[0].Error()))
		return errs
	}

	r.pub.Publish(gen)
	r.log.Info("published new schema generation",
		zap.String("generation", gen.ID.String()),
		zap.Int("aspects", len(gen.Schemas.AspectNames())),
		zap.Int("mappingFields", len(gen.Mappings)),
		zap.Int("edges", len(gen.Edges)),
		zap.Strings("changed", changed))
	return nil
}
