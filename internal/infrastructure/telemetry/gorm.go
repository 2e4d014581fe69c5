package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span instrumentation.
type DBTracingConfig struct {
	DBName     string
	LogFullSQL bool // include query variables in spans; leave off outside dev
}

// InstrumentDatabase registers the otelgorm plugin so every query runs in a
// child span of the surrounding request trace. Query variables are stripped
// from the recorded statement unless LogFullSQL is set.
func InstrumentDatabase(db *gorm.DB, cfg DBTracingConfig) error {
	opts := []otelgorm.Option{
		otelgorm.WithDBName(cfg.DBName),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return db.Use(otelgorm.NewPlugin(opts...))
}
