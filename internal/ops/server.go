package ops

import (
	"time"

	"github.com/yanun0323/errors"

	"main/internal/backtest"
	"main/internal/bars"
	"main/internal/broker"
	"main/internal/obs"
	"main/pkg/conn"
	"main/pkg/exception"
)

// ServerConfig mirrors the backtest server's JSON config file.
type ServerConfig struct {
	Host            string `json:"host"`
	RendezvousPort  int    `json:"rendezvousPort"`
	InPortBase      int    `json:"inPortBase"`
	OutPortBase     int    `json:"outPortBase"`
	ProbeAttempts   int    `json:"probeAttempts"`
	ExpectedClients int    `json:"expectedClients"`

	EnrollTimeoutMs  int `json:"enrollTimeoutMs"`
	BarrierTimeoutMs int `json:"barrierTimeoutMs"`

	Source SourceConfig `json:"source"`
}

// SourceConfig selects where day bars come from.
type SourceConfig struct {
	Kind string `json:"kind"` // "csv" or "postgres"

	// Dir is the CSV directory, one <symbol>.csv per symbol.
	Dir string `json:"dir"`

	Postgres conn.Config `json:"postgres"`
	// Day restricts a postgres source to one calendar day, formatted
	// "2006-01-02". Empty serves all rows.
	Day string `json:"day"`
}

// LoadServer reads and validates a server config file.
func LoadServer(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadJSON(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func (cfg ServerConfig) validate() error {
	if cfg.ExpectedClients <= 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "expectedClients must be positive")
	}
	switch cfg.Source.Kind {
	case "csv":
		if cfg.Source.Dir == "" {
			return errors.Wrap(exception.ErrInvalidConfig, "csv source needs dir")
		}
	case "postgres":
		if cfg.Source.Postgres.Database == "" {
			return errors.Wrap(exception.ErrInvalidConfig, "postgres source needs database")
		}
	default:
		return errors.Wrap(exception.ErrInvalidConfig, "unknown source kind '"+cfg.Source.Kind+"'")
	}
	return nil
}

// Broker builds the connection broker settings, leaving zero values for
// the broker's own defaults.
func (cfg ServerConfig) Broker() broker.Config {
	return broker.Config{
		Host:           cfg.Host,
		RendezvousPort: cfg.RendezvousPort,
		InPortBase:     cfg.InPortBase,
		OutPortBase:    cfg.OutPortBase,
		ProbeAttempts:  cfg.ProbeAttempts,
		EnrollTimeout:  time.Duration(cfg.EnrollTimeoutMs) * time.Millisecond,
	}
}

// Backtest builds the replay engine settings.
func (cfg ServerConfig) Backtest(metrics *obs.Metrics) backtest.Config {
	return backtest.Config{
		BarrierTimeout: time.Duration(cfg.BarrierTimeoutMs) * time.Millisecond,
		Metrics:        metrics,
	}
}

// BuildSource opens the configured bar source. The returned closer is
// non-nil only for sources holding external connections.
func (cfg ServerConfig) BuildSource() (bars.Source, func() error, error) {
	switch cfg.Source.Kind {
	case "csv":
		source, err := bars.NewCSVSource(cfg.Source.Dir)
		if err != nil {
			return nil, nil, err
		}
		return source, nil, nil
	case "postgres":
		client, err := conn.New(cfg.Source.Postgres)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open postgres")
		}
		var day time.Time
		if cfg.Source.Day != "" {
			day, err = time.Parse(time.DateOnly, cfg.Source.Day)
			if err != nil {
				client.Close()
				return nil, nil, errors.Wrap(err, "parse source day")
			}
		}
		return bars.NewPostgresSource(client, day), client.Close, nil
	default:
		return nil, nil, errors.Wrap(exception.ErrInvalidConfig, "unknown source kind")
	}
}
