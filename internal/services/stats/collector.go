package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// scrapeTimeout bounds the storage reads of one scrape
const scrapeTimeout = 5 * time.Second

// Collector exports queue stats for every tournament at scrape time
type Collector struct {
	service *Service
	logger  *slog.Logger

	players *prometheus.Desc
	matches *prometheus.Desc
}

// NewCollector creates a Collector; register it with a prometheus.Registerer
func NewCollector(service *Service, logger *slog.Logger) *Collector {
	return &Collector{
		service: service,
		logger:  logger.With(slog.String("component", "stats_collector")),
		players: prometheus.NewDesc(
			"chiptourney_players",
			"Players per tournament by status",
			[]string{"tournament", "status"}, nil,
		),
		matches: prometheus.NewDesc(
			"chiptourney_matches",
			"Matches per tournament by state",
			[]string{"tournament", "state"}, nil,
		),
	}
}

// Ensure Collector implements prometheus.Collector
var _ prometheus.Collector = (*Collector)(nil)

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.players
	ch <- c.matches
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	tournaments, err := c.service.storage.ListTournaments(ctx)
	if err != nil {
		c.logger.Error("failed to list tournaments", slog.String("error", err.Error()))
		ch <- prometheus.NewInvalidMetric(c.players, err)
		return
	}

	for _, t := range tournaments {
		qs, err := c.service.GetQueueStats(ctx, t.ID)
		if err != nil {
			c.logger.Error("failed to collect queue stats",
				slog.String("tournament_id", string(t.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		for status, n := range qs.PlayersByStatus {
			ch <- prometheus.MustNewConstMetric(c.players, prometheus.GaugeValue, float64(n), string(t.ID), string(status))
		}
		for state, n := range qs.MatchesByState {
			ch <- prometheus.MustNewConstMetric(c.matches, prometheus.GaugeValue, float64(n), string(t.ID), string(state))
		}
	}
}
