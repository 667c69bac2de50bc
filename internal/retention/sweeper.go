// Package retention deletes page visits that have aged past each project's
// configured retention window. The sweep is idempotent: running it twice in a
// row deletes nothing the second time.
package retention

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	projectrepo "pulsewatch/internal/project/repository"
	visitrepo "pulsewatch/internal/visit/repository"
)

// Result summarizes one sweep run.
type Result struct {
	ProjectsProcessed int   `json:"projectsProcessed"`
	VisitsDeleted     int64 `json:"visitsDeleted"`
	Failed            int   `json:"failed"`
}

// Sweeper walks retention-enabled projects and prunes their page visits.
type Sweeper struct {
	projects projectrepo.Repository
	visits   visitrepo.Repository
	logger   *slog.Logger
	nowF     func() time.Time

	deleted metric.Int64Counter
}

// NewSweeper returns a retention sweeper.
func NewSweeper(projects projectrepo.Repository, visits visitrepo.Repository, logger *slog.Logger) *Sweeper {
	deleted, _ := otel.Meter("pulsewatch/retention").Int64Counter("retention.visits_deleted")
	return &Sweeper{
		projects: projects,
		visits:   visits,
		logger:   logger,
		nowF:     func() time.Time { return time.Now().UTC() },
		deleted:  deleted,
	}
}

// Run executes one sweep over all retention-enabled projects. A failure on one
// project is counted and logged but never stops the sweep for the others; the
// error return is reserved for being unable to list projects at all.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	var res Result
	projects, err := s.projects.ListWithRetention(ctx)
	if err != nil {
		return res, err
	}
	now := s.nowF()
	for _, p := range projects {
		if !p.RetentionEnabled() {
			continue
		}
		cutoff := now.AddDate(0, 0, -*p.VisitsRetentionDays)
		n, err := s.visits.DeleteOlderThan(ctx, p.ID, cutoff)
		if err != nil {
			res.Failed++
			s.logger.Error("retention: sweep project failed", "project_id", p.ID, "err", err)
			continue
		}
		res.ProjectsProcessed++
		res.VisitsDeleted += n
		s.deleted.Add(ctx, n)
		if n > 0 {
			s.logger.Info("retention: pruned visits", "project_id", p.ID, "deleted", n, "cutoff", cutoff)
		}
	}
	return res, nil
}
