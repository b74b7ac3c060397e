package retention

import (
	"context"
	"sort"
	"time"
)

// evictByAge deletes every artifact with createdAt < now − maxAge.
// Best-effort per item: a failing delete is logged and skipped, never
// aborting the batch.
func (s *Scheduler) evictByAge(ctx context.Context, maxAge time.Duration) Result {
	if maxAge <= 0 {
		maxAge = s.cfg.MaxAge
	}

	var res Result
	list, err := s.st.List()
	if err != nil {
		s.logger.Error("retention: list for age eviction", "error", err)
		return res
	}

	cutoff := s.now().Add(-maxAge)
	for _, a := range list {
		if ctx.Err() != nil {
			break
		}
		if !a.CreatedAt.Before(cutoff) {
			continue
		}
		ok, err := s.st.Delete(a.Name)
		if err != nil {
			s.logger.Warn("retention: delete failed", "name", a.Name, "error", err)
			continue
		}
		if ok {
			res.DeletedCount++
			res.DeletedBytes += a.Size
		}
	}

	s.report("cleanup", res)
	return res
}

// evictByCount deletes the overflow oldest artifacts so at most maxFiles
// remain. Ordering is createdAt ascending with the store's stable name
// order breaking ties.
func (s *Scheduler) evictByCount(ctx context.Context, maxFiles int) Result {
	if maxFiles <= 0 {
		maxFiles = s.cfg.MaxFiles
	}

	var res Result
	list, err := s.st.List()
	if err != nil {
		s.logger.Error("retention: list for count eviction", "error", err)
		return res
	}

	overflow := len(list) - maxFiles
	if overflow <= 0 {
		return res
	}

	// List is name-sorted; a stable sort on createdAt keeps that order for
	// equal timestamps.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	for _, a := range list[:overflow] {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.st.Delete(a.Name)
		if err != nil {
			s.logger.Warn("retention: delete failed", "name", a.Name, "error", err)
			continue
		}
		if ok {
			res.DeletedCount++
			res.DeletedBytes += a.Size
		}
	}

	s.report("trim", res)
	return res
}

// Monitor compares store totals against the configured ceilings and warns
// when exceeded. It never deletes anything.
func (s *Scheduler) Monitor(ctx context.Context) {
	_ = ctx

	stats, err := s.st.Stats(false)
	if err != nil {
		s.logger.Error("retention: stats for monitor", "error", err)
		return
	}

	if s.cfg.MaxTotalBytes > 0 && stats.TotalBytes > s.cfg.MaxTotalBytes {
		s.logger.Warn("retention: total size over ceiling",
			"total_bytes", stats.TotalBytes, "ceiling", s.cfg.MaxTotalBytes)
	}
	if s.cfg.MaxFiles > 0 && stats.TotalCount > s.cfg.MaxFiles {
		s.logger.Warn("retention: file count over ceiling",
			"total_count", stats.TotalCount, "ceiling", s.cfg.MaxFiles)
	}
}

// EvictByAge is the exported form used by the service layer for on-demand
// eviction with an explicit policy override.
func (s *Scheduler) EvictByAge(ctx context.Context, maxAge time.Duration) Result {
	return s.evictByAge(ctx, maxAge)
}

// EvictByCount trims the store down to maxFiles on demand.
func (s *Scheduler) EvictByCount(ctx context.Context, maxFiles int) Result {
	return s.evictByCount(ctx, maxFiles)
}
