package risk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mbd888/riskops/internal/idgen"
	"github.com/mbd888/riskops/internal/metrics"
	"github.com/mbd888/riskops/internal/pagination"
)

// DefaultHistoryLimit caps History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 20

// Service scores subjects and records each assessment in the background.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewService creates a scoring service. store may be nil to skip recording.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Assess scores a company or industry from its signals.
func (s *Service) Assess(ctx context.Context, kind Kind, subject string, signals map[string]Signal) *Score {
	score := Compute(signals)
	s.record(ctx, kind, subject, score)
	return score
}

// AssessPortfolio scores a set of holdings under the given portfolio id.
func (s *Service) AssessPortfolio(ctx context.Context, subject string, holdings []Holding) *PortfolioScore {
	ps := ComputePortfolio(holdings)
	s.record(ctx, KindPortfolio, subject, ps.Score)
	return ps
}

// History lists recorded assessments for subject, newest first. cursor is
// the next value from a previous call; the returned next is "" on the last
// page.
func (s *Service) History(ctx context.Context, subject string, limit int, cursor string) (items []*Assessment, next string, err error) {
	before, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	if s.store == nil {
		return nil, "", nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	items, err = s.store.ListBySubject(ctx, subject, limit+1, before)
	if err != nil {
		return nil, "", err
	}
	items, next = pagination.ComputePage(items, limit, func(a *Assessment) (time.Time, string) {
		return a.EvaluatedAt, a.ID
	})
	return items, next, nil
}

// Wait blocks until in-flight recordings finish (shutdown, tests).
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) record(ctx context.Context, kind Kind, subject string, score *Score) {
	metrics.RiskScore.WithLabelValues(string(kind)).Observe(score.Value)
	if s.store == nil {
		return
	}

	a := &Assessment{
		ID:          idgen.New(),
		Kind:        kind,
		Subject:     subject,
		Score:       score.Value,
		Rating:      score.Rating,
		Factors:     score.Factors,
		Defaulted:   score.Defaulted,
		EvaluatedAt: s.now(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.store.Record(rctx, a); err != nil {
			s.logger.Warn("failed to record risk assessment", "subject", subject, "error", err)
		}
	}()
}
