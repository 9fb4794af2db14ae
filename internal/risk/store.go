package risk

import (
	"context"
	"time"

	"github.com/mbd888/riskops/internal/pagination"
)

// Kind identifies what was assessed.
type Kind string

const (
	KindCompany   Kind = "company"
	KindIndustry  Kind = "industry"
	KindPortfolio Kind = "portfolio"
)

// Assessment is a recorded score for a subject (ticker, industry or portfolio id).
type Assessment struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Subject     string    `json:"subject"`
	Score       float64   `json:"score"`
	Rating      Rating    `json:"rating"`
	Factors     []Factor  `json:"factors"`
	Defaulted   []string  `json:"defaulted,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Store persists assessments. Implementations must be safe for concurrent use.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	// ListBySubject returns up to limit assessments newest first, starting
	// after before when it is non-nil.
	ListBySubject(ctx context.Context, subject string, limit int, before *pagination.Cursor) ([]*Assessment, error)
}

func cloneAssessment(a *Assessment) *Assessment {
	c := *a
	c.Factors = append([]Factor(nil), a.Factors...)
	c.Defaulted = append([]string(nil), a.Defaulted...)
	return &c
}
