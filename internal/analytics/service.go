package analytics

import (
	"context"
	"time"

	"github.com/hatvoni/insider/report"
)

// Service builds inventory analytics reports.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// InventoryReport aggregates lot movements over the period. A zero `to`
// defaults to now, a zero `from` to thirty days before `to`.
func (s *Service) InventoryReport(ctx context.Context, from, to time.Time) (*report.InventoryReportData, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	lots, err := s.repo.LotAnalytics(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &report.InventoryReportData{
		GeneratedAt: s.now(),
		From:        from,
		To:          to,
		Lots:        lots,
	}, nil
}

// InventoryReportHTML renders the report document.
func (s *Service) InventoryReportHTML(ctx context.Context, from, to time.Time) (string, error) {
	data, err := s.InventoryReport(ctx, from, to)
	if err != nil {
		return "", err
	}
	return report.RenderInventoryHTML(*data)
}
