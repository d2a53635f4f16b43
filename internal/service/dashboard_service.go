package service

import (
	"context"

	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	repository.DashboardCounts
	EventStatusCounts     map[model.EventStatus]int          `json:"event_status_counts"`
	UpcomingEvents        []repository.DashboardUpcomingEvent `json:"upcoming_events"`
	DepartmentEligibility []repository.DepartmentEligibility `json:"department_eligibility"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics concurrently.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	data := &DashboardData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		data.DashboardCounts, err = s.repo.GetSummaryCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.EventStatusCounts, err = s.repo.GetEventStatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.UpcomingEvents, err = s.repo.GetUpcomingEvents(gctx, 5)
		return err
	})
	g.Go(func() error {
		var err error
		data.DepartmentEligibility, err = s.repo.GetDepartmentEligibility(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
