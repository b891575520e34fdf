/*
Package report computes point-in-time dashboards and the monthly
collection report over persisted incapacity state.

The aggregator only reads. It consumes strongly-typed projection rows
produced by the query layer and reduces them in memory; it never touches
the lifecycle service or mutates anything.
*/
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andara-hcm/incapacity-engine/incapacity"
)

// DefaultExpiryWindowDays is the near-expiry alert horizon.
const DefaultExpiryWindowDays = 3

// Row is the typed projection the query layer produces for reporting.
// One row per non-archived incapacity.
type Row struct {
	ID              int64
	Number          string
	EmployeeID      string
	Status          incapacity.Status
	LeaveType       incapacity.LeaveType
	StartDate       time.Time
	EndDate         time.Time
	TotalDays       int
	InsurerDays     int
	PayingEntity    string
	Transcribed     bool
	Collected       bool
	CollectedAt     *time.Time
	PayableAmount   decimal.Decimal
	CollectedAmount decimal.Decimal
	UpdatedAt       time.Time
}

// Source is the read-side store contract.
type Source interface {
	// ReportRows returns one row per non-archived incapacity.
	ReportRows(ctx context.Context) ([]Row, error)

	// MonthRows returns non-archived, non-cancelled rows with a nonzero
	// insurer-charged day count whose span starts in the given month.
	MonthRows(ctx context.Context, year int, month time.Month) ([]Row, error)
}

// =============================================================================
// STATISTICS
// =============================================================================

// ExpiringIncapacity is one near-expiry alert line.
type ExpiringIncapacity struct {
	ID         int64
	Number     string
	EmployeeID string
	EndDate    time.Time
	DaysLeft   int
}

// Statistics is the point-in-time dashboard.
type Statistics struct {
	AsOf time.Time

	ActiveCount          int
	PendingTranscription int // not yet transcribed, excluding cancelled
	PendingCollection    int // transcribed but not collected, excluding cancelled
	FinalizedThisMonth   int

	PendingCollectionAmount decimal.Decimal
	CollectedThisMonth      decimal.Decimal
	DaysStartedThisMonth    int

	ExpiringSoon []ExpiringIncapacity
}

// Aggregator computes statistics and collection reports.
type Aggregator struct {
	Source Source
	Clock  incapacity.Clock

	// ExpiryWindowDays overrides the near-expiry horizon when positive.
	ExpiryWindowDays int
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{Source: source, Clock: incapacity.SystemClock{}}
}

func (a *Aggregator) window() int {
	if a.ExpiryWindowDays > 0 {
		return a.ExpiryWindowDays
	}
	return DefaultExpiryWindowDays
}

// Statistics reduces the full projection into the dashboard as of "now".
func (a *Aggregator) Statistics(ctx context.Context) (*Statistics, error) {
	rows, err := a.Source.ReportRows(ctx)
	if err != nil {
		return nil, err
	}

	now := a.Clock.Now()
	today := incapacity.DateOf(now)
	horizon := today.AddDate(0, 0, a.window())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	stats := &Statistics{
		AsOf:                    now,
		PendingCollectionAmount: decimal.Zero,
		CollectedThisMonth:      decimal.Zero,
	}

	for _, r := range rows {
		cancelled := r.Status == incapacity.StatusCancelled

		if r.Status == incapacity.StatusActive {
			stats.ActiveCount++

			// Near-expiry: active records ending inside the horizon.
			if !r.EndDate.Before(today) && !r.EndDate.After(horizon) {
				stats.ExpiringSoon = append(stats.ExpiringSoon, ExpiringIncapacity{
					ID:         r.ID,
					Number:     r.Number,
					EmployeeID: r.EmployeeID,
					EndDate:    r.EndDate,
					DaysLeft:   incapacity.DaysInclusive(today, r.EndDate) - 1,
				})
			}
		}

		if !cancelled && !r.Transcribed {
			stats.PendingTranscription++
		}
		if !cancelled && r.Transcribed && !r.Collected {
			stats.PendingCollection++
			stats.PendingCollectionAmount = stats.PendingCollectionAmount.Add(r.PayableAmount)
		}

		if r.Status == incapacity.StatusFinalized &&
			!r.UpdatedAt.Before(monthStart) && r.UpdatedAt.Before(nextMonth) {
			stats.FinalizedThisMonth++
		}
		if r.Collected && r.CollectedAt != nil &&
			!r.CollectedAt.Before(monthStart) && r.CollectedAt.Before(nextMonth) {
			stats.CollectedThisMonth = stats.CollectedThisMonth.Add(r.CollectedAmount)
		}
		if !cancelled &&
			!r.StartDate.Before(monthStart) && r.StartDate.Before(nextMonth) {
			stats.DaysStartedThisMonth += r.TotalDays
		}
	}

	sort.Slice(stats.ExpiringSoon, func(i, j int) bool {
		return stats.ExpiringSoon[i].EndDate.Before(stats.ExpiringSoon[j].EndDate)
	})

	return stats, nil
}

// =============================================================================
// MONTHLY COLLECTION REPORT
// =============================================================================

// CollectionGroup aggregates one paying entity's month.
type CollectionGroup struct {
	PayingEntity    string
	Records         int
	InsurerDays     int
	PayableAmount   decimal.Decimal
	CollectedAmount decimal.Decimal
}

// CollectionReport groups payable amounts by paying entity for a month.
type CollectionReport struct {
	Year  int
	Month time.Month

	Groups []CollectionGroup

	TotalPayable   decimal.Decimal
	TotalCollected decimal.Decimal
}

// CollectionReport builds the monthly report. Records without
// insurer-charged days and cancelled records never appear; the query
// layer already excludes them.
func (a *Aggregator) CollectionReport(ctx context.Context, year int, month time.Month) (*CollectionReport, error) {
	rows, err := a.Source.MonthRows(ctx, year, month)
	if err != nil {
		return nil, err
	}

	byEntity := make(map[string]*CollectionGroup)
	for _, r := range rows {
		g, ok := byEntity[r.PayingEntity]
		if !ok {
			g = &CollectionGroup{
				PayingEntity:    r.PayingEntity,
				PayableAmount:   decimal.Zero,
				CollectedAmount: decimal.Zero,
			}
			byEntity[r.PayingEntity] = g
		}
		g.Records++
		g.InsurerDays += r.InsurerDays
		g.PayableAmount = g.PayableAmount.Add(r.PayableAmount)
		if r.Collected {
			g.CollectedAmount = g.CollectedAmount.Add(r.CollectedAmount)
		}
	}

	rep := &CollectionReport{
		Year:           year,
		Month:          month,
		TotalPayable:   decimal.Zero,
		TotalCollected: decimal.Zero,
	}
	for _, g := range byEntity {
		rep.Groups = append(rep.Groups, *g)
		rep.TotalPayable = rep.TotalPayable.Add(g.PayableAmount)
		rep.TotalCollected = rep.TotalCollected.Add(g.CollectedAmount)
	}
	sort.Slice(rep.Groups, func(i, j int) bool {
		return rep.Groups[i].PayingEntity < rep.Groups[j].PayingEntity
	})

	return rep, nil
}
