package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/repository"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// ErrReconcileRunning is returned when a reconciliation pass is already in progress
var ErrReconcileRunning = errors.New("reconciliation already running")

// OwnerReconcileReport is the outcome of one owner namespace
type OwnerReconcileReport struct {
	Owner           string                `json:"owner"`
	Bookings        repository.PushResult `json:"bookings"`
	Enquiries       repository.PushResult `json:"enquiries"`
	PatchesReplayed int                   `json:"patchesReplayed"`
	Error           string                `json:"error,omitempty"`
}

// ReconcileReport summarises a reconciliation pass
type ReconcileReport struct {
	StartedAt         time.Time              `json:"startedAt"`
	FinishedAt        time.Time              `json:"finishedAt"`
	RemoteUnavailable bool                   `json:"remoteUnavailable"`
	Owners            []OwnerReconcileReport `json:"owners"`
}

// Pushed is the number of local records that reached the remote service
func (r *ReconcileReport) Pushed() int {
	n := 0
	for _, o := range r.Owners {
		n += o.Bookings.Pushed + o.Enquiries.Pushed
	}
	return n
}

// ReconcileService pushes records created offline to the remote service and
// replays status changes the remote service has not seen
type ReconcileService struct {
	provider *repository.Provider
	logger   *logrus.Logger
	mu       sync.Mutex
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(provider *repository.Provider, logger *logrus.Logger) *ReconcileService {
	return &ReconcileService{
		provider: provider,
		logger:   logger,
	}
}

// Run performs one pass over every owner namespace. It stops early once the
// remote service is found unavailable.
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrReconcileRunning
	}
	defer s.mu.Unlock()

	report := &ReconcileReport{StartedAt: time.Now().UTC(), Owners: []OwnerReconcileReport{}}

	owners, err := s.provider.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	for _, owner := range owners {
		ownerReport, err := s.reconcileOwner(ctx, owner)
		if err != nil {
			ownerReport.Error = err.Error()
		}
		report.Owners = append(report.Owners, ownerReport)

		if errors.Is(err, tourapi.ErrUnavailable) {
			report.RemoteUnavailable = true
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.logger.WithFields(logrus.Fields{
		"owners":             len(report.Owners),
		"pushed":             report.Pushed(),
		"remote_unavailable": report.RemoteUnavailable,
		"duration":           report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Reconciliation pass finished")

	return report, nil
}

func (s *ReconcileService) reconcileOwner(ctx context.Context, owner string) (OwnerReconcileReport, error) {
	report := OwnerReconcileReport{Owner: owner}
	var err error

	if report.Bookings, err = s.provider.Bookings(owner).PushLocal(ctx); err != nil {
		return report, fmt.Errorf("push bookings: %w", err)
	}
	if report.Enquiries, err = s.provider.Enquiries(owner).PushLocal(ctx); err != nil {
		return report, fmt.Errorf("push enquiries: %w", err)
	}
	if report.PatchesReplayed, err = s.provider.Patches(owner).Replay(ctx); err != nil {
		return report, fmt.Errorf("replay status patches: %w", err)
	}
	return report, nil
}
