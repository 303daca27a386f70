package checklist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResetConfirmation is the exact text a caller must pass to Reset.
const ResetConfirmation = "RESET"

// ErrConfirmationRequired is returned by Reset when the confirmation text
// does not match. Nothing has been deleted when it is returned.
var ErrConfirmationRequired = errors.New("reset requires confirmation " + ResetConfirmation)

// Store is the persistence the reconciler needs
type Store interface {
	GetPlanVersion(ctx context.Context, id string) (*domain.PlanVersion, error)
	ListAccommodations(ctx context.Context, planVersionID string) ([]domain.Accommodation, error)
	ListTransport(ctx context.Context, planVersionID string) ([]domain.Transport, error)
	ListCosts(ctx context.Context, planVersionID string) ([]domain.CostRecord, error)

	ChecklistLinks(ctx context.Context, planVersionID string) (domain.LinkSet, error)
	InsertChecklistDrafts(ctx context.Context, drafts []domain.ChecklistDraft) (int, error)
	ListChecklistItems(ctx context.Context, planVersionID string) ([]domain.ChecklistItem, error)
	GetChecklistItem(ctx context.Context, id string) (*domain.ChecklistItem, error)
	AddChecklistItem(ctx context.Context, item domain.ChecklistItem) (*domain.ChecklistItem, error)
	UpdateChecklistStatus(ctx context.Context, id string, status domain.BookingStatus) error
	DeleteChecklistItems(ctx context.Context, ids []string) (int, error)
	DeleteChecklistForPlan(ctx context.Context, planVersionID string) (int, error)
}

// SeedReport counts what a seed run produced. Inserted can be lower than
// Drafted when another writer seeded the same records concurrently.
type SeedReport struct {
	Drafted  int `json:"drafted"`
	Inserted int `json:"inserted"`
	Removed  int `json:"removed,omitempty"`
}

// CleanupReport lists what a cleanup deleted and what it left for the user.
type CleanupReport struct {
	Deleted      int                    `json:"deleted"`
	DeletedTotal decimal.Decimal        `json:"deleted_total"`
	Unsafe       []domain.ChecklistItem `json:"unsafe"`
}

// Reconciler runs checklist operations against a store
type Reconciler struct {
	store  Store
	logger *zap.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(store Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger}
}

// SeedPlan drafts and inserts the checklist items a plan version is missing.
func (r *Reconciler) SeedPlan(ctx context.Context, planVersionID string) (SeedReport, error) {
	if err := r.requirePlan(ctx, planVersionID); err != nil {
		return SeedReport{}, err
	}
	return r.seed(ctx, planVersionID)
}

func (r *Reconciler) seed(ctx context.Context, planVersionID string) (SeedReport, error) {
	links, err := r.store.ChecklistLinks(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, fmt.Errorf("read checklist links: %w", err)
	}
	accs, err := r.store.ListAccommodations(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, fmt.Errorf("list accommodations: %w", err)
	}
	transport, err := r.store.ListTransport(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, fmt.Errorf("list transport: %w", err)
	}
	costs, err := r.store.ListCosts(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, fmt.Errorf("list costs: %w", err)
	}

	drafts := Seed(planVersionID, links, accs, transport, costs)
	inserted, err := r.store.InsertChecklistDrafts(ctx, drafts)
	if err != nil {
		return SeedReport{}, fmt.Errorf("insert checklist drafts: %w", err)
	}

	r.logger.Info("checklist seeded",
		zap.String("plan_version_id", planVersionID),
		zap.Int("drafted", len(drafts)),
		zap.Int("inserted", inserted))
	return SeedReport{Drafted: len(drafts), Inserted: inserted}, nil
}

// Duplicates classifies the current checklist without changing it.
func (r *Reconciler) Duplicates(ctx context.Context, planVersionID string) (Classification, error) {
	if err := r.requirePlan(ctx, planVersionID); err != nil {
		return Classification{}, err
	}
	items, err := r.store.ListChecklistItems(ctx, planVersionID)
	if err != nil {
		return Classification{}, fmt.Errorf("list checklist items: %w", err)
	}
	return Classify(items), nil
}

// Cleanup deletes the safe duplicates and reports the unsafe ones.
func (r *Reconciler) Cleanup(ctx context.Context, planVersionID string) (CleanupReport, error) {
	c, err := r.Duplicates(ctx, planVersionID)
	if err != nil {
		return CleanupReport{}, err
	}
	report := CleanupReport{DeletedTotal: decimal.Zero, Unsafe: c.Unsafe}
	if len(c.Safe) == 0 {
		return report, nil
	}

	n, err := r.store.DeleteChecklistItems(ctx, c.SafeIDs())
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete duplicates: %w", err)
	}
	report.Deleted = n
	report.DeletedTotal = c.SafeTotal

	r.logger.Info("checklist duplicates removed",
		zap.String("plan_version_id", planVersionID),
		zap.Int("deleted", n),
		zap.Int("unsafe", len(c.Unsafe)))
	return report, nil
}

// Reset drops every checklist item of a plan version, manual ones and user
// edits included, and seeds again. confirmation must equal
// ResetConfirmation.
func (r *Reconciler) Reset(ctx context.Context, planVersionID, confirmation string) (SeedReport, error) {
	if confirmation != ResetConfirmation {
		return SeedReport{}, ErrConfirmationRequired
	}
	if err := r.requirePlan(ctx, planVersionID); err != nil {
		return SeedReport{}, err
	}

	removed, err := r.store.DeleteChecklistForPlan(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, fmt.Errorf("clear checklist: %w", err)
	}
	r.logger.Warn("checklist reset",
		zap.String("plan_version_id", planVersionID),
		zap.Int("removed", removed))

	report, err := r.seed(ctx, planVersionID)
	if err != nil {
		return SeedReport{}, err
	}
	report.Removed = removed
	return report, nil
}

// AddManual stores a hand-entered item. It has no source link and is never
// touched by seeding or cleanup.
func (r *Reconciler) AddManual(ctx context.Context, planVersionID, name, category string, total decimal.Decimal) (*domain.ChecklistItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cost must not be negative")
	}
	if err := r.requirePlan(ctx, planVersionID); err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.CategoryOther
	}

	item, err := r.store.AddChecklistItem(ctx, domain.ChecklistItem{
		PlanVersionID: planVersionID,
		Category:      category,
		Name:          name,
		TotalCost:     total,
		BookingStatus: domain.StatusNotBooked,
		PaymentType:   domain.PaymentFull,
	})
	if err != nil {
		return nil, fmt.Errorf("add checklist item: %w", err)
	}
	return item, nil
}

// CycleStatus moves an item to its next booking status.
func (r *Reconciler) CycleStatus(ctx context.Context, itemID string) (*domain.ChecklistItem, error) {
	item, err := r.store.GetChecklistItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get checklist item: %w", err)
	}
	item.BookingStatus = item.BookingStatus.Next()
	if err := r.store.UpdateChecklistStatus(ctx, item.ID, item.BookingStatus); err != nil {
		return nil, fmt.Errorf("update checklist status: %w", err)
	}
	return item, nil
}

func (r *Reconciler) requirePlan(ctx context.Context, planVersionID string) error {
	if strings.TrimSpace(planVersionID) == "" {
		return fmt.Errorf("plan version id is required")
	}
	if _, err := r.store.GetPlanVersion(ctx, planVersionID); err != nil {
		return fmt.Errorf("get plan version: %w", err)
	}
	return nil
}
