package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
)

const checklistColumns = `id, plan_version_id, category, name, source_type, source_id, total_cost, amount_paid,
	booking_status, booking_reference, booking_url, notes, payment_type, sort_order, created_at`

// ChecklistLinks returns the (source type, source id) pairs already seeded
// for a plan version. Manual items are not included.
func (s *Store) ChecklistLinks(ctx context.Context, planVersionID string) (domain.LinkSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_type, source_id FROM checklist_items
		 WHERE plan_version_id = ? AND source_type IS NOT NULL AND source_id IS NOT NULL`,
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist links: %w", err)
	}
	defer rows.Close()

	links := domain.NewLinkSet()
	for rows.Next() {
		var st, id string
		if err := rows.Scan(&st, &id); err != nil {
			return nil, fmt.Errorf("scan checklist link: %w", err)
		}
		if st == "" || id == "" {
			continue
		}
		links.Add(domain.LinkKey{SourceType: domain.SourceType(st), SourceID: id})
	}
	return links, rows.Err()
}

// InsertChecklistDrafts stores seeded checklist items. Drafts whose
// (plan_version_id, source_type, source_id) already exists are skipped
// silently, so repeated or concurrent seeding never duplicates rows. It
// returns the number of rows actually inserted.
func (s *Store) InsertChecklistDrafts(ctx context.Context, drafts []domain.ChecklistDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin checklist insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO checklist_items
		(id, plan_version_id, category, name, source_type, source_id, total_cost, booking_status, payment_type, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM checklist_items WHERE plan_version_id = ?), ?)
		ON CONFLICT (plan_version_id, source_type, source_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare checklist insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := time.Now()
	for _, d := range drafts {
		res, err := stmt.ExecContext(ctx,
			newID(""), d.PlanVersionID, d.Category, d.Name, string(d.SourceType), d.SourceID,
			d.TotalCost, string(d.BookingStatus), d.PaymentType, d.PlanVersionID, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert checklist item %s: %w", d.Link(), err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit checklist insert: %w", err)
	}
	return inserted, nil
}

// AddChecklistItem stores a manually entered checklist item
func (s *Store) AddChecklistItem(ctx context.Context, item domain.ChecklistItem) (*domain.ChecklistItem, error) {
	item.ID = newID(item.ID)
	item.CreatedAt = time.Now()
	if item.BookingStatus == "" {
		item.BookingStatus = domain.StatusNotBooked
	}
	if item.PaymentType == "" {
		item.PaymentType = domain.PaymentFull
	}
	if item.Category == "" {
		item.Category = domain.CategoryOther
	}

	err := s.db.QueryRowContext(ctx, `INSERT INTO checklist_items
		(id, plan_version_id, category, name, source_type, source_id, total_cost, amount_paid,
		 booking_status, booking_reference, booking_url, notes, payment_type, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM checklist_items WHERE plan_version_id = ?), ?)
		RETURNING sort_order`,
		item.ID, item.PlanVersionID, item.Category, item.Name, nullString(string(item.SourceType)), item.SourceID,
		item.TotalCost, item.AmountPaid, string(item.BookingStatus), item.BookingReference, item.BookingURL,
		item.Notes, item.PaymentType, item.PlanVersionID, item.CreatedAt,
	).Scan(&item.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("insert checklist item: %w", err)
	}
	return &item, nil
}

// GetChecklistItem retrieves a checklist item by ID
func (s *Store) GetChecklistItem(ctx context.Context, id string) (*domain.ChecklistItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+checklistColumns+" FROM checklist_items WHERE id = ?", id)
	item, err := scanChecklistItem(row)
	if err != nil {
		return nil, notFound("get checklist item", id, err)
	}
	return item, nil
}

// ListChecklistItems returns the checklist of a plan version in display order
func (s *Store) ListChecklistItems(ctx context.Context, planVersionID string) ([]domain.ChecklistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+checklistColumns+" FROM checklist_items WHERE plan_version_id = ? ORDER BY sort_order, created_at",
		planVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		item, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateChecklistStatus sets the booking status of one item
func (s *Store) UpdateChecklistStatus(ctx context.Context, id string, status domain.BookingStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE checklist_items SET booking_status = ? WHERE id = ?", string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update checklist status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update checklist status %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateChecklistItem overwrites the user-editable fields of an item
func (s *Store) UpdateChecklistItem(ctx context.Context, item domain.ChecklistItem) error {
	res, err := s.db.ExecContext(ctx, `UPDATE checklist_items SET
		name = ?, category = ?, total_cost = ?, amount_paid = ?, booking_status = ?,
		booking_reference = ?, booking_url = ?, notes = ?, payment_type = ?
		WHERE id = ?`,
		item.Name, item.Category, item.TotalCost, item.AmountPaid, string(item.BookingStatus),
		item.BookingReference, item.BookingURL, item.Notes, item.PaymentType, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update checklist item %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteChecklistItems removes the given items and returns how many went
func (s *Store) DeleteChecklistItems(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM checklist_items WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete checklist items: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteChecklistForPlan removes every checklist item of a plan version,
// manual ones included.
func (s *Store) DeleteChecklistForPlan(ctx context.Context, planVersionID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM checklist_items WHERE plan_version_id = ?", planVersionID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete plan checklist: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanChecklistItem(row rowScanner) (*domain.ChecklistItem, error) {
	var (
		item                 domain.ChecklistItem
		sourceType, sourceID sql.NullString
		status               string
	)
	err := row.Scan(&item.ID, &item.PlanVersionID, &item.Category, &item.Name, &sourceType, &sourceID,
		&item.TotalCost, &item.AmountPaid, &status, &item.BookingReference, &item.BookingURL,
		&item.Notes, &item.PaymentType, &item.SortOrder, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.BookingStatus = domain.BookingStatus(status)
	if sourceType.Valid {
		item.SourceType = domain.SourceType(sourceType.String)
	}
	if sourceID.Valid {
		item.SourceID = &sourceID.String
	}
	return &item, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
