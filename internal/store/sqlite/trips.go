package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/store"
)

// tripColumns is the ordered list of columns selected in trip queries.
// Must match the scan order in scanTrip.
const tripColumns = `id, owner_id, title, city, day_count, intent, status, total_cost_minor, tips, cover_ref, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

// scanTrip scans a sql.Row (or sql.Rows via its Scan method) into a domain.TripInfo.
// extra receives any columns selected after tripColumns.
func scanTrip(scanner rowScanner, extra ...any) (*domain.TripInfo, error) {
	var (
		info      domain.TripInfo
		intent    string
		tips      sql.NullString
		coverRef  sql.NullString
		createdAt string
		updatedAt string
	)

	dest := []any{
		&info.ID,
		&info.OwnerID,
		&info.Title,
		&info.City,
		&info.DayCount,
		&intent,
		&info.Status,
		&info.TotalCostMinor,
		&tips,
		&coverRef,
		&createdAt,
		&updatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if info.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if info.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	info.Intent = domain.Intent(intent)
	info.Tips = tips.String
	info.CoverRef = coverRef.String
	return &info, nil
}

// CreateTrip inserts a new trip and its blocks.
// Returns store.ErrDuplicateTrip on duplicate ID.
func (s *Store) CreateTrip(ctx context.Context, doc *domain.Document) error {
	if doc.Info.ID == "" {
		return store.ErrInvalidInput.WithMessage("trip id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	info := doc.Info
	_, err = tx.ExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID,
		info.OwnerID,
		info.Title,
		info.City,
		info.DayCount,
		string(info.Intent),
		info.Status,
		info.TotalCostMinor,
		nullString(info.Tips),
		nullString(info.CoverRef),
		formatTime(info.CreatedAt),
		formatTime(info.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrDuplicateTrip
		}
		return err
	}

	if err := insertBlocks(ctx, tx, info.ID, doc.Blocks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	store.IndexAsync(s.searchIndexer, doc, s.warn)
	return nil
}

func insertBlocks(ctx context.Context, tx *sql.Tx, tripID string, blocks []*domain.Block) error {
	for _, b := range blocks {
		content, err := json.Marshal(b.Content)
		if err != nil {
			return fmt.Errorf("marshal block %s: %w", b.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trip_blocks (trip_id, id, type, sort_order, content, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			tripID, b.ID, string(b.Type), b.Order, string(content), formatTime(b.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
	}
	return nil
}

// GetTrip retrieves a trip with its blocks in order.
// Returns store.ErrTripNotFound if the trip does not exist.
func (s *Store) GetTrip(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)

	info, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}

	blocks, err := s.loadBlocks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	return &domain.Document{Info: *info, Blocks: blocks}, nil
}

// loadBlocks loads a trip's blocks ordered by sort_order.
func (s *Store) loadBlocks(ctx context.Context, tripID string) ([]*domain.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, sort_order, content, updated_at
		FROM trip_blocks WHERE trip_id = ? ORDER BY sort_order`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []*domain.Block{}
	for rows.Next() {
		var (
			b         domain.Block
			typ       string
			content   string
			updatedAt string
		)
		if err := rows.Scan(&b.ID, &typ, &b.Order, &content, &updatedAt); err != nil {
			return nil, err
		}
		b.Type = domain.BlockType(typ)
		if b.Content, err = domain.DecodeContent(b.Type, json.RawMessage(content)); err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
		if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, &b)
	}
	return blocks, rows.Err()
}

// UpdateTrip replaces the trip row and its whole block list.
// Returns store.ErrTripNotFound if the trip does not exist.
func (s *Store) UpdateTrip(ctx context.Context, doc *domain.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	info := doc.Info
	res, err := tx.ExecContext(ctx, `
		UPDATE trips SET
			owner_id = ?, title = ?, city = ?, day_count = ?, intent = ?, status = ?,
			total_cost_minor = ?, tips = ?, cover_ref = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		info.OwnerID,
		info.Title,
		info.City,
		info.DayCount,
		string(info.Intent),
		info.Status,
		info.TotalCostMinor,
		nullString(info.Tips),
		nullString(info.CoverRef),
		formatTime(info.CreatedAt),
		formatTime(info.UpdatedAt),
		info.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTripNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_blocks WHERE trip_id = ?`, info.ID); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}
	if err := insertBlocks(ctx, tx, info.ID, doc.Blocks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	store.IndexAsync(s.searchIndexer, doc, s.warn)
	return nil
}

// DeleteTrip removes a trip; its blocks are removed by cascade.
// Returns store.ErrTripNotFound if the trip does not exist.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTripNotFound
	}

	store.DeleteAsync(s.searchIndexer, id, s.warn)
	return nil
}

// ListTripsByOwner returns summaries of an owner's trips, most recently
// updated first. Block content is not loaded.
func (s *Store) ListTripsByOwner(ctx context.Context, ownerID string) ([]domain.TripSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tripColumns+`,
			(SELECT COUNT(*) FROM trip_blocks b WHERE b.trip_id = trips.id),
			(SELECT COUNT(*) FROM trip_blocks b WHERE b.trip_id = trips.id AND b.type = ?)
		FROM trips WHERE owner_id = ?`,
		string(domain.BlockPOI), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TripSummary{}
	for rows.Next() {
		var blockCount, poiCount int
		info, err := scanTrip(rows, &blockCount, &poiCount)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TripSummary{TripInfo: *info, BlockCount: blockCount, POICount: poiCount})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	store.SortSummaries(out)
	return out, nil
}

// ListAllTrips returns every trip with its blocks. Used to rebuild the search index.
func (s *Store) ListAllTrips(ctx context.Context) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tripColumns+` FROM trips ORDER BY id`)
	if err != nil {
		return nil, err
	}

	var infos []*domain.TripInfo
	for rows.Next() {
		info, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		infos = append(infos, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docs := make([]*domain.Document, 0, len(infos))
	for _, info := range infos {
		blocks, err := s.loadBlocks(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("load blocks for %s: %w", info.ID, err)
		}
		docs = append(docs, &domain.Document{Info: *info, Blocks: blocks})
	}
	return docs, nil
}
