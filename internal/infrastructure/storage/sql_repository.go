package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ListingFlow/internal/domain"
	"ListingFlow/internal/ports"
)

// SQLRepository persists items, history and schedules in Postgres or SQLite.
type SQLRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.ItemRepository     = (*SQLRepository)(nil)
	_ ports.HistoryRepository  = (*SQLRepository)(nil)
	_ ports.ScheduleRepository = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB with the driver's placeholder format.
func NewSQLRepository(db *sql.DB, format sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Close closes the underlying database connection.
func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveItem upserts the workflow-owned state of one item.
func (r *SQLRepository) SaveItem(ctx context.Context, snap domain.ItemSnapshot) error {
	stepsJSON, err := json.Marshal(snap.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	if snap.Steps == nil {
		stepsJSON = []byte("[]")
	}

	item := snap.Item
	query, args, err := r.sb.Insert("content_items").
		Columns("id", "kind", "title", "summary", "url", "status", "featured",
			"verification_score", "steps_json", "created_at", "updated_at").
		Values(item.ID, string(item.Kind), item.Title, item.Summary, item.URL, string(item.Status), item.Featured,
			item.VerificationScore, string(stepsJSON), toNanos(item.CreatedAt), toNanos(item.UpdatedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE
              SET kind = EXCLUDED.kind,
                  title = EXCLUDED.title,
                  summary = EXCLUDED.summary,
                  url = EXCLUDED.url,
                  status = EXCLUDED.status,
                  featured = EXCLUDED.featured,
                  verification_score = EXCLUDED.verification_score,
                  steps_json = EXCLUDED.steps_json,
                  updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// LoadItems returns every stored item ordered by id.
func (r *SQLRepository) LoadItems(ctx context.Context) ([]domain.ItemSnapshot, error) {
	query, args, err := r.sb.Select("id", "kind", "title", "summary", "url", "status", "featured",
		"verification_score", "steps_json", "created_at", "updated_at").
		From("content_items").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	var out []domain.ItemSnapshot
	for rows.Next() {
		var (
			snap                 domain.ItemSnapshot
			kind, status, steps  string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&snap.Item.ID, &kind, &snap.Item.Title, &snap.Item.Summary, &snap.Item.URL,
			&status, &snap.Item.Featured, &snap.Item.VerificationScore, &steps, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		var ok bool
		if snap.Item.Kind, ok = domain.ParseKind(kind); !ok {
			_ = rows.Close()
			return nil, fmt.Errorf("item %s: unknown kind %q", snap.Item.ID, kind)
		}
		if snap.Item.Status, ok = domain.ParseStatus(status); !ok {
			_ = rows.Close()
			return nil, fmt.Errorf("item %s: unknown status %q", snap.Item.ID, status)
		}
		snap.Item.CreatedAt = fromNanos(createdAt)
		snap.Item.UpdatedAt = fromNanos(updatedAt)
		if err := json.Unmarshal([]byte(steps), &snap.Steps); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode steps of %s: %w", snap.Item.ID, err)
		}
		if len(snap.Steps) == 0 {
			snap.Steps = nil
		}
		out = append(out, snap)
	}

	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendHistory inserts one audit entry.
func (r *SQLRepository) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	var snapshot any
	if entry.ChecklistSnapshot != nil {
		raw, err := json.Marshal(entry.ChecklistSnapshot)
		if err != nil {
			return fmt.Errorf("marshal checklist snapshot: %w", err)
		}
		snapshot = string(raw)
	}

	query, args, err := r.sb.Insert("history_entries").
		Columns("id", "content_id", "seq", "actor_id", "action", "ts",
			"from_status", "to_status", "comment", "checklist_json").
		Values(entry.ID, entry.ContentID, entry.Seq, entry.ActorID, entry.Action, toNanos(entry.Timestamp),
			string(entry.FromStatus), string(entry.ToStatus), entry.Comment, snapshot).
		ToSql()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// LoadHistory returns the entries of one item in sequence order.
func (r *SQLRepository) LoadHistory(ctx context.Context, contentID string) ([]domain.HistoryEntry, error) {
	query, args, err := r.sb.Select("id", "content_id", "seq", "actor_id", "action", "ts",
		"from_status", "to_status", "comment", "checklist_json").
		From("history_entries").
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	var out []domain.HistoryEntry
	for rows.Next() {
		var (
			entry      domain.HistoryEntry
			ts         int64
			from, to   string
			checklists sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ContentID, &entry.Seq, &entry.ActorID, &entry.Action, &ts,
			&from, &to, &entry.Comment, &checklists); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Timestamp = fromNanos(ts)
		entry.FromStatus = domain.Status(from)
		entry.ToStatus = domain.Status(to)
		if checklists.Valid && checklists.String != "" {
			if err := json.Unmarshal([]byte(checklists.String), &entry.ChecklistSnapshot); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("decode checklist snapshot of %s: %w", entry.ID, err)
			}
		}
		out = append(out, entry)
	}

	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSchedule replaces a schedule and its triggers atomically.
func (r *SQLRepository) SaveSchedule(ctx context.Context, sched domain.PublicationSchedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Insert("publication_schedules").
		Columns("id", "content_id", "publish_at", "timezone", "auto_publish", "created_by", "created_at").
		Values(sched.ID, sched.ContentID, toNanos(sched.PublishAt), sched.Timezone, sched.AutoPublish,
			sched.CreatedBy, toNanos(sched.CreatedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE
              SET publish_at = EXCLUDED.publish_at,
                  timezone = EXCLUDED.timezone,
                  auto_publish = EXCLUDED.auto_publish`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}

	if err := r.deleteTriggers(ctx, tx, sched.ID); err != nil {
		return err
	}

	if len(sched.Channels) > 0 {
		insert := r.sb.Insert("schedule_triggers").
			Columns("schedule_id", "idx", "channel", "enabled", "offset_ns", "payload_json", "fired_at")
		for i, t := range sched.Channels {
			var payload any
			if t.Payload != nil {
				raw, err := json.Marshal(t.Payload)
				if err != nil {
					return fmt.Errorf("marshal payload: %w", err)
				}
				payload = string(raw)
			}
			var firedAt any
			if t.FiredAt != nil {
				firedAt = toNanos(*t.FiredAt)
			}
			insert = insert.Values(sched.ID, i, string(t.Channel), t.Enabled, int64(t.Offset), payload, firedAt)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build trigger insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert triggers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule: %w", err)
	}
	return nil
}

// MarkTriggerFired stamps one trigger as fired.
func (r *SQLRepository) MarkTriggerFired(ctx context.Context, scheduleID string, index int, at time.Time) error {
	query, args, err := r.sb.Update("schedule_triggers").
		Set("fired_at", toNanos(at)).
		Where(sq.Eq{"schedule_id": scheduleID, "idx": index}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build trigger update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark trigger fired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: trigger %d of schedule %s", domain.ErrNotFound, index, scheduleID)
	}
	return nil
}

// DeleteSchedule removes a schedule and its triggers.
func (r *SQLRepository) DeleteSchedule(ctx context.Context, scheduleID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.deleteTriggers(ctx, tx, scheduleID); err != nil {
		return err
	}

	query, args, err := r.sb.Delete("publication_schedules").Where(sq.Eq{"id": scheduleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build schedule delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// LoadSchedules returns every stored schedule with its triggers in order.
func (r *SQLRepository) LoadSchedules(ctx context.Context) ([]domain.PublicationSchedule, error) {
	query, args, err := r.sb.Select("id", "content_id", "publish_at", "timezone", "auto_publish", "created_by", "created_at").
		From("publication_schedules").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}

	var out []domain.PublicationSchedule
	index := map[string]int{}
	for rows.Next() {
		var (
			sched                domain.PublicationSchedule
			publishAt, createdAt int64
		)
		if err := rows.Scan(&sched.ID, &sched.ContentID, &publishAt, &sched.Timezone, &sched.AutoPublish,
			&sched.CreatedBy, &createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sched.PublishAt = fromNanos(publishAt)
		sched.CreatedAt = fromNanos(createdAt)
		index[sched.ID] = len(out)
		out = append(out, sched)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return out, nil
	}

	query, args, err = r.sb.Select("schedule_id", "channel", "enabled", "offset_ns", "payload_json", "fired_at").
		From("schedule_triggers").
		OrderBy("schedule_id", "idx").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build trigger select: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	for rows.Next() {
		var (
			scheduleID, channel string
			trigger             domain.ChannelTrigger
			offset              int64
			payload             sql.NullString
			firedAt             sql.NullInt64
		)
		if err := rows.Scan(&scheduleID, &channel, &trigger.Enabled, &offset, &payload, &firedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		i, ok := index[scheduleID]
		if !ok {
			continue
		}
		trigger.Channel = domain.Channel(channel)
		trigger.Offset = time.Duration(offset)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &trigger.Payload); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("decode payload of %s: %w", scheduleID, err)
			}
		}
		if firedAt.Valid {
			at := fromNanos(firedAt.Int64)
			trigger.FiredAt = &at
		}
		out[i].Channels = append(out[i].Channels, trigger)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SQLRepository) deleteTriggers(ctx context.Context, tx *sql.Tx, scheduleID string) error {
	query, args, err := r.sb.Delete("schedule_triggers").Where(sq.Eq{"schedule_id": scheduleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build trigger delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete triggers: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
