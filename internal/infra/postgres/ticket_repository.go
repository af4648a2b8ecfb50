package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/ticket"
	"github.com/secboard/api/pkg/pagination"
)

// TicketRepository implements ticket.Repository using PostgreSQL.
type TicketRepository struct {
	db *DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db *DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `
	id, duplicate_key, kind, subject, status, severity, ticket_key,
	reporter, reporter_domain, assignee, category, description, resolution,
	reported_at, resolved_at, report_date, occurrence_count,
	first_seen_at, last_seen_at
`

// GetByKey retrieves a ticket by its duplicate key.
func (r *TicketRepository) GetByKey(ctx context.Context, key string) (*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE duplicate_key = $1`
	rec, err := scanTicket(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ticket with key %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return rec, nil
}

// Create inserts a new ticket.
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID(),
		t.DuplicateKey(),
		string(t.Kind()),
		t.Subject(),
		t.Status().String(),
		t.Severity().String(),
		nullString(t.TicketKey()),
		nullString(t.Reporter()),
		nullString(t.ReporterDomain()),
		nullString(t.Assignee()),
		nullString(t.Category()),
		nullStringPtr(t.Description()),
		nullStringPtr(t.Resolution()),
		nullTime(t.ReportedAt()),
		nullTime(t.ResolvedAt()),
		t.ReportDate(),
		t.OccurrenceCount(),
		t.FirstSeenAt(),
		t.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ticket with key %s", shared.ErrAlreadyExists, t.DuplicateKey())
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Update rewrites the business fields of an existing ticket.
func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	query := `
		UPDATE tickets
		SET subject = $2, status = $3, severity = $4, reporter = $5,
		    reporter_domain = $6, assignee = $7, category = $8,
		    description = $9, resolution = $10, reported_at = $11,
		    resolved_at = $12, occurrence_count = $13, last_seen_at = $14
		WHERE duplicate_key = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		t.DuplicateKey(),
		t.Subject(),
		t.Status().String(),
		t.Severity().String(),
		nullString(t.Reporter()),
		nullString(t.ReporterDomain()),
		nullString(t.Assignee()),
		nullString(t.Category()),
		nullStringPtr(t.Description()),
		nullStringPtr(t.Resolution()),
		nullTime(t.ReportedAt()),
		nullTime(t.ResolvedAt()),
		t.OccurrenceCount(),
		t.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return requireAffected(res, "ticket", t.DuplicateKey())
}

// Refresh bumps the last-seen stamp and occurrence counter only.
func (r *TicketRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE duplicate_key = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh ticket: %w", err)
	}
	return requireAffected(res, "ticket", key)
}

// List retrieves tickets matching the filter, newest first.
func (r *TicketRepository) List(ctx context.Context, filter ticket.Filter, page pagination.Pagination) (pagination.Result[*ticket.Ticket], error) {
	var empty pagination.Result[*ticket.Ticket]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.Kind != "" {
		conds = append(conds, fmt.Sprintf("kind = $%d", arg))
		args = append(args, string(filter.Kind))
		arg++
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", arg))
		args = append(args, filter.Status.String())
		arg++
	}
	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", arg))
		args = append(args, filter.Category)
		arg++
	}
	if filter.Assignee != "" {
		conds = append(conds, fmt.Sprintf("assignee = $%d", arg))
		args = append(args, filter.Assignee)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count tickets: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM tickets WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		ticketColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var recs []*ticket.Ticket
	for rows.Next() {
		rec, err := scanTicket(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan ticket: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// DeleteOlderThan removes tickets not seen since the cutoff.
func (r *TicketRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old tickets: %w", err)
	}
	return res.RowsAffected()
}

func scanTicket(row rowScanner) (*ticket.Ticket, error) {
	var (
		id              shared.ID
		duplicateKey    string
		kind            string
		subject         string
		status          string
		severity        string
		ticketKey       sql.NullString
		reporter        sql.NullString
		reporterDomain  sql.NullString
		assignee        sql.NullString
		category        sql.NullString
		description     sql.NullString
		resolution      sql.NullString
		reportedAt      sql.NullTime
		resolvedAt      sql.NullTime
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &duplicateKey, &kind, &subject, &status, &severity, &ticketKey,
		&reporter, &reporterDomain, &assignee, &category, &description, &resolution,
		&reportedAt, &resolvedAt, &reportDate, &occurrenceCount,
		&firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return ticket.Reconstitute(
		id, duplicateKey,
		ticket.Kind(kind),
		subject,
		shared.RecordStatus(status),
		shared.Severity(severity),
		nullStringValue(ticketKey), nullStringValue(reporter), nullStringValue(reporterDomain),
		nullStringValue(assignee), nullStringValue(category),
		nullStringPtrValue(description), nullStringPtrValue(resolution),
		nullTimeValue(reportedAt), nullTimeValue(resolvedAt),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}
