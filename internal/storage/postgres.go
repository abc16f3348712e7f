package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the calendar, the CRM and the call archive with one pool
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore opens a pool and verifies the connection
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if missing
func (s *PostgresStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			session_id TEXT PRIMARY KEY,
			caller_name TEXT NOT NULL DEFAULT '',
			caller_phone TEXT NOT NULL DEFAULT '',
			caller_email TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			call_status TEXT NOT NULL DEFAULT 'active',
			primary_intent TEXT NOT NULL DEFAULT '',
			conversation_history JSONB NOT NULL DEFAULT '[]'::jsonb,
			appointment_booked BOOLEAN NOT NULL DEFAULT FALSE,
			booking_reference TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_updated ON calls(updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ NOT NULL,
			duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			session_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_start ON appointments(start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_phone ON appointments(customer_phone);`,
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// BookSlot inserts an appointment unless it overlaps an active one
func (s *PostgresStore) BookSlot(ctx context.Context, appt pkg.Appointment) (pkg.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pkg.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serialize writers so the overlap check and the insert see the same rows
	if _, err := tx.Exec(ctx, `LOCK TABLE appointments IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return pkg.Appointment{}, err
	}

	var overlapping int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed')
		  AND start_time < $2
		  AND start_time + make_interval(mins => duration_minutes) > $1
	`, appt.Start, appt.End()).Scan(&overlapping)
	if err != nil {
		return pkg.Appointment{}, err
	}
	if overlapping > 0 {
		return pkg.Appointment{}, fmt.Errorf("%w: %s", pkg.ErrSlotUnavailable, appt.Start.Format(time.RFC3339))
	}

	appt.ID = "apt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	appt.Status = pkg.AppointmentScheduled
	appt.CreatedAt = s.now()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments(id, customer_name, customer_phone, customer_email, service, start_time, duration_minutes, status, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, appt.ID, appt.Customer.Name, appt.Customer.Phone, appt.Customer.Email, appt.Service,
		appt.Start, appt.DurationMinutes, appt.Status, appt.SessionID, appt.CreatedAt)
	if err != nil {
		return pkg.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return pkg.Appointment{}, err
	}
	return appt, nil
}

// FindActive returns the caller's most recently booked active appointment,
// matched by phone when known and by name otherwise
func (s *PostgresStore) FindActive(ctx context.Context, customer pkg.Customer) (pkg.Appointment, error) {
	column, value := "lower(customer_name)", strings.ToLower(strings.TrimSpace(customer.Name))
	if customer.Phone != "" {
		column, value = "customer_phone", customer.Phone
	}
	if value == "" {
		return pkg.Appointment{}, pkg.ErrAppointmentNotFound
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_name, customer_phone, customer_email, service, start_time, duration_minutes, status, session_id, created_at
		FROM appointments
		WHERE `+column+` = $1 AND status IN ('scheduled', 'confirmed')
		ORDER BY created_at DESC
		LIMIT 1
	`, value)

	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pkg.Appointment{}, pkg.ErrAppointmentNotFound
	}
	return appt, err
}

// Cancel marks an appointment cancelled
func (s *PostgresStore) Cancel(ctx context.Context, appointmentID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1 AND status IN ('scheduled', 'confirmed')
	`, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", pkg.ErrAppointmentNotFound, appointmentID)
	}
	return nil
}

// Appointments lists active appointments starting in [from, to)
func (s *PostgresStore) Appointments(ctx context.Context, from, to time.Time) ([]pkg.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_name, customer_phone, customer_email, service, start_time, duration_minutes, status, session_id, created_at
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2 AND status IN ('scheduled', 'confirmed')
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []pkg.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (pkg.Appointment, error) {
	var appt pkg.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.Customer.Name,
		&appt.Customer.Phone,
		&appt.Customer.Email,
		&appt.Service,
		&appt.Start,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.SessionID,
		&appt.CreatedAt,
	)
	return appt, err
}

// UpsertLead creates or refreshes the lead keyed by phone
func (s *PostgresStore) UpsertLead(ctx context.Context, lead pkg.Lead) (string, error) {
	if lead.Phone == "" {
		return "", fmt.Errorf("%w: lead phone is required", pkg.ErrMalformedInput)
	}

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO leads(id, name, phone, email, service, source, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (phone)
		DO UPDATE SET name = EXCLUDED.name,
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE leads.email END,
			service = EXCLUDED.service,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id
	`, "lead_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:12], lead.Name, lead.Phone, lead.Email,
		lead.Service, lead.Source, lead.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordCall upserts the call summary for a session
func (s *PostgresStore) RecordCall(ctx context.Context, record pkg.CallRecord) error {
	history, err := sonic.Marshal(record.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO calls(session_id, caller_name, caller_phone, caller_email, start_time, end_time, duration_seconds,
			call_status, primary_intent, conversation_history, appointment_booked, booking_reference, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13)
		ON CONFLICT (session_id)
		DO UPDATE SET caller_name = EXCLUDED.caller_name,
			caller_phone = EXCLUDED.caller_phone,
			caller_email = EXCLUDED.caller_email,
			end_time = EXCLUDED.end_time,
			duration_seconds = EXCLUDED.duration_seconds,
			call_status = EXCLUDED.call_status,
			primary_intent = EXCLUDED.primary_intent,
			conversation_history = EXCLUDED.conversation_history,
			appointment_booked = EXCLUDED.appointment_booked,
			booking_reference = EXCLUDED.booking_reference,
			updated_at = EXCLUDED.updated_at
	`, record.SessionID, record.CallerName, record.CallerPhone, record.CallerEmail, record.StartTime, record.EndTime,
		record.DurationSeconds, record.Status, string(record.PrimaryIntent), string(history),
		record.AppointmentBooked, record.BookingReference, record.UpdatedAt)
	return err
}

const callColumns = `session_id, caller_name, caller_phone, caller_email, start_time, end_time, duration_seconds,
	call_status, primary_intent, conversation_history, appointment_booked, booking_reference, updated_at`

// GetCall loads one call summary
func (s *PostgresStore) GetCall(ctx context.Context, sessionID string) (pkg.CallRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE session_id = $1`, sessionID)
	record, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pkg.CallRecord{}, fmt.Errorf("%w: %s", pkg.ErrCallNotFound, sessionID)
	}
	return record, err
}

// ListCalls returns the most recently updated calls first
func (s *PostgresStore) ListCalls(ctx context.Context, limit int) ([]pkg.CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT `+callColumns+` FROM calls ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []pkg.CallRecord{}
	for rows.Next() {
		record, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row) (pkg.CallRecord, error) {
	var record pkg.CallRecord
	var intent string
	var historyRaw []byte
	err := row.Scan(
		&record.SessionID,
		&record.CallerName,
		&record.CallerPhone,
		&record.CallerEmail,
		&record.StartTime,
		&record.EndTime,
		&record.DurationSeconds,
		&record.Status,
		&intent,
		&historyRaw,
		&record.AppointmentBooked,
		&record.BookingReference,
		&record.UpdatedAt,
	)
	if err != nil {
		return pkg.CallRecord{}, err
	}
	record.PrimaryIntent = pkg.Intent(intent)
	if err := sonic.Unmarshal(historyRaw, &record.History); err != nil {
		return pkg.CallRecord{}, fmt.Errorf("failed to parse history: %w", err)
	}
	return record, nil
}
