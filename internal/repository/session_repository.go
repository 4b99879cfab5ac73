package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
)

const sessionSelect = `SELECT s.id, s.student_id, st.name AS student_name, s.billing_month, s.session_date, s.start_time, s.end_time,
       s.sessions, s.hours, s.price_per_hour, s.total_amount, s.paid, s.paid_at, s.completed, s.status, s.subject, s.notes,
       s.version, s.created_at, s.updated_at
FROM session_records s JOIN students st ON st.id = s.student_id`

// notCancelled is a SQL predicate over the status column excluding cancellations.
var notCancelled = func() string {
	quoted := make([]string, 0, 2)
	for _, status := range lifecycle.CancelledStatuses() {
		quoted = append(quoted, fmt.Sprintf("'%s'", status))
	}
	return fmt.Sprintf("status NOT IN (%s)", strings.Join(quoted, ", "))
}()

// SessionRepository persists session records and their attachment links.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session together with its attachment links.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (err error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.UpdatedAt = session.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO session_records
	(id, student_id, billing_month, session_date, start_time, end_time, sessions, hours, price_per_hour, total_amount,
	 paid, paid_at, completed, status, subject, notes, version, created_at, updated_at)
	VALUES (:id, :student_id, :billing_month, :session_date, :start_time, :end_time, :sessions, :hours, :price_per_hour, :total_amount,
	 :paid, :paid_at, :completed, :status, :subject, :notes, :version, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if err = insertAttachments(ctx, tx, session.ID, session.Attachments); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session insert: %w", err)
	}
	return nil
}

// GetByID fetches a session without attachments.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, sessionSelect+" WHERE s.id = $1", id); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetVersion returns the stored version of a session.
func (r *SessionRepository) GetVersion(ctx context.Context, id string) (int, error) {
	var version int
	if err := r.db.GetContext(ctx, &version, `SELECT version FROM session_records WHERE id = $1`, id); err != nil {
		return 0, err
	}
	return version, nil
}

// ListAttachments returns the attachment links of a session.
func (r *SessionRepository) ListAttachments(ctx context.Context, sessionID string) ([]models.Attachment, error) {
	const query = `SELECT session_id, resource_type, resource_id FROM session_attachments
	WHERE session_id = $1 ORDER BY resource_type, resource_id`
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attachments: %w", err)
	}
	return attachments, nil
}

// List returns sessions matching the filter, newest first, with the total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("s.student_id = $%d", len(args)))
	}
	if filter.Month != "" {
		args = append(args, filter.Month)
		conditions = append(conditions, fmt.Sprintf("s.billing_month = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY s.session_date DESC, s.created_at DESC LIMIT %d OFFSET %d", sessionSelect, where, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM session_records s"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListUnpaid returns every unpaid session, most recent session date first.
func (r *SessionRepository) ListUnpaid(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, sessionSelect+" WHERE s.paid = FALSE ORDER BY s.session_date DESC, s.created_at DESC"); err != nil {
		return nil, fmt.Errorf("list unpaid sessions: %w", err)
	}
	return sessions, nil
}

// DistinctMonths lists every billing month that has sessions, latest first.
func (r *SessionRepository) DistinctMonths(ctx context.Context) ([]string, error) {
	var months []string
	if err := r.db.SelectContext(ctx, &months, `SELECT DISTINCT billing_month FROM session_records ORDER BY billing_month DESC`); err != nil {
		return nil, fmt.Errorf("list billing months: %w", err)
	}
	return months, nil
}

// FindByIDs returns the sessions whose ids are in ids. Unknown ids are skipped.
func (r *SessionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, sessionSelect+" WHERE s.id = ANY($1) ORDER BY s.session_date, s.start_time, s.id", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find sessions by ids: %w", err)
	}
	return sessions, nil
}

// FindByMonthAndStudents returns a month's sessions restricted to studentIDs.
func (r *SessionRepository) FindByMonthAndStudents(ctx context.Context, month string, studentIDs []string) ([]models.Session, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var sessions []models.Session
	query := sessionSelect + " WHERE s.billing_month = $1 AND s.student_id = ANY($2) ORDER BY s.session_date, s.start_time, s.id"
	if err := r.db.SelectContext(ctx, &sessions, query, month, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("find sessions by month and students: %w", err)
	}
	return sessions, nil
}

// FindUnpaidByStudentAndMonth returns the unpaid sessions of one student in one month.
func (r *SessionRepository) FindUnpaidByStudentAndMonth(ctx context.Context, studentID, month string) ([]models.Session, error) {
	var sessions []models.Session
	query := sessionSelect + " WHERE s.student_id = $1 AND s.billing_month = $2 AND s.paid = FALSE ORDER BY s.session_date, s.start_time, s.id"
	if err := r.db.SelectContext(ctx, &sessions, query, studentID, month); err != nil {
		return nil, fmt.Errorf("find unpaid sessions: %w", err)
	}
	return sessions, nil
}

// FindByMonth returns every session of a month regardless of student state.
func (r *SessionRepository) FindByMonth(ctx context.Context, month string) ([]models.Session, error) {
	var sessions []models.Session
	query := sessionSelect + " WHERE s.billing_month = $1 ORDER BY s.session_date, s.start_time, st.name"
	if err := r.db.SelectContext(ctx, &sessions, query, month); err != nil {
		return nil, fmt.Errorf("find sessions by month: %w", err)
	}
	return sessions, nil
}

// UpdateSessionParams describes a compare-and-swap write of a session.
type UpdateSessionParams struct {
	Session            *models.Session
	ExpectedVersion    int
	ReplaceAttachments bool
}

// Update writes every mutable column only if the stored version still equals
// ExpectedVersion, bumping the version in the same statement. It returns
// sql.ErrNoRows when no row matched (stale version or deleted row).
func (r *SessionRepository) Update(ctx context.Context, params UpdateSessionParams) (err error) {
	s := params.Session
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE session_records SET billing_month = $1, session_date = $2, start_time = $3, end_time = $4,
	sessions = $5, hours = $6, price_per_hour = $7, total_amount = $8, paid = $9, paid_at = $10, completed = $11,
	status = $12, subject = $13, notes = $14, version = version + 1, updated_at = $15
	WHERE id = $16 AND version = $17`
	result, err := tx.ExecContext(ctx, query,
		s.BillingMonth, s.SessionDate, s.StartTime, s.EndTime,
		s.Sessions, s.Hours, s.PricePerHour, s.TotalAmount, s.Paid, s.PaidAt, s.Completed,
		s.Status, s.Subject, s.Notes, now,
		s.ID, params.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check session update rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if params.ReplaceAttachments {
		if _, err = tx.ExecContext(ctx, `DELETE FROM session_attachments WHERE session_id = $1`, s.ID); err != nil {
			return fmt.Errorf("clear session attachments: %w", err)
		}
		if err = insertAttachments(ctx, tx, s.ID, s.Attachments); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session update: %w", err)
	}
	s.Version = params.ExpectedVersion + 1
	s.UpdatedAt = now
	return nil
}

// Delete removes one session. It returns sql.ErrNoRows when the id is unknown.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check session delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByMonth removes every session of a billing month and reports how many went.
func (r *SessionRepository) DeleteByMonth(ctx context.Context, month string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session_records WHERE billing_month = $1`, month)
	if err != nil {
		return 0, fmt.Errorf("delete sessions by month: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check month delete rows: %w", err)
	}
	return rows, nil
}

// MonthlyStats aggregates every billing month, latest first.
func (r *SessionRepository) MonthlyStats(ctx context.Context) ([]models.MonthlyStats, error) {
	query := fmt.Sprintf(`SELECT billing_month,
       COALESCE(SUM(CASE WHEN %[1]s THEN sessions ELSE 0 END), 0) AS total_sessions,
       COALESCE(SUM(CASE WHEN %[1]s THEN hours ELSE 0 END), 0) AS total_hours,
       COALESCE(SUM(CASE WHEN paid AND %[1]s THEN total_amount ELSE 0 END), 0) AS total_paid,
       COALESCE(SUM(CASE WHEN NOT paid AND %[1]s THEN total_amount ELSE 0 END), 0) AS total_unpaid
FROM session_records
GROUP BY billing_month
ORDER BY billing_month DESC`, notCancelled)
	var stats []models.MonthlyStats
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("aggregate monthly stats: %w", err)
	}
	return stats, nil
}

// Summary aggregates paid and unpaid totals overall and for currentMonth.
func (r *SessionRepository) Summary(ctx context.Context, currentMonth string) (*models.FinanceSummary, error) {
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT student_id) AS total_students,
       COALESCE(SUM(CASE WHEN paid AND %[1]s THEN total_amount ELSE 0 END), 0) AS total_paid,
       COALESCE(SUM(CASE WHEN NOT paid AND %[1]s THEN total_amount ELSE 0 END), 0) AS total_unpaid,
       COALESCE(SUM(CASE WHEN billing_month = $1 AND %[1]s THEN total_amount ELSE 0 END), 0) AS current_month_total,
       COALESCE(SUM(CASE WHEN billing_month = $1 AND NOT paid AND %[1]s THEN total_amount ELSE 0 END), 0) AS current_month_unpaid
FROM session_records`, notCancelled)
	var summary models.FinanceSummary
	if err := r.db.GetContext(ctx, &summary, query, currentMonth); err != nil {
		return nil, fmt.Errorf("aggregate finance summary: %w", err)
	}
	summary.CurrentMonth = currentMonth
	return &summary, nil
}

func insertAttachments(ctx context.Context, tx *sqlx.Tx, sessionID string, attachments []models.Attachment) error {
	const query = `INSERT INTO session_attachments (session_id, resource_type, resource_id) VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING`
	for _, a := range attachments {
		if _, err := tx.ExecContext(ctx, query, sessionID, a.ResourceType, a.ResourceID); err != nil {
			return fmt.Errorf("insert session attachment: %w", err)
		}
	}
	return nil
}
