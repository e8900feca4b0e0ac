package ticket

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the
// column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id            TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			subject       TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'open',
			timestamp     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ticket_messages (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			id        TEXT NOT NULL UNIQUE,
			ticket_id TEXT NOT NULL REFERENCES tickets(id),
			sender    TEXT NOT NULL,
			body      TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_ticket ON ticket_messages(ticket_id, timestamp, seq);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_timestamp ON tickets(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(t *protocol.Ticket) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("ticket store: save: %w: %v", ErrInvalid, err)
	}
	_, err := s.db.Exec(`
		INSERT INTO tickets (id, customer_name, subject, status, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name=excluded.customer_name, subject=excluded.subject,
			status=excluded.status, timestamp=excluded.timestamp
	`, string(t.ID), t.CustomerName, t.Subject, string(t.Status), formatTime(t.Timestamp))
	if err != nil {
		return fmt.Errorf("ticket store: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id protocol.ID) (*protocol.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, customer_name, subject, status, timestamp FROM tickets WHERE id = ?`, string(id))

	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}

	msgs, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	t.Messages = msgs
	return t, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*protocol.Ticket, error) {
	where, args := filter.where()
	query := "SELECT id, customer_name, subject, status, timestamp FROM tickets" + where +
		" ORDER BY timestamp DESC, rowid"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	where, args := filter.where()
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM tickets"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) AppendMessage(ticketID protocol.ID, msg protocol.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("ticket store: append message: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(msg.Timestamp)
	result, err := tx.Exec(`UPDATE tickets SET timestamp = MAX(timestamp, ?) WHERE id = ?`, ts, string(ticketID))
	if err != nil {
		return fmt.Errorf("ticket store: append message: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	if err := insertMessage(tx, ticketID, msg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ticket store: append message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateStatus(ticketID protocol.ID, status protocol.TicketStatus, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("ticket store: update status: %w: status %q", ErrInvalid, status)
	}
	result, err := s.db.Exec(`UPDATE tickets SET status = ?, timestamp = ? WHERE id = ?`,
		string(status), formatTime(at), string(ticketID))
	if err != nil {
		return fmt.Errorf("ticket store: update status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Seed(tickets []protocol.Ticket) (int, error) {
	n, err := s.Count(Filter{})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("ticket store: seed: %w", err)
	}
	defer tx.Rollback()

	for i := range tickets {
		t := &tickets[i]
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("ticket store: seed: %w: %v", ErrInvalid, err)
		}
		_, err := tx.Exec(`INSERT INTO tickets (id, customer_name, subject, status, timestamp) VALUES (?, ?, ?, ?, ?)`,
			string(t.ID), t.CustomerName, t.Subject, string(t.Status), formatTime(t.Timestamp))
		if err != nil {
			return 0, fmt.Errorf("ticket store: seed: %w", err)
		}
		for _, m := range t.Messages {
			if err := insertMessage(tx, t.ID, m); err != nil {
				return 0, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ticket store: seed: %w", err)
	}
	return len(tickets), nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

// likeEscaper makes %, _ and the escape character itself match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		clauses = append(clauses, `(customer_name LIKE ? ESCAPE '\' OR subject LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(q) + "%"
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func insertMessage(tx *sql.Tx, ticketID protocol.ID, m protocol.Message) error {
	_, err := tx.Exec(`INSERT INTO ticket_messages (id, ticket_id, sender, body, timestamp) VALUES (?, ?, ?, ?, ?)`,
		string(m.ID), string(ticketID), string(m.Sender), m.Body, formatTime(m.Timestamp))
	if err != nil {
		return fmt.Errorf("ticket store: insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadMessages(ticketID protocol.ID) ([]protocol.Message, error) {
	rows, err := s.db.Query(`SELECT id, sender, body, timestamp FROM ticket_messages WHERE ticket_id = ? ORDER BY timestamp, seq`, string(ticketID))
	if err != nil {
		return nil, fmt.Errorf("ticket store: load messages: %w", err)
	}
	defer rows.Close()

	msgs := []protocol.Message{}
	for rows.Next() {
		var m protocol.Message
		var id, sender, ts string
		if err := rows.Scan(&id, &sender, &m.Body, &ts); err != nil {
			return nil, fmt.Errorf("ticket store: scan message: %w", err)
		}
		m.ID = protocol.ID(id)
		m.Sender = protocol.Sender(sender)
		m.Timestamp = parseTime(ts)
		m.TicketID = ticketID
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(s scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var id, status, ts string
	if err := s.Scan(&id, &t.CustomerName, &t.Subject, &status, &ts); err != nil {
		return nil, err
	}
	t.ID = protocol.ID(id)
	t.Status = protocol.TicketStatus(status)
	t.Timestamp = parseTime(ts)
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
