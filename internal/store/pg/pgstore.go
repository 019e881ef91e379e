// Package pg is the Postgres-backed store for the ledger core. All write
// paths run inside a single transaction so readers never observe a
// partially-written journal entry.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/tax"
)

type Store struct {
	db *sql.DB
}

var (
	_ journal.Store         = (*Store)(nil)
	_ journal.PartyRegistry = (*Store)(nil)
	_ coa.Registry          = (*Store)(nil)
	_ landedcost.Store      = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// nullTime converts a zero time into a SQL NULL so open-ended date ranges
// collapse to no-op conditions.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func (s *Store) SaveEntry(ctx context.Context, e journal.Entry, taxDoc *tax.Document) (journal.Entry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return journal.Entry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Idempotency: a retried post returns the originally recorded entry.
	if e.IdempotencyKey != "" {
		var existingID string
		err := tx.QueryRowContext(ctx, `
			select id from journal_entries where idempotency_key=$1
		`, e.IdempotencyKey).Scan(&existingID)
		if err == nil {
			return s.entryInTx(ctx, tx, existingID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return journal.Entry{}, err
		}
	}

	var seq uint64
	var created time.Time
	if err := tx.QueryRowContext(ctx, `
		insert into journal_entries(id, entry_date, source_type, source_id, idempotency_key)
		values ($1,$2,$3,$4,nullif($5,''))
		returning sequence, created_at
	`, e.ID, e.Date, string(e.SourceType), e.SourceID, e.IdempotencyKey).Scan(&seq, &created); err != nil {
		return journal.Entry{}, err
	}

	for i, line := range e.Lines {
		if _, err := tx.ExecContext(ctx, `
			insert into journal_lines(entry_id, line_no, account_id, party_id, debit, credit, memo)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, e.ID, i, line.AccountID, nullString(line.PartyID), line.Debit, line.Credit, nullString(line.Memo)); err != nil {
			return journal.Entry{}, err
		}
	}

	if taxDoc != nil {
		if _, err := tx.ExecContext(ctx, `
			insert into tax_documents(entry_id, kind, doc_date, base)
			values ($1,$2,$3,$4)
		`, e.ID, string(taxDoc.Kind), taxDoc.Date, taxDoc.Base); err != nil {
			return journal.Entry{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return journal.Entry{}, err
	}

	e.Sequence = seq
	e.CreatedAt = created
	return e, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) entryInTx(ctx context.Context, q rowQuerier, id string) (journal.Entry, error) {
	var e journal.Entry
	var srcType string
	var idem sql.NullString
	err := q.QueryRowContext(ctx, `
		select id, entry_date, source_type, source_id, coalesce(idempotency_key,''), sequence, created_at
		from journal_entries where id=$1
	`, id).Scan(&e.ID, &e.Date, &srcType, &e.SourceID, &idem, &e.Sequence, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, journal.ErrNotFound
	}
	if err != nil {
		return journal.Entry{}, err
	}
	e.SourceType = journal.SourceType(srcType)
	if idem.Valid {
		e.IdempotencyKey = idem.String
	}

	rows, err := q.QueryContext(ctx, `
		select account_id, coalesce(party_id,''), debit, credit, coalesce(memo,'')
		from journal_lines where entry_id=$1 order by line_no
	`, id)
	if err != nil {
		return journal.Entry{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var line journal.Line
		if err := rows.Scan(&line.AccountID, &line.PartyID, &line.Debit, &line.Credit, &line.Memo); err != nil {
			return journal.Entry{}, err
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

func (s *Store) Entry(ctx context.Context, id string) (journal.Entry, error) {
	return s.entryInTx(ctx, s.db, id)
}

func (s *Store) ListEntries(ctx context.Context, limit int, afterSeq uint64) ([]journal.Entry, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id from journal_entries
		where sequence > $1
		order by sequence asc
		limit $2
	`, afterSeq, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	res := []journal.Entry{}
	var last uint64
	for _, id := range ids {
		e, err := s.entryInTx(ctx, s.db, id)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, e)
		last = e.Sequence
	}
	return res, last, nil
}

const ledgerLineSelect = `
	select e.id, e.sequence, e.entry_date, e.source_type, e.source_id,
	       l.account_id, coalesce(l.party_id,''), l.debit, l.credit, coalesce(l.memo,'')
	from journal_lines l
	join journal_entries e on e.id = l.entry_id
`

func (s *Store) scanLedgerLines(rows *sql.Rows) ([]journal.LedgerLine, error) {
	defer rows.Close()
	res := []journal.LedgerLine{}
	for rows.Next() {
		var ll journal.LedgerLine
		var srcType string
		if err := rows.Scan(&ll.EntryID, &ll.Sequence, &ll.Date, &srcType, &ll.SourceID,
			&ll.AccountID, &ll.PartyID, &ll.Debit, &ll.Credit, &ll.Memo); err != nil {
			return nil, err
		}
		ll.SourceType = journal.SourceType(srcType)
		res = append(res, ll)
	}
	return res, rows.Err()
}

func (s *Store) LinesByAccount(ctx context.Context, accountID string, from, to time.Time) ([]journal.LedgerLine, error) {
	rows, err := s.db.QueryContext(ctx, ledgerLineSelect+`
		where l.account_id = $1
		  and ($2::timestamptz is null or e.entry_date >= $2)
		  and ($3::timestamptz is null or e.entry_date <= $3)
		order by e.entry_date, e.sequence, l.line_no
	`, accountID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	return s.scanLedgerLines(rows)
}

func (s *Store) LinesByParty(ctx context.Context, partyID string, from, to time.Time) ([]journal.LedgerLine, error) {
	rows, err := s.db.QueryContext(ctx, ledgerLineSelect+`
		where l.party_id = $1
		  and ($2::timestamptz is null or e.entry_date >= $2)
		  and ($3::timestamptz is null or e.entry_date <= $3)
		order by e.entry_date, e.sequence, l.line_no
	`, partyID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	return s.scanLedgerLines(rows)
}

func (s *Store) LinesInRange(ctx context.Context, from, to time.Time) ([]journal.LedgerLine, error) {
	rows, err := s.db.QueryContext(ctx, ledgerLineSelect+`
		where ($1::timestamptz is null or e.entry_date >= $1)
		  and ($2::timestamptz is null or e.entry_date <= $2)
		order by e.entry_date, e.sequence, l.line_no
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	return s.scanLedgerLines(rows)
}

func (s *Store) TaxDocuments(ctx context.Context, year int, month time.Month) ([]tax.Document, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := start.AddDate(0, 1, 0)
	rows, err := s.db.QueryContext(ctx, `
		select kind, doc_date, base from tax_documents
		where doc_date >= $1 and doc_date < $2
		order by doc_date, id
	`, start, next)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []tax.Document{}
	for rows.Next() {
		var d tax.Document
		var kind string
		if err := rows.Scan(&kind, &d.Date, &d.Base); err != nil {
			return nil, err
		}
		d.Kind = tax.Kind(kind)
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *Store) HasPostings(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from journal_lines where account_id=$1)
	`, accountID).Scan(&exists)
	return exists, err
}
