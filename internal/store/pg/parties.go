package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"farmaledger.org/internal/ids"
	"farmaledger.org/internal/journal"
)

const partyColumns = `id, name, kind, coalesce(tax_id,''), is_pkp, coalesce(currency,''), created_at`

const partySelect = `select ` + partyColumns + ` from parties`

func scanParty(row interface{ Scan(...any) error }) (journal.Party, error) {
	var p journal.Party
	var kind string
	err := row.Scan(&p.ID, &p.Name, &kind, &p.TaxID, &p.IsPKP, &p.Currency, &p.CreatedAt)
	if err != nil {
		return journal.Party{}, err
	}
	p.Kind = journal.PartyKind(kind)
	return p, nil
}

func (s *Store) CreateParty(ctx context.Context, p journal.Party) (journal.Party, error) {
	if strings.TrimSpace(p.Name) == "" {
		return journal.Party{}, &journal.ValidationError{Line: -1, Reason: "party name is required"}
	}
	if p.Kind != journal.PartyCustomer && p.Kind != journal.PartySupplier {
		return journal.Party{}, &journal.ValidationError{Line: -1, Reason: "party kind must be customer or supplier"}
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into parties(id, name, kind, tax_id, is_pkp, currency)
		values ($1,$2,$3,nullif($4,''),$5,nullif($6,''))
		returning `+partyColumns,
		p.ID, p.Name, string(p.Kind), p.TaxID, p.IsPKP, p.Currency)
	return scanParty(row)
}

func (s *Store) Party(ctx context.Context, id string) (journal.Party, error) {
	p, err := scanParty(s.db.QueryRowContext(ctx, partySelect+` where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Party{}, journal.ErrPartyNotFound
	}
	return p, err
}

func (s *Store) Parties(ctx context.Context) ([]journal.Party, error) {
	rows, err := s.db.QueryContext(ctx, partySelect+` order by name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []journal.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
