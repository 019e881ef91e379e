package pg

import (
	"context"
	"database/sql"
	"errors"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/ids"
)

const accountColumns = `id, code, name, coalesce(name_local,''), account_type, coalesce(account_group,''),
	coalesce(parent_id,''), is_header, normal_balance, is_active, created_at`

const accountSelect = `select ` + accountColumns + ` from accounts`

func scanAccount(row interface{ Scan(...any) error }) (coa.Account, error) {
	var a coa.Account
	var typ, side string
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.NameLocal, &typ, &a.Group,
		&a.ParentID, &a.IsHeader, &side, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return coa.Account{}, err
	}
	a.Type = coa.Type(typ)
	a.NormalBalance = coa.Side(side)
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, spec coa.Spec) (coa.Account, error) {
	if err := coa.ValidateSpec(spec); err != nil {
		return coa.Account{}, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return coa.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var taken bool
	if err := tx.QueryRowContext(ctx, `
		select exists(select 1 from accounts where code=$1)
	`, spec.Code).Scan(&taken); err != nil {
		return coa.Account{}, err
	}
	if taken {
		return coa.Account{}, &coa.ValidationError{Field: "code", Reason: "code already in use: " + spec.Code}
	}

	if spec.ParentID != "" {
		var isHeader bool
		err := tx.QueryRowContext(ctx, `
			select is_header from accounts where id=$1
		`, spec.ParentID).Scan(&isHeader)
		if errors.Is(err, sql.ErrNoRows) {
			return coa.Account{}, &coa.ValidationError{Field: "parent_id", Reason: "parent account does not exist"}
		}
		if err != nil {
			return coa.Account{}, err
		}
		if !isHeader {
			return coa.Account{}, &coa.ValidationError{Field: "parent_id", Reason: "parent must be a header account"}
		}
	}

	id := ids.New()
	row := tx.QueryRowContext(ctx, `
		insert into accounts(id, code, name, name_local, account_type, account_group,
		                     parent_id, is_header, normal_balance, is_active)
		values ($1,$2,$3,nullif($4,''),$5,nullif($6,''),nullif($7,''),$8,$9,true)
		returning `+accountColumns, id, spec.Code, spec.Name, spec.NameLocal,
		string(spec.Type), spec.Group, spec.ParentID, spec.IsHeader, string(spec.NormalBalance))
	acc, err := scanAccount(row)
	if err != nil {
		return coa.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return coa.Account{}, err
	}
	return acc, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch coa.Patch) (coa.Account, error) {
	if patch.Name != nil && *patch.Name == "" {
		return coa.Account{}, &coa.ValidationError{Field: "name", Reason: "name is required"}
	}
	row := s.db.QueryRowContext(ctx, `
		update accounts set
			name       = coalesce($2, name),
			name_local = coalesce($3, name_local),
			account_group = coalesce($4, account_group)
		where id=$1
		returning `+accountColumns, id, patch.Name, patch.NameLocal, patch.Group)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return coa.Account{}, coa.ErrNotFound
	}
	return acc, err
}

func (s *Store) Deactivate(ctx context.Context, id string) (coa.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		update accounts set is_active=false where id=$1
		returning `+accountColumns, id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return coa.Account{}, coa.ErrNotFound
	}
	return acc, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var code string
	err = tx.QueryRowContext(ctx, `select code from accounts where id=$1`, id).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return coa.ErrNotFound
	}
	if err != nil {
		return err
	}

	var posted bool
	if err := tx.QueryRowContext(ctx, `
		select exists(select 1 from journal_lines where account_id=$1)
	`, id).Scan(&posted); err != nil {
		return err
	}
	if posted {
		return &coa.ReferentialIntegrityError{AccountID: id, Code: code}
	}

	if _, err := tx.ExecContext(ctx, `delete from accounts where id=$1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, id string) (coa.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, accountSelect+` where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return coa.Account{}, coa.ErrNotFound
	}
	return acc, err
}

func (s *Store) Resolve(ctx context.Context, code string) (coa.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, accountSelect+` where code=$1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return coa.Account{}, coa.ErrNotFound
	}
	return acc, err
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]coa.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []coa.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, acc)
	}
	return res, rows.Err()
}

func (s *Store) Children(ctx context.Context, parentID string) ([]coa.Account, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from accounts where id=$1)
	`, parentID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, coa.ErrNotFound
	}
	return s.queryAccounts(ctx, accountSelect+` where parent_id=$1 order by code`, parentID)
}

func (s *Store) Accounts(ctx context.Context) ([]coa.Account, error) {
	return s.queryAccounts(ctx, accountSelect + ` order by code`)
}
