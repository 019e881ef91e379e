package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/ids"
	"farmaledger.org/internal/landedcost"
)

const batchColumns = `id, import_price_usd, currency, exchange_rate, duty_percent,
	freight_amount, freight_type, other_amount, other_type,
	quantity, sold_quantity, cost_locked, final_landed_cost, created_at`

const batchSelect = `select ` + batchColumns + ` from batches`

func scanBatch(row interface{ Scan(...any) error }) (landedcost.Batch, error) {
	var b landedcost.Batch
	var freightAmount, otherAmount decimal.Decimal
	var freightType, otherType string
	err := row.Scan(&b.ID, &b.ImportPrice, &b.Currency, &b.ExchangeRate, &b.DutyPercent,
		&freightAmount, &freightType, &otherAmount, &otherType,
		&b.Quantity, &b.SoldQuantity, &b.CostLocked, &b.FinalLandedCost, &b.CreatedAt)
	if err != nil {
		return landedcost.Batch{}, err
	}
	if b.Freight, err = landedcost.ParseCharge(freightType, freightAmount); err != nil {
		return landedcost.Batch{}, err
	}
	if b.Other, err = landedcost.ParseCharge(otherType, otherAmount); err != nil {
		return landedcost.Batch{}, err
	}
	return b, nil
}

func (s *Store) CreateBatch(ctx context.Context, b landedcost.Batch) (landedcost.Batch, error) {
	if b.ImportPrice.IsNegative() {
		return landedcost.Batch{}, errors.New("import price must be >= 0")
	}
	if b.Quantity < 0 {
		return landedcost.Batch{}, errors.New("quantity must be >= 0")
	}
	if b.ID == "" {
		b.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into batches(id, import_price_usd, currency, exchange_rate, duty_percent,
		                    freight_amount, freight_type, other_amount, other_type,
		                    quantity, sold_quantity)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		returning `+batchColumns,
		b.ID, b.ImportPrice, b.Currency, b.ExchangeRate, b.DutyPercent,
		b.Freight.Value(), string(b.Freight.Type()), b.Other.Value(), string(b.Other.Type()),
		b.Quantity, b.SoldQuantity)
	return scanBatch(row)
}

func (s *Store) Batch(ctx context.Context, id string) (landedcost.Batch, error) {
	b, err := scanBatch(s.db.QueryRowContext(ctx, batchSelect+` where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return landedcost.Batch{}, landedcost.ErrNotFound
	}
	return b, err
}

func (s *Store) Allocate(ctx context.Context, id string) (landedcost.Batch, landedcost.Breakdown, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return landedcost.Batch{}, landedcost.Breakdown{}, err
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBatch(tx.QueryRowContext(ctx, batchSelect+` where id=$1 for update`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return landedcost.Batch{}, landedcost.Breakdown{}, landedcost.ErrNotFound
	}
	if err != nil {
		return landedcost.Batch{}, landedcost.Breakdown{}, err
	}
	if b.CostLocked {
		return landedcost.Batch{}, landedcost.Breakdown{}, &landedcost.LockedCostError{BatchID: id}
	}

	bd, err := landedcost.Compute(b)
	if err != nil {
		return landedcost.Batch{}, landedcost.Breakdown{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update batches set final_landed_cost=$2 where id=$1
	`, id, bd.Total); err != nil {
		return landedcost.Batch{}, landedcost.Breakdown{}, err
	}
	if err := tx.Commit(); err != nil {
		return landedcost.Batch{}, landedcost.Breakdown{}, err
	}
	b.FinalLandedCost = bd.Total
	return b, bd, nil
}

// Lock freezes the allocated cost with a compare-and-set on cost_locked; a
// concurrent second lock lands on the already-locked row and is a no-op.
func (s *Store) Lock(ctx context.Context, id string) (landedcost.Batch, error) {
	res, err := s.db.ExecContext(ctx, `
		update batches set cost_locked=true where id=$1 and cost_locked=false
	`, id)
	if err != nil {
		return landedcost.Batch{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return landedcost.Batch{}, err
	} else if n == 0 {
		// Either already locked (fine) or missing; Batch distinguishes.
		return s.Batch(ctx, id)
	}
	return s.Batch(ctx, id)
}

func (s *Store) SetCharges(ctx context.Context, id string, dutyPercent decimal.Decimal, freight, other landedcost.Charge) (landedcost.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		update batches set duty_percent=$2, freight_amount=$3, freight_type=$4,
		                   other_amount=$5, other_type=$6
		where id=$1 and cost_locked=false
		returning `+batchColumns,
		id, dutyPercent, freight.Value(), string(freight.Type()), other.Value(), string(other.Type()))
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return landedcost.Batch{}, s.lockedOrMissing(ctx, id)
	}
	return b, err
}

func (s *Store) SetQuantity(ctx context.Context, id string, quantity int64) (landedcost.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		update batches set quantity=$2
		where id=$1 and sold_quantity <= $2
		returning `+batchColumns, id, quantity)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		cur, lookupErr := s.Batch(ctx, id)
		if lookupErr != nil {
			return landedcost.Batch{}, lookupErr
		}
		return landedcost.Batch{}, &landedcost.InsufficientStockError{
			BatchID: id, Requested: quantity, Sold: cur.SoldQuantity,
		}
	}
	return b, err
}

// lockedOrMissing explains why a guarded update matched no row.
func (s *Store) lockedOrMissing(ctx context.Context, id string) error {
	if _, err := s.Batch(ctx, id); err != nil {
		return err
	}
	return &landedcost.LockedCostError{BatchID: id}
}
