package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/backtest-service/internal/entity"
)

type BacktestResultRepository struct {
	db *sqlx.DB
}

func NewBacktestResultRepository(db *sqlx.DB) *BacktestResultRepository {
	return &BacktestResultRepository{db: db}
}

func (r *BacktestResultRepository) CreateRun(ctx context.Context, run *entity.BacktestRun) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(run.TableName()).
		Columns(
			"id",
			"symbols",
			"strategies",
			"starting_cash",
			"commission",
			"final_equity",
			"started_at",
			"finished_at",
			"created_at",
		).
		Values(
			run.ID,
			run.Symbols,
			run.Strategies,
			run.StartingCash,
			run.Commission,
			run.FinalEquity,
			run.StartedAt,
			run.FinishedAt,
			run.CreatedAt,
		)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *BacktestResultRepository) FinishRun(ctx context.Context, update *entity.BacktestRun) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update(update.TableName()).
		Set("final_equity", update.FinalEquity).
		Set("finished_at", update.FinishedAt).
		Where(sq.Eq{"id": update.ID})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// InsertEquityCurve persists a run's equity samples in one statement.
func (r *BacktestResultRepository) InsertEquityCurve(ctx context.Context, runID string, curve entity.EquityCurve) error {
	if len(curve) == 0 {
		return nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(entity.BacktestEquityPoint{}.TableName()).
		Columns("run_id", "bar_time", "equity")

	for _, point := range curve {
		queryBuilder = queryBuilder.Values(runID, point.Time, point.Equity)
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// InsertFills persists a run's fills audit trail.
func (r *BacktestResultRepository) InsertFills(ctx context.Context, runID string, fills []entity.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(entity.BacktestFill{}.TableName()).
		Columns("run_id", "symbol", "fill_time", "side", "quantity", "price", "commission")

	for _, fill := range fills {
		queryBuilder = queryBuilder.Values(
			runID,
			fill.Symbol,
			fill.Time,
			string(fill.Side),
			fill.Quantity,
			fill.Price,
			fill.Commission,
		)
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetEquityCurve reloads a persisted run's equity samples.
func (r *BacktestResultRepository) GetEquityCurve(ctx context.Context, runID string) (entity.EquityCurve, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("bar_time", "equity").
		From(entity.BacktestEquityPoint{}.TableName()).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("bar_time ASC")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var points []entity.BacktestEquityPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, err
	}

	curve := make(entity.EquityCurve, 0, len(points))
	for _, point := range points {
		curve = append(curve, entity.EquityPoint{Time: point.BarTime, Equity: point.Equity})
	}

	return curve, nil
}
