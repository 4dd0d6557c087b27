package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/backtest-service/internal/entity"
)

type MarketBarRepository struct {
	db *sqlx.DB
}

func NewMarketBarRepository(db *sqlx.DB) *MarketBarRepository {
	return &MarketBarRepository{db: db}
}

func (r *MarketBarRepository) Upsert(ctx context.Context, data *entity.MarketBar) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(data.TableName()).
		Columns(
			"symbol",
			"bar_time",
			"open_price",
			"high_price",
			"low_price",
			"close_price",
			"volume",
			"created_at",
			"updated_at",
		).
		Values(
			data.Symbol,
			data.BarTime,
			data.OpenPrice,
			data.HighPrice,
			data.LowPrice,
			data.ClosePrice,
			data.Volume,
			data.CreatedAt,
			data.UpdatedAt,
		).
		Suffix(`ON CONFLICT (symbol, bar_time)
DO UPDATE SET
	open_price = EXCLUDED.open_price,
	high_price = EXCLUDED.high_price,
	low_price = EXCLUDED.low_price,
	close_price = EXCLUDED.close_price,
	volume = EXCLUDED.volume,
	updated_at = EXCLUDED.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetSeries loads the bar history of one symbol inside [from, to],
// ordered by time.
func (r *MarketBarRepository) GetSeries(ctx context.Context, symbol string, from, to time.Time) (entity.Series, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(
			"symbol",
			"bar_time",
			"open_price",
			"high_price",
			"low_price",
			"close_price",
			"volume",
			"created_at",
			"updated_at",
		).
		From(entity.MarketBar{}.TableName()).
		Where(sq.Eq{"symbol": symbol}).
		Where(sq.GtOrEq{"bar_time": from}).
		Where(sq.LtOrEq{"bar_time": to}).
		OrderBy("bar_time ASC")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return entity.Series{}, err
	}

	var rows []entity.MarketBar
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return entity.Series{}, err
	}

	bars := make([]entity.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, row.ToBar())
	}

	return entity.NewSeries(symbol, bars), nil
}
