package bars

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/conn"
)

// barRow is the persisted OHLCV shape.
type barRow struct {
	Symbol  string    `gorm:"column:symbol;index"`
	BarTime time.Time `gorm:"column:bar_time"`
	Open    float64   `gorm:"column:open"`
	High    float64   `gorm:"column:high"`
	Low     float64   `gorm:"column:low"`
	Close   float64   `gorm:"column:close"`
	Volume  int64     `gorm:"column:volume"`
}

// TableName maps barRow onto the bars table.
func (barRow) TableName() string { return "bars" }

// PostgresSource loads day bars from a bars table. With a non-zero Day
// only bars inside that calendar day are served.
type PostgresSource struct {
	client *conn.Client
	day    time.Time
}

// NewPostgresSource creates a source over an open connection pool.
func NewPostgresSource(client *conn.Client, day time.Time) *PostgresSource {
	return &PostgresSource{client: client, day: day}
}

// DayBars queries the symbol's bars ordered by timestamp.
func (s *PostgresSource) DayBars(ctx context.Context, symbol string) ([]schema.PriceBar, error) {
	query := s.client.DB().WithContext(ctx).Where("symbol = ?", symbol)
	if !s.day.IsZero() {
		start := s.day.Truncate(24 * time.Hour)
		query = query.Where("bar_time >= ? AND bar_time < ?", start, start.Add(24*time.Hour))
	}

	var rows []barRow
	if err := query.Order("bar_time asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query bars for "+symbol)
	}

	out := make([]schema.PriceBar, 0, len(rows))
	for _, row := range rows {
		out = append(out, schema.PriceBar{
			Time:   row.BarTime,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return out, nil
}
