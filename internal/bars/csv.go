package bars

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/pkg/exception"
)

// CSVSource reads one file per symbol from a directory. Each record is
// "time,open,high,low,close,volume" with the time in any accepted wire
// layout. A header row is skipped when its first field is not a
// parseable timestamp.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) (*CSVSource, error) {
	if dir == "" {
		return nil, exception.ErrInvalidConfig
	}
	return &CSVSource{dir: dir}, nil
}

// DayBars loads <dir>/<symbol>.csv sorted by timestamp.
func (s *CSVSource) DayBars(ctx context.Context, symbol string) ([]schema.PriceBar, error) {
	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open bar file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read bar file "+path)
	}

	out := make([]schema.PriceBar, 0, len(records))
	for i, record := range records {
		bar, err := parseRecord(record)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, errors.Wrap(err, "parse bar file "+path)
		}
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func parseRecord(record []string) (schema.PriceBar, error) {
	t, err := schema.ParseBarTime(record[0])
	if err != nil {
		return schema.PriceBar{}, err
	}
	prices := make([]float64, 4)
	for i, field := range record[1:5] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return schema.PriceBar{}, err
		}
		prices[i] = v
	}
	volume, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return schema.PriceBar{}, err
	}
	return schema.PriceBar{
		Time:   t,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}, nil
}
