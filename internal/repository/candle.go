package repository

import (
	"barreplay/types"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.Hour:           "1 hour",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// Candle is one aggregated interval of a single ticker.
type Candle struct {
	AssetID   int
	Ticker    string
	Interval  types.Interval
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// OHLC converts the candle to the float prices a types.Bar carries.
func (c Candle) OHLC() types.OHLC {
	return types.OHLC{
		Open:  c.Open.InexactFloat64(),
		High:  c.High.InexactFloat64(),
		Low:   c.Low.InexactFloat64(),
		Close: c.Close.InexactFloat64(),
	}
}

// GetBars returns the candles of one asset bucketed to interval, oldest first.
// A timestamp the store returns more than once is kept only the first time.
func (db *Database) GetBars(ctx context.Context, assetID int, ticker string, interval types.Interval, start, end time.Time) ([]Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, fmt.Errorf("%q: %w", interval, ErrIntervalNotSupported)
	}
	args := aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetID),
		Starttime:  start,
		Endtime:    end,
	}
	rows, err := db.candles.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoCandles)
	}
	return convertCandles(rows, interval, ticker), nil
}

func convertCandles(rows []aggregateRow, interval types.Interval, ticker string) []Candle {
	seen := make(map[int64]struct{}, len(rows))
	candles := make([]Candle, 0, len(rows))
	for _, dao := range rows {
		ms := dao.Bucket.UnixMilli()
		if _, dup := seen[ms]; dup {
			continue
		}
		seen[ms] = struct{}{}
		candles = append(candles, Candle{
			AssetID:   int(dao.AssetID),
			Ticker:    ticker,
			Open:      dao.Open,
			Close:     dao.Close,
			High:      dao.High,
			Low:       dao.Low,
			Volume:    dao.Volume,
			Interval:  interval,
			Timestamp: dao.Bucket.UTC(),
		})
	}
	return candles
}

// GetDataset loads every ticker over [start, end] and joins them into one
// dataset with a row per timestamp. A ticker with no candle at a timestamp
// gets NaN prices in that row.
func (db *Database) GetDataset(ctx context.Context, tickers []string, interval types.Interval, start, end time.Time) (types.Dataset, error) {
	for _, t := range []time.Time{start, end} {
		if t.IsZero() || t.Location() == time.Local {
			return types.Dataset{}, fmt.Errorf("%s: %w", t, ErrNaiveTime)
		}
	}

	perTicker := make(map[string][]Candle, len(tickers))
	for _, ticker := range tickers {
		asset, err := db.GetAssetByTicker(ctx, ticker)
		if err != nil {
			return types.Dataset{}, err
		}
		candles, err := db.GetBars(ctx, asset.ID, ticker, interval, start, end)
		if err != nil {
			return types.Dataset{}, err
		}
		perTicker[ticker] = candles
	}
	return pivotCandles(tickers, perTicker)
}

func pivotCandles(tickers []string, perTicker map[string][]Candle) (types.Dataset, error) {
	rows := make(map[int64]map[string]types.OHLC)
	for ticker, candles := range perTicker {
		for _, c := range candles {
			ms := c.Timestamp.UnixMilli()
			row, ok := rows[ms]
			if !ok {
				row = make(map[string]types.OHLC, len(tickers))
				rows[ms] = row
			}
			row[ticker] = c.OHLC()
		}
	}

	stamps := make([]int64, 0, len(rows))
	for ms := range rows {
		stamps = append(stamps, ms)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	missing := types.OHLC{Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN()}
	bars := make([]types.Bar, 0, len(stamps))
	for _, ms := range stamps {
		row := rows[ms]
		for _, ticker := range tickers {
			if _, ok := row[ticker]; !ok {
				row[ticker] = missing
			}
		}
		bars = append(bars, types.NewBarFromMillis(ms, row))
	}
	return types.NewDataset(bars)
}
