package config

import (
	"barreplay/types"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRunFile = errors.New("invalid run file")

// RunFile is the YAML description of one backtest.
type RunFile struct {
	Symbols      []string       `yaml:"symbols"`
	Interval     string         `yaml:"interval"`
	Start        string         `yaml:"start"`
	End          string         `yaml:"end"`
	WarmupBars   *int           `yaml:"warmup_bars"`
	InitialCash  string         `yaml:"initial_cash"`
	RiskFreeRate string         `yaml:"risk_free_rate"`
	LimitOrders  bool           `yaml:"limit_orders"`
	Strategy     StrategyConfig `yaml:"strategy"`
}

// StrategyConfig holds the Donchian parameters. Zero values fall back to the
// strategy defaults.
type StrategyConfig struct {
	Lookback        int    `yaml:"lookback"`
	ATRPeriod       int    `yaml:"atr_period"`
	ATRMultiplier   string `yaml:"atr_multiplier"`
	PositionPercent string `yaml:"position_percent"`
}

// Run is a validated RunFile.
type Run struct {
	Symbols      []string
	Interval     types.Interval
	Start        time.Time
	End          time.Time
	WarmupBars   *int
	InitialCash  decimal.Decimal
	RiskFreeRate decimal.Decimal
	LimitOrders  bool
	Strategy     StrategyConfig
}

func LoadRunFile(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run file: %w", err)
	}
	return ParseRun(data)
}

func ParseRun(data []byte) (*Run, error) {
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRunFile, err)
	}
	return rf.validate()
}

func (rf RunFile) validate() (*Run, error) {
	if len(rf.Symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrInvalidRunFile)
	}
	interval, err := types.ParseInterval(rf.Interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRunFile, err)
	}
	start, err := parseInstant("start", rf.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseInstant("end", rf.End)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRunFile, rf.Start, rf.End)
	}
	if rf.WarmupBars != nil && *rf.WarmupBars < 0 {
		return nil, fmt.Errorf("%w: warmup_bars %d is negative", ErrInvalidRunFile, *rf.WarmupBars)
	}

	cash, err := parseDecimal("initial_cash", rf.InitialCash, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("%w: initial_cash %s is negative", ErrInvalidRunFile, cash)
	}
	riskFree, err := parseDecimal("risk_free_rate", rf.RiskFreeRate, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if riskFree.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return nil, fmt.Errorf("%w: risk_free_rate %s must be above -1", ErrInvalidRunFile, riskFree)
	}
	if _, err := parseDecimal("strategy.atr_multiplier", rf.Strategy.ATRMultiplier, decimal.Zero); err != nil {
		return nil, err
	}
	if _, err := parseDecimal("strategy.position_percent", rf.Strategy.PositionPercent, decimal.Zero); err != nil {
		return nil, err
	}

	return &Run{
		Symbols:      rf.Symbols,
		Interval:     interval,
		Start:        start,
		End:          end,
		WarmupBars:   rf.WarmupBars,
		InitialCash:  cash,
		RiskFreeRate: riskFree,
		LimitOrders:  rf.LimitOrders,
		Strategy:     rf.Strategy,
	}, nil
}

// parseInstant accepts RFC 3339 only, so a timestamp without an offset is an
// error. The result is in UTC.
func parseInstant(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidRunFile, field)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q needs an explicit offset: %v", ErrInvalidRunFile, field, s, err)
	}
	return t.UTC(), nil
}

func parseDecimal(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidRunFile, field, err)
	}
	return d, nil
}
