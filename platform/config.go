// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package platform

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/registry"
	"github.com/luxfi/nftlend/vault"
)

// DefaultLoanDuration is 30 days
const DefaultLoanDuration uint64 = 30 * 24 * 60 * 60

// EnvPrefix prefixes every environment override
const EnvPrefix = "NFTLEND_"

var (
	ErrNoOwner             = errors.New("platform owner not configured")
	ErrInvalidSlot         = errors.New("deployment slot out of range")
	ErrInvalidCollection   = errors.New("invalid collection config")
	ErrDuplicateCollection = errors.New("collection configured twice")
)

// CollectionConfig lists a collection accepted as collateral at deployment
type CollectionConfig struct {
	Address    common.Address `json:"address"`
	FactorBps  uint64         `json:"factorBps"`
	FloorPrice *big.Int       `json:"floorPrice,omitempty"`
}

// Config describes one platform deployment
type Config struct {
	Slot               uint8              `json:"slot"`
	Owner              common.Address     `json:"owner"`
	LoanDuration       uint64             `json:"loanDuration"`
	BaseRate           *big.Int           `json:"baseRate"`
	Slope1             *big.Int           `json:"slope1"`
	Slope2             *big.Int           `json:"slope2"`
	OptimalUtilization *big.Int           `json:"optimalUtilization"`
	ReserveFactor      *big.Int           `json:"reserveFactor"`
	Collections        []CollectionConfig `json:"collections,omitempty"`
}

// DefaultConfig returns the standard rate model and loan duration with no
// owner and no collections
func DefaultConfig() Config {
	m := lending.DefaultInterestRateModel()
	return Config{
		LoanDuration:       DefaultLoanDuration,
		BaseRate:           m.BaseRate,
		Slope1:             m.Slope1,
		Slope2:             m.Slope2,
		OptimalUtilization: m.OptimalUtilization,
		ReserveFactor:      m.ReserveFactor,
	}
}

// LendingParams returns the lending parameters the config seeds
func (c Config) LendingParams(oracle common.Address) lending.Params {
	return lending.Params{
		Oracle:             oracle,
		LoanDuration:       c.LoanDuration,
		BaseRate:           c.BaseRate,
		Slope1:             c.Slope1,
		Slope2:             c.Slope2,
		OptimalUtilization: c.OptimalUtilization,
		ReserveFactor:      c.ReserveFactor,
	}
}

// Verify tries to verify Config and returns an error accordingly.
func (c Config) Verify() error {
	if c.Owner == (common.Address{}) {
		return ErrNoOwner
	}
	if c.Slot > registry.MaxSlot {
		return fmt.Errorf("%w: %d > %d", ErrInvalidSlot, c.Slot, registry.MaxSlot)
	}
	if err := c.LendingParams(common.Address{}).Verify(); err != nil {
		return err
	}
	seen := make(map[common.Address]struct{}, len(c.Collections))
	for i, col := range c.Collections {
		if col.Address == (common.Address{}) {
			return fmt.Errorf("%w: collections[%d] has no address", ErrInvalidCollection, i)
		}
		if col.FactorBps > vault.MaxCollateralFactor {
			return fmt.Errorf("%w: collections[%d] factor %d", vault.ErrInvalidCollateralFactor, i, col.FactorBps)
		}
		if col.FloorPrice != nil && col.FloorPrice.Sign() < 0 {
			return fmt.Errorf("%w: collections[%d] negative floor price", ErrInvalidCollection, i)
		}
		if _, ok := seen[col.Address]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCollection, col.Address)
		}
		seen[col.Address] = struct{}{}
	}
	return nil
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Equal returns true if [cfg] is a [Config] and it has been configured identical to [c].
func (c Config) Equal(cfg Config) bool {
	if c.Slot != cfg.Slot || c.Owner != cfg.Owner || c.LoanDuration != cfg.LoanDuration {
		return false
	}
	if !bigEqual(c.BaseRate, cfg.BaseRate) ||
		!bigEqual(c.Slope1, cfg.Slope1) ||
		!bigEqual(c.Slope2, cfg.Slope2) ||
		!bigEqual(c.OptimalUtilization, cfg.OptimalUtilization) ||
		!bigEqual(c.ReserveFactor, cfg.ReserveFactor) {
		return false
	}
	if len(c.Collections) != len(cfg.Collections) {
		return false
	}
	for i := range c.Collections {
		a, b := c.Collections[i], cfg.Collections[i]
		if a.Address != b.Address || a.FactorBps != b.FactorBps || !bigEqual(a.FloorPrice, b.FloorPrice) {
			return false
		}
	}
	return true
}

// config.toml key mapping to Config
type fileConfig struct {
	Slot               uint8                  `toml:"slot"`
	Owner              string                 `toml:"owner"`
	LoanDuration       uint64                 `toml:"loan_duration"`
	BaseRate           string                 `toml:"base_rate"`
	Slope1             string                 `toml:"slope1"`
	Slope2             string                 `toml:"slope2"`
	OptimalUtilization string                 `toml:"optimal_utilization"`
	ReserveFactor      string                 `toml:"reserve_factor"`
	Collections        []fileCollectionConfig `toml:"collections"`
}

type fileCollectionConfig struct {
	Address    string `toml:"address"`
	FactorBps  uint64 `toml:"factor_bps"`
	FloorPrice string `toml:"floor_price"`
}

func parseAddress(key, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", key, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(key, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return v, nil
}

// NFTLEND_* overrides; a nil field was not set
type envConfig struct {
	Slot               *uint8          `env:"SLOT"`
	Owner              *common.Address `env:"OWNER"`
	LoanDuration       *uint64         `env:"LOAN_DURATION"`
	BaseRate           *big.Int        `env:"BASE_RATE"`
	Slope1             *big.Int        `env:"SLOPE1"`
	Slope2             *big.Int        `env:"SLOPE2"`
	OptimalUtilization *big.Int        `env:"OPTIMAL_UTILIZATION"`
	ReserveFactor      *big.Int        `env:"RESERVE_FACTOR"`
}

// LoadConfig reads a TOML config over DefaultConfig, then applies NFTLEND_*
// environment overrides. An empty path loads only defaults and environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load platform config: %w", err)
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func loadEnv(cfg *Config) error {
	var overrides envConfig
	if err := env.ParseWithOptions(&overrides, env.Options{Prefix: EnvPrefix}); err != nil {
		return err
	}
	if overrides.Slot != nil {
		cfg.Slot = *overrides.Slot
	}
	if overrides.Owner != nil {
		cfg.Owner = *overrides.Owner
	}
	if overrides.LoanDuration != nil {
		cfg.LoanDuration = *overrides.LoanDuration
	}
	for _, o := range []struct {
		value *big.Int
		dst   **big.Int
	}{
		{overrides.BaseRate, &cfg.BaseRate},
		{overrides.Slope1, &cfg.Slope1},
		{overrides.Slope2, &cfg.Slope2},
		{overrides.OptimalUtilization, &cfg.OptimalUtilization},
		{overrides.ReserveFactor, &cfg.ReserveFactor},
	} {
		if o.value != nil {
			*o.dst = o.value
		}
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("slot") {
		cfg.Slot = raw.Slot
	}
	if meta.IsDefined("owner") {
		if cfg.Owner, err = parseAddress("owner", raw.Owner); err != nil {
			return err
		}
	}
	if meta.IsDefined("loan_duration") {
		cfg.LoanDuration = raw.LoanDuration
	}
	amounts := []struct {
		key string
		raw string
		dst **big.Int
	}{
		{"base_rate", raw.BaseRate, &cfg.BaseRate},
		{"slope1", raw.Slope1, &cfg.Slope1},
		{"slope2", raw.Slope2, &cfg.Slope2},
		{"optimal_utilization", raw.OptimalUtilization, &cfg.OptimalUtilization},
		{"reserve_factor", raw.ReserveFactor, &cfg.ReserveFactor},
	}
	for _, a := range amounts {
		if !meta.IsDefined(a.key) {
			continue
		}
		v, err := parseAmount(a.key, a.raw)
		if err != nil {
			return err
		}
		*a.dst = v
	}

	if meta.IsDefined("collections") {
		cfg.Collections = make([]CollectionConfig, 0, len(raw.Collections))
		for i, rc := range raw.Collections {
			key := fmt.Sprintf("collections[%d]", i)
			addr, err := parseAddress(key+".address", rc.Address)
			if err != nil {
				return err
			}
			col := CollectionConfig{Address: addr, FactorBps: rc.FactorBps}
			if strings.TrimSpace(rc.FloorPrice) != "" {
				if col.FloorPrice, err = parseAmount(key+".floor_price", rc.FloorPrice); err != nil {
					return err
				}
			}
			cfg.Collections = append(cfg.Collections, col)
		}
	}
	return nil
}
