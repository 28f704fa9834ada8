// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"math/big"
	"testing"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), RAY)
}

func TestInterestRateModel_DefaultModel(t *testing.T) {
	model := DefaultInterestRateModel()

	if model.BaseRate.Cmp(percent(2)) != 0 {
		t.Errorf("expected base rate 2%%, got %v", model.BaseRate)
	}
	expectedOptimal := new(big.Int).Div(new(big.Int).Mul(big.NewInt(80), RAY), big.NewInt(100))
	if model.OptimalUtilization.Cmp(expectedOptimal) != 0 {
		t.Errorf("expected optimal %v, got %v", expectedOptimal, model.OptimalUtilization)
	}
}

func TestInterestRateModel_GetUtilizationRate(t *testing.T) {
	model := DefaultInterestRateModel()

	// No borrows = 0% utilization
	util := model.GetUtilizationRate(ether(1), big.NewInt(0), big.NewInt(0))
	if util.Sign() != 0 {
		t.Errorf("expected 0 utilization, got %v", util)
	}

	// 500 borrowed, 500 cash
	util = model.GetUtilizationRate(ether(500), ether(500), big.NewInt(0))
	if expected := new(big.Int).Div(RAY, big.NewInt(2)); util.Cmp(expected) != 0 {
		t.Errorf("expected 50%% utilization (%v), got %v", expected, util)
	}

	// reserves exceeding cash and borrows cap at 100%
	util = model.GetUtilizationRate(big.NewInt(0), ether(1), ether(2))
	if util.Cmp(RAY) != 0 {
		t.Errorf("expected 100%% utilization, got %v", util)
	}

	// reserves held in cash are not lendable
	util = model.GetUtilizationRate(ether(600), ether(400), ether(200))
	if util.Cmp(percent(50)) != 0 {
		t.Errorf("expected 50%% with reserves excluded, got %s", util)
	}
}

func TestInterestRateModel_GetBorrowRate(t *testing.T) {
	model := DefaultInterestRateModel()

	tests := []struct {
		name    string
		cash    *big.Int
		borrows *big.Int
		want    *big.Int
	}{
		{"idle", ether(1000), big.NewInt(0), percent(2)},
		{"half", ether(500), ether(500), percent(7)},
		{"kink", ether(200), ether(800), percent(10)},
		{"above kink", ether(100), ether(900), percent(20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := model.GetBorrowRate(tt.cash, tt.borrows, big.NewInt(0))
			if rate.Cmp(tt.want) != 0 {
				t.Errorf("expected rate %v, got %v", tt.want, rate)
			}
		})
	}
}

func TestAccrueInterest(t *testing.T) {
	year := SecondsPerYear.Uint64()

	if got := AccrueInterest(ether(100), percent(10), year); got.Cmp(ether(10)) != 0 {
		t.Errorf("expected 10 ether over a year, got %v", got)
	}
	if got := AccrueInterest(ether(100), percent(10), year/2); got.Cmp(ether(5)) != 0 {
		t.Errorf("expected 5 ether over half a year, got %v", got)
	}
	if got := AccrueInterest(ether(100), percent(10), 0); got.Sign() != 0 {
		t.Errorf("expected no interest without elapsed time, got %v", got)
	}
	if got := AccrueInterest(big.NewInt(0), percent(10), year); got.Sign() != 0 {
		t.Errorf("expected no interest on zero principal, got %v", got)
	}
}

func TestAccrueInterest_Monotonic(t *testing.T) {
	prev := big.NewInt(0)
	for _, seconds := range []uint64{1, 60, 3600, 86400, 86401, 31536000} {
		got := AccrueInterest(ether(70), percent(7), seconds)
		if got.Cmp(prev) < 0 {
			t.Fatalf("interest decreased at %d seconds: %v < %v", seconds, got, prev)
		}
		prev = got
	}
}

func TestReserveShare(t *testing.T) {
	model := DefaultInterestRateModel()
	if got := model.ReserveShare(ether(10)); got.Cmp(ether(1)) != 0 {
		t.Errorf("expected 1 ether reserve share, got %v", got)
	}
}

func TestParamsVerify(t *testing.T) {
	valid := func() Params {
		m := DefaultInterestRateModel()
		return Params{
			LoanDuration:       86400,
			BaseRate:           m.BaseRate,
			Slope1:             m.Slope1,
			Slope2:             m.Slope2,
			OptimalUtilization: m.OptimalUtilization,
			ReserveFactor:      m.ReserveFactor,
		}
	}
	if err := valid().Verify(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"zero duration", func(p *Params) { p.LoanDuration = 0 }},
		{"negative base rate", func(p *Params) { p.BaseRate = big.NewInt(-1) }},
		{"zero kink", func(p *Params) { p.OptimalUtilization = nil }},
		{"kink above 100%", func(p *Params) { p.OptimalUtilization = new(big.Int).Add(RAY, big.NewInt(1)) }},
		{"reserve factor above 100%", func(p *Params) { p.ReserveFactor = ether(2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.modify(&p)
			if err := p.Verify(); err == nil {
				t.Errorf("expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestAccrueInterestCarry(t *testing.T) {
	principal := big.NewInt(1_000_000_000_000)
	rate := percent(2)

	whole := AccrueInterest(principal, rate, 1000)
	if whole.Sign() <= 0 {
		t.Fatalf("expected positive interest over 1000s, got %s", whole)
	}

	sum := new(big.Int)
	carry := new(big.Int)
	for i := 0; i < 1000; i++ {
		var interest *big.Int
		interest, carry = AccrueInterestCarry(principal, rate, 1, carry)
		sum.Add(sum, interest)
	}
	if sum.Cmp(whole) != 0 {
		t.Errorf("per-second accrual = %s, want %s", sum, whole)
	}
	if carry.Sign() < 0 || carry.Cmp(accrualUnit) >= 0 {
		t.Errorf("carry %s out of range", carry)
	}

	if single := AccrueInterest(principal, rate, 1); single.Sign() != 0 {
		t.Errorf("one second should round to zero, got %s", single)
	}
	if interest, rest := AccrueInterestCarry(principal, rate, 0, nil); interest.Sign() != 0 || rest.Sign() != 0 {
		t.Errorf("zero elapsed = (%s, %s), want (0, 0)", interest, rest)
	}
}
