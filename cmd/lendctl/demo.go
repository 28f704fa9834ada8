// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/platform/platformtest"
	"github.com/luxfi/nftlend/vm"
)

type demoOptions struct {
	liquidity   int64
	borrow      int64
	price       int64
	elapsed     uint64
	showMetrics bool
}

func newDemoCmd() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk a loan from deposit to liquidation on an in-memory platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.OutOrStdout(), opts)
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&opts.liquidity, "liquidity", 500, "liquidity supplied by the lender, in ether")
	flags.Int64Var(&opts.borrow, "borrow", 60, "amount borrowed against one item, in ether")
	flags.Int64Var(&opts.price, "price", 50, "appraisal the item drops to before liquidation, in ether")
	flags.Uint64Var(&opts.elapsed, "elapsed", 15*24*60*60, "seconds between borrowing and the price drop")
	flags.BoolVar(&opts.showMetrics, "metrics", false, "print host metrics when done")
	return cmd
}

func runDemo(out io.Writer, opts demoOptions) error {
	logger := log.NewTestLogger(log.InfoLevel)
	reg := prometheus.NewRegistry()
	host, err := vm.New(memdb.New(), reg, vm.WithBlock(1, platformtest.StartTime), vm.WithLogger(logger))
	if err != nil {
		return err
	}
	env, err := platformtest.Setup(host, platformtest.Config())
	if err != nil {
		return err
	}
	const item = 1

	if err := env.Fund(platformtest.Ether(opts.liquidity)); err != nil {
		return fmt.Errorf("supply liquidity: %w", err)
	}
	if err := env.MintAndDeposit(platformtest.Collection, platformtest.Borrower, item); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	maxOut, err := env.Query(env.Diamond(), lending.ABI, "maxBorrowable", []lending.CollateralRef{
		{Collection: platformtest.Collection, TokenID: big.NewInt(item)},
	})
	if err != nil {
		return err
	}
	logger.Info("item deposited", "collection", platformtest.Collection, "tokenID", item, "maxBorrowable", maxOut[0])

	loanID, err := env.Borrow(platformtest.Borrower, platformtest.Collection, platformtest.Ether(opts.borrow), item)
	if err != nil {
		return fmt.Errorf("borrow: %w", err)
	}
	loan, err := env.Loan(loanID)
	if err != nil {
		return err
	}
	logger.Info("loan opened", "loan", loanID, "principal", loan.Principal, "rate", loan.Rate, "maturity", loan.Maturity)

	host.AdvanceTime(opts.elapsed)
	owed, err := env.Outstanding(loanID)
	if err != nil {
		return err
	}
	logger.Info("time passed", "seconds", opts.elapsed, "outstanding", owed)

	if err := env.SetItemPrice(platformtest.Collection, item, platformtest.Ether(opts.price)); err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	check, err := env.Query(env.Diamond(), lending.ABI, "isLiquidatable", new(big.Int).SetUint64(loanID))
	if err != nil {
		return err
	}
	liquidatable := check[0].(bool)
	logger.Info("appraisal dropped", "price", platformtest.Ether(opts.price), "liquidatable", liquidatable)

	if liquidatable {
		if err := env.Credit(platformtest.Liquidator, owed); err != nil {
			return err
		}
		// interest accrued within the block is zero, so owed still closes the loan
		if _, err := env.Lending(platformtest.Liquidator, "liquidate", new(big.Int).SetUint64(loanID)); err != nil {
			return fmt.Errorf("liquidate: %w", err)
		}
		holder, err := env.OwnerOf(platformtest.Collection, item)
		if err != nil {
			return err
		}
		logger.Info("loan liquidated", "loan", loanID, "itemHolder", holder)
	}

	loan, err = env.Loan(loanID)
	if err != nil {
		return err
	}
	params, err := env.Query(env.Diamond(), lending.ABI, "lendingParams")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "loan %d: %s\n", loanID, loan.Status)
	fmt.Fprintf(out, "liquidity: %s wei\n", env.Balance(env.Diamond()))
	fmt.Fprintf(out, "total borrows: %s wei\n", params[7])
	fmt.Fprintf(out, "total reserves: %s wei\n", params[8])

	if !opts.showMetrics {
		return nil
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
