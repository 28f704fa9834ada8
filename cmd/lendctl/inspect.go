// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/platform"
	"github.com/luxfi/nftlend/registry"
	"github.com/luxfi/nftlend/vm"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Deploy the configured platform in memory and print its layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			host, err := vm.New(memdb.New(), nil, vm.WithLogger(log.NewTestLogger(log.InfoLevel)))
			if err != nil {
				return err
			}
			d, err := platform.Deploy(host, cfg)
			if err != nil {
				return err
			}
			return writeLayout(cmd.OutOrStdout(), host, d)
		},
	}
}

func view(host *vm.Host, from, to common.Address, contractABI contract.ExtendedABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := host.View(from, to, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return contractABI.Unpack(method, ret)
}

// writeLayout prints the deployment addresses, then the selectors the loupe
// reports per facet
func writeLayout(out io.Writer, host *vm.Host, d *platform.Deployment) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "slot\t%d\n", d.Slot)
	fmt.Fprintf(w, "owner\t%s\n", d.Owner)
	fmt.Fprintf(w, "diamond\t%s\n", d.Diamond)
	fmt.Fprintf(w, "oracle\t%s\n", d.Oracle)
	fmt.Fprintln(w)

	addrs, err := view(host, d.Owner, d.Diamond, diamond.LoupeABI, "facetAddresses")
	if err != nil {
		return err
	}
	for _, facet := range addrs[0].([]common.Address) {
		name := "unknown"
		if info, _, ok := registry.Lookup(facet); ok {
			name = info.Name
		}
		sels, err := view(host, d.Owner, d.Diamond, diamond.LoupeABI, "facetFunctionSelectors", facet)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", name, facet)
		for _, sel := range sels[0].([][4]byte) {
			fmt.Fprintf(w, "\t%#x\n", sel)
		}
	}
	return w.Flush()
}
