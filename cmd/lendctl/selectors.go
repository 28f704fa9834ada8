// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luxfi/nftlend/contract"
	"github.com/luxfi/nftlend/diamond"
	"github.com/luxfi/nftlend/lending"
	"github.com/luxfi/nftlend/registry"
	"github.com/luxfi/nftlend/vault"
)

var errSelectorClash = errors.New("selector bound by two facets")

type facetABI struct {
	name string
	abi  contract.ExtendedABI
}

// facetABIs lists every facet the platform binds, in cut order
var facetABIs = []facetABI{
	{registry.DiamondCutFacet, diamond.CutABI},
	{registry.DiamondLoupeFacet, diamond.LoupeABI},
	{registry.OwnershipFacet, diamond.OwnershipABI},
	{registry.NFTVaultFacet, vault.ABI},
	{registry.LendingFacet, lending.ABI},
}

func newSelectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "Print the function selectors of every facet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSelectors(cmd.OutOrStdout(), facetABIs)
		},
	}
}

// writeSelectors prints one line per method and fails if two facets share
// a selector, which a diamond cut would reject
func writeSelectors(out io.Writer, facets []facetABI) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FACET\tSELECTOR\tSIGNATURE")

	owners := make(map[contract.Selector]string)
	for _, f := range facets {
		names := make([]string, 0, len(f.abi.Methods))
		for name := range f.abi.Methods {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			method := f.abi.Methods[name]
			sel := f.abi.MustSelector(name)
			if prev, ok := owners[sel]; ok {
				_ = w.Flush()
				return fmt.Errorf("%w: %#x in %s and %s", errSelectorClash, sel, prev, f.name)
			}
			owners[sel] = f.name
			fmt.Fprintf(w, "%s\t%#x\t%s\n", f.name, sel, method.Sig)
		}
	}
	return w.Flush()
}
