// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// lendctl inspects and exercises the NFT lending platform on an in-memory
// host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/nftlend/platform"
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) loadConfig() (platform.Config, error) {
	return platform.LoadConfig(o.configPath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "lendctl",
		Short:         "Inspect and exercise the NFT lending platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "platform config file (TOML); "+platform.EnvPrefix+"* variables override it")

	root.AddCommand(
		newSelectorsCmd(),
		newConfigCmd(opts),
		newInspectCmd(opts),
		newDemoCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lendctl:", err)
		os.Exit(1)
	}
}
