// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "yumsg-core",
	Short: "yumsg-core CLI - chat key establishment tools",
	Long: `yumsg-core CLI provides operator tooling for the secure chat
key-establishment core: generating KEM/signature keypairs, running an
in-memory two-party handshake simulation, and inspecting a ChatStore
directory on disk.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - keygen.go: keygenCmd
	// - simulate.go: simulateCmd
	// - inspectstore.go: inspectStoreCmd
}
