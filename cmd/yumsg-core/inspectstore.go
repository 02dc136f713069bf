// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xEodum/NativeLayer/store"
)

var (
	inspectStoreDir    string
	inspectStoreStatus string
)

var inspectStoreCmd = &cobra.Command{
	Use:   "inspect-store",
	Short: "List chats in a ChatStore directory",
	Long: `Opens a ChatStore rooted at --dir and lists the chats found there,
one row per chat, with ID, status, peer, fingerprint and last activity.
Pass --status to restrict the listing to a single lifecycle state.`,
	Example: `  # List every established chat in the default store directory
  yumsg-core inspect-store --dir .yumsg/chats --status ESTABLISHED`,
	RunE: runInspectStore,
}

func init() {
	rootCmd.AddCommand(inspectStoreCmd)

	inspectStoreCmd.Flags().StringVar(&inspectStoreDir, "dir", ".yumsg/chats", "ChatStore base directory")
	inspectStoreCmd.Flags().StringVar(&inspectStoreStatus, "status", "", "Restrict to a single status (INITIALIZING, ESTABLISHED, FAILED); default lists all")
}

func runInspectStore(cmd *cobra.Command, args []string) error {
	st, err := store.New(inspectStoreDir, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	statuses := []store.Status{store.StatusInitializing, store.StatusEstablished, store.StatusFailed}
	if inspectStoreStatus != "" {
		statuses = []store.Status{store.Status(inspectStoreStatus)}
	}

	var chats []*store.Chat
	for _, s := range statuses {
		found, err := st.ListByStatus(s)
		if err != nil {
			return fmt.Errorf("list chats with status %s: %w", s, err)
		}
		chats = append(chats, found...)
	}

	if len(chats) == 0 {
		fmt.Println("No chats found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPEER\tFINGERPRINT\tLAST ACTIVITY")
	for _, c := range chats {
		fp := c.Fingerprint
		if fp == "" {
			fp = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Status, c.PeerID, fp, c.LastActivity.Format("2006-01-02T15:04:05Z07:00"))
	}
	return w.Flush()
}
