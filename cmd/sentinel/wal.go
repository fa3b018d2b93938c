package main

import (
	"fmt"
	"path/filepath"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/recovery"
	"github.com/sentineldb/sentinel/pkg/store"
	"github.com/spf13/cobra"
)

var walCmd = &cobra.Command{
	Use:   "wal",
	Short: "Inspect and maintain collection write-ahead logs",
}

// targetCollections resolves the --collection flag: the named collection,
// or every collection in the store if it was left empty.
func targetCollections(cmd *cobra.Command, s *store.Store) ([]string, error) {
	name, _ := cmd.Flags().GetString("collection")
	if name != "" {
		return []string{name}, nil
	}
	return s.ListCollections()
}

var walCheckpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Truncate a collection's active WAL file",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store-path")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := targetCollections(cmd, s)
		if err != nil {
			return fmt.Errorf("failed to resolve collections: %w", err)
		}

		for _, name := range names {
			c, err := s.Collection(name, nil)
			if err != nil {
				return fmt.Errorf("failed to open collection %s: %w", name, err)
			}
			if err := c.Checkpoint(); err != nil {
				return fmt.Errorf("failed to checkpoint %s: %w", name, err)
			}
			fmt.Printf("✓ Checkpointed %s\n", name)
		}
		return nil
	},
}

var walVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a collection's WAL for internal and on-disk consistency",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store-path")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := targetCollections(cmd, s)
		if err != nil {
			return fmt.Errorf("failed to resolve collections: %w", err)
		}

		anyFailed := false
		for _, name := range names {
			result, err := recovery.VerifyWAL(filepath.Join(storePath, name))
			if err != nil {
				return fmt.Errorf("failed to verify %s: %w", name, err)
			}
			if result.Passed {
				fmt.Printf("✓ %s: consistent (%d issue(s), none critical)\n", name, len(result.Issues))
			} else {
				anyFailed = true
				fmt.Printf("✗ %s: %d issue(s), at least one critical\n", name, len(result.Issues))
			}
			for _, issue := range result.Issues {
				severity := "warn"
				if issue.Critical {
					severity = "critical"
				}
				fmt.Printf("  [%s] doc=%s txn=%s: %s\n", severity, issue.DocumentID, issue.TransactionID, issue.Description)
			}
		}
		if anyFailed {
			return fmt.Errorf("one or more collections failed WAL verification")
		}
		return nil
	},
}

var walRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Replay a collection's WAL against its document files",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store-path")
		forced, _ := cmd.Flags().GetBool("forced")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := targetCollections(cmd, s)
		if err != nil {
			return fmt.Errorf("failed to resolve collections: %w", err)
		}

		for _, name := range names {
			result, err := recovery.Recover(filepath.Join(storePath, name), crypto.CurrentDefaultAlgorithms(), forced)
			if err != nil {
				return fmt.Errorf("failed to recover %s: %w", name, err)
			}
			fmt.Printf("✓ %s: recovered=%d skipped=%d failed=%d\n", name, result.Recovered, result.Skipped, result.Failed)
			for _, f := range result.Failures {
				fmt.Printf("  [failed] doc=%s txn=%s op=%s: %s\n", f.DocumentID, f.TransactionID, f.Op, f.Reason)
			}
			if result.Failed > 0 {
				return fmt.Errorf("recovery of %s left %d record(s) unapplied", name, result.Failed)
			}
		}
		return nil
	},
}

var walListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a collection's rotated WAL files",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store-path")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := targetCollections(cmd, s)
		if err != nil {
			return fmt.Errorf("failed to resolve collections: %w", err)
		}

		for _, name := range names {
			c, err := s.Collection(name, nil)
			if err != nil {
				return fmt.Errorf("failed to open collection %s: %w", name, err)
			}
			stat, err := c.WALStat()
			if err != nil {
				return fmt.Errorf("failed to stat WAL for %s: %w", name, err)
			}
			fmt.Printf("%s:\n", name)
			if len(stat.RotatedFiles) == 0 {
				fmt.Println("  (no rotated files)")
				continue
			}
			for _, rf := range stat.RotatedFiles {
				codec := rf.Codec
				if codec == "" {
					codec = "raw"
				}
				fmt.Printf("  %s  codec=%-8s size=%d\n", rf.Path, codec, rf.SizeBytes)
			}
		}
		return nil
	},
}

var walStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a collection's active WAL size and record count",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store-path")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := targetCollections(cmd, s)
		if err != nil {
			return fmt.Errorf("failed to resolve collections: %w", err)
		}

		for _, name := range names {
			c, err := s.Collection(name, nil)
			if err != nil {
				return fmt.Errorf("failed to open collection %s: %w", name, err)
			}
			stat, err := c.WALStat()
			if err != nil {
				return fmt.Errorf("failed to stat WAL for %s: %w", name, err)
			}
			fmt.Printf("%s: active_size=%d live_records=%d rotated_files=%d\n",
				name, stat.ActiveSizeBytes, stat.LiveRecords, len(stat.RotatedFiles))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{walCheckpointCmd, walVerifyCmd, walRecoverCmd, walListCmd, walStatsCmd} {
		c.Flags().String("store-path", "", "Store root path")
		c.Flags().String("collection", "", "Collection name (all collections if omitted)")
		c.Flags().String("passphrase", "", "Passphrase gating the signing key")
		_ = c.MarkFlagRequired("store-path")
	}

	walRecoverCmd.Flags().Bool("forced", false, "Overwrite existing documents instead of skipping idempotently")

	walCmd.AddCommand(walCheckpointCmd)
	walCmd.AddCommand(walVerifyCmd)
	walCmd.AddCommand(walRecoverCmd)
	walCmd.AddCommand(walListCmd)
	walCmd.AddCommand(walStatsCmd)
}
