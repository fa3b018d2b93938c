package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/store"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage a store root",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create (or open) a store root",
	Long: `Create the store root directory, its .sentinel.json metadata,
and the reserved .keys collection. With --signing-key, the given key is
sealed under --passphrase and stored in .keys.

Examples:
  sentinel store init --path ./data
  sentinel store init --path ./data --passphrase hunter2 --signing-key <hex>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		passphrase, _ := cmd.Flags().GetString("passphrase")
		signingKeyHex, _ := cmd.Flags().GetString("signing-key")

		s, err := store.Open(path, store.Config{Passphrase: passphrase})
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		defer s.Close()

		if signingKeyHex != "" {
			raw, err := hex.DecodeString(signingKeyHex)
			if err != nil {
				return fmt.Errorf("invalid --signing-key hex: %w", err)
			}
			if err := s.ImportSigningKey(passphrase, ed25519.PrivateKey(raw)); err != nil {
				return fmt.Errorf("failed to import signing key: %w", err)
			}
			fmt.Println("✓ Signing key imported")
		}

		fmt.Printf("✓ Store initialized at %s\n", path)
		return nil
	},
}

var storeListCollectionsCmd = &cobra.Command{
	Use:   "list-collections",
	Short: "List collections in a store",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")

		s, err := openStore(cmd, path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		names, err := s.ListCollections()
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}

		if len(names) == 0 {
			fmt.Println("No collections found")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var storeDeleteCollectionCmd = &cobra.Command{
	Use:   "delete-collection",
	Short: "Delete a collection and its contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		name, _ := cmd.Flags().GetString("collection")
		if name == "" {
			return fmt.Errorf("--collection is required")
		}

		s, err := openStore(cmd, path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		if err := s.DeleteCollection(name); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}

		fmt.Printf("✓ Collection deleted: %s\n", name)
		return nil
	},
}

var storeGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate key material",
}

var storeGenKeyCmd = &cobra.Command{
	Use:       "key {signing|encryption}",
	Short:     "Generate a signing or encryption key",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"signing", "encryption"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "signing":
			path, _ := cmd.Flags().GetString("path")
			passphrase, _ := cmd.Flags().GetString("passphrase")
			if path == "" {
				return fmt.Errorf("--path is required to persist a signing key")
			}

			s, err := openStore(cmd, path)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer s.Close()

			pub, err := s.GenerateSigningKey(passphrase)
			if err != nil {
				return fmt.Errorf("failed to generate signing key: %w", err)
			}
			fmt.Printf("✓ Signing key generated\n  Public key: %s\n", hex.EncodeToString(pub))
			return nil

		case "encryption":
			key, err := crypto.GenerateEncryptionKey()
			if err != nil {
				return fmt.Errorf("failed to generate encryption key: %w", err)
			}
			fmt.Printf("✓ Encryption key generated\n  Key: %s\n", key)
			return nil

		default:
			return fmt.Errorf("unknown key kind %q (want signing or encryption)", args[0])
		}
	},
}

func init() {
	storeInitCmd.Flags().String("path", "", "Store root path")
	storeInitCmd.Flags().String("passphrase", "", "Passphrase gating the signing key")
	storeInitCmd.Flags().String("signing-key", "", "Hex-encoded Ed25519 private key to import")
	_ = storeInitCmd.MarkFlagRequired("path")

	storeListCollectionsCmd.Flags().String("path", "", "Store root path")
	storeListCollectionsCmd.Flags().String("passphrase", "", "Passphrase gating the signing key")
	_ = storeListCollectionsCmd.MarkFlagRequired("path")

	storeDeleteCollectionCmd.Flags().String("path", "", "Store root path")
	storeDeleteCollectionCmd.Flags().String("collection", "", "Collection to delete")
	storeDeleteCollectionCmd.Flags().String("passphrase", "", "Passphrase gating the signing key")
	_ = storeDeleteCollectionCmd.MarkFlagRequired("path")

	storeGenKeyCmd.Flags().String("path", "", "Store root path (required for signing keys)")
	storeGenKeyCmd.Flags().String("passphrase", "", "Passphrase to seal the signing key under")

	storeGenCmd.AddCommand(storeGenKeyCmd)

	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeListCollectionsCmd)
	storeCmd.AddCommand(storeDeleteCollectionCmd)
	storeCmd.AddCommand(storeGenCmd)
}
