package main

import (
	"github.com/sentineldb/sentinel/pkg/document"
	"github.com/sentineldb/sentinel/pkg/store"
	"github.com/spf13/cobra"
)

// openStore opens the store rooted at path, applying the --passphrase
// flag if the command declares one. Every leaf command is responsible
// for calling store.Close via defer once it has what it needs.
func openStore(cmd *cobra.Command, path string) (*store.Store, error) {
	passphrase, _ := cmd.Flags().GetString("passphrase")
	return store.Open(path, store.Config{Passphrase: passphrase})
}

// addVerificationFlags registers the WAL verification-mode flag set
// shared by collection get and collection query.
func addVerificationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("verify-hash", true, "Verify the content hash on read")
	cmd.Flags().Bool("verify-signature", true, "Verify the detached signature on read")
	cmd.Flags().String("hash-mode", "strict", "Hash verification failure mode (strict|warn|silent)")
	cmd.Flags().String("signature-mode", "strict", "Signature verification failure mode (strict|warn|silent)")
	cmd.Flags().String("empty-sig-mode", "warn", "Missing-signature failure mode (strict|warn|silent)")
}

// verificationOptionsFromFlags parses the flag set addVerificationFlags
// registers into a document.VerificationOptions.
func verificationOptionsFromFlags(cmd *cobra.Command) document.VerificationOptions {
	verifyHash, _ := cmd.Flags().GetBool("verify-hash")
	verifySig, _ := cmd.Flags().GetBool("verify-signature")
	hashMode, _ := cmd.Flags().GetString("hash-mode")
	sigMode, _ := cmd.Flags().GetString("signature-mode")
	emptySigMode, _ := cmd.Flags().GetString("empty-sig-mode")

	return document.VerificationOptions{
		VerifyHash:         verifyHash,
		VerifySignature:    verifySig,
		HashMode:           document.Mode(hashMode),
		SignatureMode:      document.Mode(sigMode),
		EmptySignatureMode: document.Mode(emptySigMode),
	}
}
