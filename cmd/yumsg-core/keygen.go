// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sagecrypto "github.com/0xEodum/NativeLayer/crypto"
)

var (
	keygenKEM       string
	keygenSignature string
	keygenOutput    string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a KEM or signature keypair",
	Long: `Generate a post-quantum keypair for manual testing or seeding a
chat. Exactly one of --kem or --signature selects which algorithm family
to generate.`,
	Example: `  # Generate a Kyber768 KEM keypair
  yumsg-core keygen --kem Kyber768

  # Generate a Dilithium3 signature keypair and save to a file
  yumsg-core keygen --signature Dilithium3 --output identity.json`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenKEM, "kem", "", "KEM algorithm (Kyber512, Kyber768, Kyber1024)")
	keygenCmd.Flags().StringVar(&keygenSignature, "signature", "", "Signature algorithm (Dilithium2, Dilithium3, Dilithium5, FALCON)")
	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "Output file (default: stdout)")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if (keygenKEM == "") == (keygenSignature == "") {
		return fmt.Errorf("exactly one of --kem or --signature must be set")
	}

	engine := sagecrypto.NewEngine()
	var public, private []byte
	var err error
	var algorithm string

	switch {
	case keygenKEM != "":
		algorithm = keygenKEM
		public, private, err = engine.GenerateKEMKeyPair(sagecrypto.KEM(keygenKEM))
	default:
		algorithm = keygenSignature
		public, private, err = engine.GenerateSignatureKeyPair(sagecrypto.Signature(keygenSignature))
	}
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	out := map[string]string{
		"algorithm":   algorithm,
		"public_key":  base64.StdEncoding.EncodeToString(public),
		"private_key": base64.StdEncoding.EncodeToString(private),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if keygenOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(keygenOutput, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Printf("Keypair saved to: %s\n", keygenOutput)
	return nil
}
