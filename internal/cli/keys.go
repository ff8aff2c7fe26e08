package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goLoRaRouter/internal/keys"
)

var (
	keysOut string
	keysIn  string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the client keypair",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new keypair and write it to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keys.Generate()
		if err != nil {
			return err
		}
		if err := kp.Save(keysOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "public_key: %s\n", kp.PublicKey())
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public key of a keypair file",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keys.Load(keysIn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "public_key: %s\n", kp.PublicKey())
		return nil
	},
}

func init() {
	keysGenerateCmd.Flags().StringVar(&keysOut, "out", "data/keypair", "keypair file to write")
	keysShowCmd.Flags().StringVar(&keysIn, "in", "data/keypair", "keypair file to read")

	keysCmd.AddCommand(keysGenerateCmd, keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}
