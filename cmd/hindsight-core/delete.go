package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteForce bool

func newDeleteBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-bank <bank-id>",
		Short: "Delete a bank and everything it contains",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteBank,
	}
	cmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func runDeleteBank(cmd *cobra.Command, args []string) error {
	bankID := args[0]

	if !deleteForce {
		fmt.Printf("Delete bank %q and all its facts, entities, and links? [y/N]: ", bankID)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	return withDeps(func(d *Deps) error {
		if err := d.BankHandler.Delete(cmd.Context(), bankID); err != nil {
			return err
		}
		fmt.Printf("Deleted bank %s\n", bankID)
		return nil
	})
}
