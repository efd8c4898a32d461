package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xterrybit/solana-attestation-service/keys"
)

func (a *app) keyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage local signing keys",
	}
	cmd.AddCommand(a.keyInitCommand(), a.keyDeriveCommand(), a.keyExportCommand(), a.keyListCommand())
	return cmd
}

func (a *app) keyInitCommand() *cobra.Command {
	var (
		name    string
		seedHex string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a root key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("missing --name")
			}
			if err := keys.CheckKeyName(name); err != nil {
				return fmt.Errorf("invalid --name: %w", err)
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			var seed []byte
			if seedHex != "" {
				seed, err = keys.ParseSeedHex(seedHex)
				if err != nil {
					return fmt.Errorf("invalid --seed-hex: %w", err)
				}
			} else {
				kp, err := keys.Generate(rand.Reader)
				if err != nil {
					return fmt.Errorf("generate key: %w", err)
				}
				seed = kp.Seed()
			}
			addr, path, err := ks.InitializeRootKey(name, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			fmt.Fprintf(a.out, "Created root key: %s\n", addr)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name (directory under the key store)")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (a *app) keyDeriveCommand() *cobra.Command {
	var (
		from  string
		role  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a role key from a root key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				return fmt.Errorf("missing --from")
			}
			if role == "" {
				return fmt.Errorf("missing --role")
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			addr, path, err := ks.DeriveKeyFromRole(from, role, force)
			if err != nil {
				return fmt.Errorf("derive role key: %w", err)
			}
			fmt.Fprintf(a.out, "Created role key: %s\n", addr)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Root key name")
	cmd.Flags().StringVar(&role, "role", "", "Role identifier (e.g. issuer, payer)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (a *app) keyExportCommand() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the address of a stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("missing --name")
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			addr, err := ks.ExportKey(name, role)
			if err != nil {
				return fmt.Errorf("export key: %w", err)
			}
			fmt.Fprintln(a.out, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringVar(&role, "role", "", "Optional role (if set, exports derived role key)")
	return cmd
}

func (a *app) keyListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			entries, err := ks.ListKeys()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "%s\t%s\n", e.Identifier, e.Address)
				for _, r := range e.Roles {
					fmt.Fprintf(a.out, "  - %s\n", r)
				}
			}
			return nil
		},
	}
}
