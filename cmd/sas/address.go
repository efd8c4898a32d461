package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xterrybit/solana-attestation-service/address"
)

// addressFlags holds the seed inputs shared by the address subcommands.
type addressFlags struct {
	authority  string
	credential string
	schema     string
	signer     string
	nonce      string
	name       string
}

func (a *app) addressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive program account addresses without touching the store",
	}
	cmd.AddCommand(
		a.deriveCommand("credential", "Derive a credential address from --authority and --name",
			func(f addressFlags) (address.Address, uint8, error) {
				auth, err := parseAddress("authority", f.authority)
				if err != nil {
					return address.Zero, 0, err
				}
				return address.CredentialAddress(a.cfg.ProgramID, auth, []byte(f.name))
			}),
		a.deriveCommand("schema", "Derive a schema address from --credential and --name",
			func(f addressFlags) (address.Address, uint8, error) {
				cred, err := parseAddress("credential", f.credential)
				if err != nil {
					return address.Zero, 0, err
				}
				return address.SchemaAddress(a.cfg.ProgramID, cred, []byte(f.name))
			}),
		a.deriveCommand("attestation", "Derive an attestation address from --credential, --signer, --schema and --nonce",
			func(f addressFlags) (address.Address, uint8, error) {
				cred, err := parseAddress("credential", f.credential)
				if err != nil {
					return address.Zero, 0, err
				}
				signer, err := parseAddress("signer", f.signer)
				if err != nil {
					return address.Zero, 0, err
				}
				schema, err := parseAddress("schema", f.schema)
				if err != nil {
					return address.Zero, 0, err
				}
				nonce, err := parseAddress("nonce", f.nonce)
				if err != nil {
					return address.Zero, 0, err
				}
				return address.AttestationAddress(a.cfg.ProgramID, cred, signer, schema, nonce)
			}),
		a.deriveCommand("request", "Derive a request address from --credential, --schema and --nonce",
			func(f addressFlags) (address.Address, uint8, error) {
				cred, err := parseAddress("credential", f.credential)
				if err != nil {
					return address.Zero, 0, err
				}
				schema, err := parseAddress("schema", f.schema)
				if err != nil {
					return address.Zero, 0, err
				}
				nonce, err := parseAddress("nonce", f.nonce)
				if err != nil {
					return address.Zero, 0, err
				}
				return address.RequestAddress(a.cfg.ProgramID, cred, schema, nonce)
			}),
	)
	return cmd
}

func (a *app) deriveCommand(use, short string, derive func(addressFlags) (address.Address, uint8, error)) *cobra.Command {
	var f addressFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, bump, err := derive(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\t%d\n", addr, bump)
			return nil
		},
	}
	fl := cmd.Flags()
	switch use {
	case "credential":
		fl.StringVar(&f.authority, "authority", "", "Credential authority address")
		fl.StringVar(&f.name, "name", "", "Credential name")
	case "schema":
		fl.StringVar(&f.credential, "credential", "", "Credential address")
		fl.StringVar(&f.name, "name", "", "Schema name")
	case "attestation":
		fl.StringVar(&f.credential, "credential", "", "Credential address")
		fl.StringVar(&f.signer, "signer", "", "Issuing signer address")
		fl.StringVar(&f.schema, "schema", "", "Schema address")
		fl.StringVar(&f.nonce, "nonce", "", "Recipient nonce address")
	case "request":
		fl.StringVar(&f.credential, "credential", "", "Credential address")
		fl.StringVar(&f.schema, "schema", "", "Schema address")
		fl.StringVar(&f.nonce, "nonce", "", "Recipient nonce address")
	}
	return cmd
}
