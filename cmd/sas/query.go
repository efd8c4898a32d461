package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/api"
	"github.com/0xterrybit/solana-attestation-service/query"
	"github.com/0xterrybit/solana-attestation-service/state"
)

func (a *app) queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read program accounts as JSON",
	}
	cmd.AddCommand(
		a.queryAccountCommand(),
		a.queryCredentialsCommand(),
		a.querySchemasCommand(),
		a.queryAttestationsCommand(),
		a.queryRequestsCommand(),
	)
	return cmd
}

func (a *app) renderer() (*api.Server, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return api.New(s, a.cfg.ProgramID, a.logger), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEntries renders each entry the way the HTTP API does.
func printEntries[T state.Record](cmd *cobra.Command, a *app, entries []query.Entry[T]) error {
	r, err := a.renderer()
	if err != nil {
		return err
	}
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, r.Render(cmd.Context(), e.Address, e.Account, e.Record))
	}
	return a.printJSON(out)
}

func (a *app) queryAccountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show one program account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := address.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
			r, err := a.renderer()
			if err != nil {
				return err
			}
			rec, acct, err := query.Get(cmd.Context(), r.Store, a.cfg.ProgramID, addr)
			if err != nil {
				return err
			}
			return a.printJSON(r.Render(cmd.Context(), addr, acct, rec))
		},
	}
}

func (a *app) queryCredentialsCommand() *cobra.Command {
	var authority string
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "List credentials, optionally by --authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			var entries []query.Entry[*state.Credential]
			if authority != "" {
				auth, perr := parseAddress("authority", authority)
				if perr != nil {
					return perr
				}
				entries, err = query.CredentialsByAuthority(cmd.Context(), s, a.cfg.ProgramID, auth)
			} else {
				entries, err = query.Credentials(cmd.Context(), s, a.cfg.ProgramID)
			}
			if err != nil {
				return err
			}
			return printEntries(cmd, a, entries)
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "Only credentials with this authority")
	return cmd
}

func (a *app) querySchemasCommand() *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the schemas of --credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := parseAddress("credential", credential)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			entries, err := query.SchemasByCredential(cmd.Context(), s, a.cfg.ProgramID, cred)
			if err != nil {
				return err
			}
			return printEntries(cmd, a, entries)
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Credential address")
	return cmd
}

func (a *app) queryAttestationsCommand() *cobra.Command {
	var schemaFlag, recipient string
	cmd := &cobra.Command{
		Use:   "attestations",
		Short: "List attestations under --schema or about --recipient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				entries []query.Entry[*state.Attestation]
				err     error
			)
			switch {
			case recipient != "" && schemaFlag != "":
				return fmt.Errorf("--schema and --recipient are mutually exclusive")
			case recipient != "":
				nonce, perr := parseAddress("recipient", recipient)
				if perr != nil {
					return perr
				}
				s, serr := a.openStore()
				if serr != nil {
					return serr
				}
				entries, err = query.AttestationsAbout(cmd.Context(), s, a.cfg.ProgramID, nonce)
			default:
				addr, schema, serr := a.loadSchemaFlag(cmd, schemaFlag)
				if serr != nil {
					return serr
				}
				entries, err = query.AttestationsBy(cmd.Context(), a.store, a.cfg.ProgramID, schema.Credential, addr)
			}
			if err != nil {
				return err
			}
			return printEntries(cmd, a, entries)
		},
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "Schema address")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient (nonce) address")
	return cmd
}

func (a *app) queryRequestsCommand() *cobra.Command {
	var schemaFlag string
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List pending requests under --schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, schema, err := a.loadSchemaFlag(cmd, schemaFlag)
			if err != nil {
				return err
			}
			entries, err := query.RequestsBy(cmd.Context(), a.store, a.cfg.ProgramID, schema.Credential, addr)
			if err != nil {
				return err
			}
			return printEntries(cmd, a, entries)
		},
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "Schema address")
	return cmd
}
