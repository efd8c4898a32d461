package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/query"
	"github.com/0xterrybit/solana-attestation-service/state"
)

func (a *app) airdropCommand() *cobra.Command {
	var (
		to       string
		lamports uint64
		sf       signerFlags
	)
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Credit lamports to an address (defaults to the signer)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var target address.Address
			if to != "" {
				addr, err := parseAddress("to", to)
				if err != nil {
					return err
				}
				target = addr
			} else {
				kp, err := a.loadSigner(sf)
				if err != nil {
					return fmt.Errorf("missing --to: %w", err)
				}
				target = kp.Address()
			}
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			if err := rt.Airdrop(cmd.Context(), target, lamports); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Credited %d lamports to %s\n", lamports, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().Uint64Var(&lamports, "lamports", 1_000_000_000, "Amount to credit")
	sf.add(cmd)
	return cmd
}

func (a *app) credentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Create credentials and manage their authorized signers",
	}
	cmd.AddCommand(a.credentialCreateCommand(), a.credentialSignersCommand())
	return cmd
}

func parseAddresses(flagName string, items []string) ([]address.Address, error) {
	out := make([]address.Address, 0, len(items))
	for _, s := range items {
		addr, err := parseAddress(flagName, s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (a *app) credentialCreateCommand() *cobra.Command {
	var (
		name       string
		authorized []string
		sf         signerFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a credential whose authority is the signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("missing --name")
			}
			signers, err := parseAddresses("authorized", authorized)
			if err != nil {
				return err
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			ix, cred, err := a.builder().CreateCredential(kp.Address(), kp.Address(),
				instruction.CreateCredentialArgs{Name: []byte(name), Signers: signers})
			if err != nil {
				return err
			}
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, cred)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Credential name")
	cmd.Flags().StringArrayVar(&authorized, "authorized", nil, "Additional authorized signer address (repeatable)")
	sf.add(cmd)
	return cmd
}

func (a *app) credentialSignersCommand() *cobra.Command {
	var (
		credential string
		authorized []string
		sf         signerFlags
	)
	cmd := &cobra.Command{
		Use:   "signers",
		Short: "Replace a credential's authorized signers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := parseAddress("credential", credential)
			if err != nil {
				return err
			}
			signers, err := parseAddresses("authorized", authorized)
			if err != nil {
				return err
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			ix := a.builder().ChangeAuthorizedSigners(kp.Address(), kp.Address(), cred, signers)
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, cred)
			return nil
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Credential address")
	cmd.Flags().StringArrayVar(&authorized, "authorized", nil, "Authorized signer address (repeatable)")
	sf.add(cmd)
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create schemas and change their status or description",
	}
	cmd.AddCommand(
		a.schemaCreateCommand(),
		a.schemaStatusCommand("pause", true),
		a.schemaStatusCommand("resume", false),
		a.schemaDescribeCommand(),
	)
	return cmd
}

// parseFieldDefs splits name:type pairs into parallel names and layout tags.
func parseFieldDefs(items []string) ([]string, []byte, error) {
	names := make([]string, 0, len(items))
	tags := make([]byte, 0, len(items))
	for _, it := range items {
		name, typ, ok := strings.Cut(it, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, nil, fmt.Errorf("expected name:type, got %q", it)
		}
		t, err := layout.ParseType(strings.TrimSpace(typ))
		if err != nil {
			return nil, nil, err
		}
		names = append(names, strings.TrimSpace(name))
		tags = append(tags, byte(t))
	}
	return names, tags, nil
}

func (a *app) schemaCreateCommand() *cobra.Command {
	var (
		credential  string
		name        string
		description string
		fields      []string
		sf          signerFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schema under a credential the signer is authority of",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := parseAddress("credential", credential)
			if err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("missing --name")
			}
			names, tags, err := parseFieldDefs(fields)
			if err != nil {
				return fmt.Errorf("invalid --field: %w", err)
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			ix, schema, err := a.builder().CreateSchema(kp.Address(), kp.Address(), cred, instruction.CreateSchemaArgs{
				Name:        []byte(name),
				Description: []byte(description),
				Layout:      tags,
				FieldNames:  names,
			})
			if err != nil {
				return err
			}
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, schema)
			return nil
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Credential address")
	cmd.Flags().StringVar(&name, "name", "", "Schema name")
	cmd.Flags().StringVar(&description, "description", "", "Schema description")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Field as name:type, e.g. jurisdiction:string (repeatable, ordered)")
	sf.add(cmd)
	return cmd
}

// loadSchemaFlag parses --schema and reads the schema account it names.
func (a *app) loadSchemaFlag(cmd *cobra.Command, raw string) (address.Address, *state.Schema, error) {
	addr, err := parseAddress("schema", raw)
	if err != nil {
		return address.Zero, nil, err
	}
	s, err := a.openStore()
	if err != nil {
		return address.Zero, nil, err
	}
	schema, err := query.GetSchema(cmd.Context(), s, a.cfg.ProgramID, addr)
	if err != nil {
		return address.Zero, nil, err
	}
	return addr, schema, nil
}

func (a *app) schemaStatusCommand(use string, paused bool) *cobra.Command {
	var (
		schemaFlag string
		sf         signerFlags
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Set a schema's paused flag to %t", paused),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, schema, err := a.loadSchemaFlag(cmd, schemaFlag)
			if err != nil {
				return err
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			ix := a.builder().ChangeSchemaStatus(kp.Address(), schema.Credential, addr, paused)
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "Schema address")
	sf.add(cmd)
	return cmd
}

func (a *app) schemaDescribeCommand() *cobra.Command {
	var (
		schemaFlag  string
		description string
		sf          signerFlags
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Replace a schema's description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, schema, err := a.loadSchemaFlag(cmd, schemaFlag)
			if err != nil {
				return err
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			ix := a.builder().ChangeSchemaDescription(kp.Address(), kp.Address(), schema.Credential, addr, []byte(description))
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "Schema address")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	sf.add(cmd)
	return cmd
}

// encodeFields encodes name=value pairs in the schema's field order.
func encodeFields(schema *state.Schema, items []string) ([]byte, error) {
	values := make(map[string]string, len(items))
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected name=value, got %q", it)
		}
		if _, dup := values[k]; dup {
			return nil, fmt.Errorf("duplicate field %q", k)
		}
		values[k] = v
	}
	out := make([]any, len(schema.Layout))
	for i, name := range schema.FieldNames {
		raw, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing field %q", name)
		}
		delete(values, name)
		v, err := layout.ParseValue(layout.Type(schema.Layout[i]), raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[i] = v
	}
	if len(values) != 0 {
		extra := make([]string, 0, len(values))
		for name := range values {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		return nil, fmt.Errorf("schema has no field %s", strings.Join(extra, ", "))
	}
	return layout.EncodeData(schema.Layout, out)
}

func resolveExpiry(expiry int64, ttl time.Duration) (int64, error) {
	switch {
	case expiry != 0 && ttl != 0:
		return 0, fmt.Errorf("--expiry and --ttl are mutually exclusive")
	case expiry != 0:
		return expiry, nil
	case ttl > 0:
		return time.Now().Add(ttl).Unix(), nil
	default:
		return 0, fmt.Errorf("missing --expiry or --ttl")
	}
}

// claimCommand builds "attest" or "request". An attestation is signed by the
// issuer; a request names the issuer with --authority and is signed by the
// requester.
func (a *app) claimCommand(kind instruction.Discriminator) *cobra.Command {
	var (
		schemaFlag string
		recipient  string
		authority  string
		fields     []string
		expiry     int64
		ttl        time.Duration
		sf         signerFlags
	)
	use, short := "attest", "Issue an attestation about --recipient"
	if kind == instruction.CreateRequest {
		use, short = "request", "Draft a claim request for --authority to issue"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schemaAddr, schema, err := a.loadSchemaFlag(cmd, schemaFlag)
			if err != nil {
				return err
			}
			nonce, err := parseAddress("recipient", recipient)
			if err != nil {
				return err
			}
			data, err := encodeFields(schema, fields)
			if err != nil {
				return fmt.Errorf("invalid --field: %w", err)
			}
			exp, err := resolveExpiry(expiry, ttl)
			if err != nil {
				return err
			}
			kp, err := a.loadSigner(sf)
			if err != nil {
				return err
			}
			var (
				ix      ledger.Instruction
				created address.Address
			)
			if kind == instruction.CreateAttestation {
				ix, created, err = a.builder().CreateAttestation(kp.Address(), kp.Address(), schema.Credential, schemaAddr, nonce, data, exp)
			} else {
				issuer, perr := parseAddress("authority", authority)
				if perr != nil {
					return perr
				}
				ix, created, err = a.builder().CreateRequest(kp.Address(), issuer, schema.Credential, schemaAddr, nonce, data, exp)
			}
			if err != nil {
				return err
			}
			receipt, err := a.submit(cmd.Context(), kp, ix)
			if err != nil {
				return err
			}
			a.printReceipt(receipt, created)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&schemaFlag, "schema", "", "Schema address")
	fl.StringVar(&recipient, "recipient", "", "Address the claim is about (the nonce)")
	if kind == instruction.CreateRequest {
		fl.StringVar(&authority, "authority", "", "Issuer address the request is addressed to")
	}
	fl.StringArrayVar(&fields, "field", nil, "Claim field as name=value (repeatable); vectors take comma-separated values")
	fl.Int64Var(&expiry, "expiry", 0, "Expiry as a unix timestamp")
	fl.DurationVar(&ttl, "ttl", 0, "Expiry relative to now, e.g. 720h")
	sf.add(cmd)
	return cmd
}
