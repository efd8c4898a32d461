// Package api serves registry records over a read-only HTTP JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/query"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/state"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// Server answers queries against one program's accounts.
type Server struct {
	Store     storage.Store
	ProgramID address.Address
	// Now decides whether claims are expired. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func New(store storage.Store, programID address.Address, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Store: store, ProgramID: programID, Now: time.Now, Logger: logger}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts/{address}", s.getAccount)
		r.Get("/credentials", s.listCredentials)
		r.Get("/credentials/{address}/schemas", s.listSchemas)
		r.Get("/schemas/{address}/attestations", s.listAttestations)
		r.Get("/schemas/{address}/requests", s.listRequests)
		r.Get("/recipients/{address}/attestations", s.listAttestationsAbout)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	rec, acct, err := query.Get(r.Context(), s.Store, s.ProgramID, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Render(r.Context(), addr, acct, rec))
}

// Render returns the JSON view of rec held in acct at addr.
func (s *Server) Render(ctx context.Context, addr address.Address, acct storage.Account, rec state.Record) any {
	return newAccountJSON(addr, acct, s.view(ctx, rec), rec.Discriminator())
}

// view renders rec, resolving the schema of claims so their data decodes.
func (s *Server) view(ctx context.Context, rec state.Record) any {
	now := s.now()
	switch v := rec.(type) {
	case *state.Credential:
		return credentialView(v)
	case *state.Schema:
		return schemaView(v)
	case *state.Attestation:
		schema, _ := query.GetSchema(ctx, s.Store, s.ProgramID, v.Schema)
		return claimView(v.Nonce, v.Credential, v.Schema, v.Signer, v.Data, v.Expiry, v.IsExpired(now), schema)
	case *state.Request:
		schema, _ := query.GetSchema(ctx, s.Store, s.ProgramID, v.Schema)
		return claimView(v.Nonce, v.Credential, v.Schema, v.Signer, v.Data, v.Expiry, v.IsExpired(now), schema)
	}
	return nil
}

func (s *Server) listCredentials(w http.ResponseWriter, r *http.Request) {
	var (
		entries []query.Entry[*state.Credential]
		err     error
	)
	if raw := r.URL.Query().Get("authority"); raw != "" {
		authority, perr := address.Parse(raw)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: perr.Error()})
			return
		}
		entries, err = query.CredentialsByAuthority(r.Context(), s.Store, s.ProgramID, authority)
	} else {
		entries, err = query.Credentials(r.Context(), s.Store, s.ProgramID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAccountJSON(e.Address, e.Account, credentialView(e.Record), state.KindCredential))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSchemas(w http.ResponseWriter, r *http.Request) {
	cred, ok := pathAddress(w, r)
	if !ok {
		return
	}
	entries, err := query.SchemasByCredential(r.Context(), s.Store, s.ProgramID, cred)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, newAccountJSON(e.Address, e.Account, schemaView(e.Record), state.KindSchema))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAttestations(w http.ResponseWriter, r *http.Request) {
	schemaAddr, schema, ok := s.pathSchema(w, r)
	if !ok {
		return
	}
	entries, err := query.AttestationsBy(r.Context(), s.Store, s.ProgramID, schema.Credential, schemaAddr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.now()
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		a := e.Record
		v := claimView(a.Nonce, a.Credential, a.Schema, a.Signer, a.Data, a.Expiry, a.IsExpired(now), schema)
		out = append(out, newAccountJSON(e.Address, e.Account, v, state.KindAttestation))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	schemaAddr, schema, ok := s.pathSchema(w, r)
	if !ok {
		return
	}
	entries, err := query.RequestsBy(r.Context(), s.Store, s.ProgramID, schema.Credential, schemaAddr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.now()
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		q := e.Record
		v := claimView(q.Nonce, q.Credential, q.Schema, q.Signer, q.Data, q.Expiry, q.IsExpired(now), schema)
		out = append(out, newAccountJSON(e.Address, e.Account, v, state.KindRequest))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAttestationsAbout(w http.ResponseWriter, r *http.Request) {
	recipient, ok := pathAddress(w, r)
	if !ok {
		return
	}
	entries, err := query.AttestationsAbout(r.Context(), s.Store, s.ProgramID, recipient)
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.now()
	schemas := map[address.Address]*state.Schema{}
	out := make([]accountJSON, 0, len(entries))
	for _, e := range entries {
		a := e.Record
		schema, seen := schemas[a.Schema]
		if !seen {
			schema, _ = query.GetSchema(r.Context(), s.Store, s.ProgramID, a.Schema)
			schemas[a.Schema] = schema
		}
		v := claimView(a.Nonce, a.Credential, a.Schema, a.Signer, a.Data, a.Expiry, a.IsExpired(now), schema)
		out = append(out, newAccountJSON(e.Address, e.Account, v, state.KindAttestation))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) pathSchema(w http.ResponseWriter, r *http.Request) (address.Address, *state.Schema, bool) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return addr, nil, false
	}
	schema, err := query.GetSchema(r.Context(), s.Store, s.ProgramID, addr)
	if err != nil {
		s.writeError(w, err)
		return addr, nil, false
	}
	return addr, schema, true
}

func pathAddress(w http.ResponseWriter, r *http.Request) (address.Address, bool) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return addr, false
	}
	return addr, true
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := errorJSON{Error: err.Error(), Code: sas.Code(err)}
	var se *sas.Error
	if errors.As(err, &se) {
		body.Kind = string(se.Kind)
	}
	status := http.StatusInternalServerError
	switch {
	case storage.IsNotFound(err):
		status = http.StatusNotFound
	case sas.IsKind(err, sas.KindDecode), sas.IsKind(err, sas.KindInvalidAccounts):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("query failed", "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
