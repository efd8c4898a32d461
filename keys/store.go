package keys

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// KeyStore keeps keypair files on the local filesystem.
//
// Layout: <dir>/<name>/id.json for the root key and
// <dir>/<name>/roles/<role>.json for keys derived from it. Files hold the
// 64-byte keypair (seed then public key) as a JSON array of numbers, the
// format Solana tooling reads and writes.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	Address    string
	Roles      []string
}

const (
	rootFile = "id.json"
	rolesDir = "roles"
	keyExt   = ".json"
)

func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sas", "keys"), nil
}

// CreateKeyStore opens the store at directory, or at GetDefaultDirectory
// when directory is empty. Nothing is created until a key is written.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		if directory, err = GetDefaultDirectory(); err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) path(name, role string) string {
	if role == "" {
		return filepath.Join(ks.Directory, name, rootFile)
	}
	return filepath.Join(ks.Directory, name, rolesDir, role+keyExt)
}

func checkIdent(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", c, kind)
	}
	return nil
}

func CheckKeyName(identifier string) error { return checkIdent("identifier", identifier) }
func CheckRole(role string) error          { return checkIdent("role", role) }

// ParseSeedHex decodes a 32-byte seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

// MarshalKeypairJSON encodes kp as a 64-number JSON array.
func MarshalKeypairJSON(kp *Keypair) ([]byte, error) {
	pub := kp.Address()
	raw := append(kp.Seed(), pub[:]...)
	nums := make([]int, len(raw))
	for i, b := range raw {
		nums[i] = int(b)
	}
	return json.Marshal(nums)
}

// UnmarshalKeypairJSON decodes a 64-number JSON array and checks that its
// public half matches the seed.
func UnmarshalKeypairJSON(b []byte) (*Keypair, error) {
	var nums []int
	if err := json.Unmarshal(b, &nums); err != nil {
		return nil, fmt.Errorf("keypair file: %w", err)
	}
	if len(nums) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file: expected %d bytes, got %d", ed25519.PrivateKeySize, len(nums))
	}
	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("keypair file: byte %d out of range: %d", i, n)
		}
		raw[i] = byte(n)
	}
	kp, err := FromSeed(raw[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	pub := kp.Address()
	if string(pub[:]) != string(raw[ed25519.SeedSize:]) {
		return nil, errors.New("keypair file: public key does not match seed")
	}
	return kp, nil
}

// ReadKeyFile loads a keypair file. A file holding a hex seed is accepted
// as well.
func ReadKeyFile(path string) (*Keypair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(string(b)); !strings.HasPrefix(trimmed, "[") {
		seed, err := ParseSeedHex(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return FromSeed(seed)
	}
	return UnmarshalKeypairJSON(b)
}

func writeKeyFile(path string, kp *Keypair, overwrite bool) error {
	b, err := MarshalKeypairJSON(kp)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (ks *KeyStore) read(name, role string) (*Keypair, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
	}
	return ReadKeyFile(ks.path(name, role))
}

// InitializeRootKey stores seed as name's root key and returns its address.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (addr string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	kp, err := FromSeed(seed)
	if err != nil {
		return "", "", err
	}
	filePath = ks.path(name, "")
	if err := writeKeyFile(filePath, kp, overwrite); err != nil {
		return "", "", err
	}
	return kp.Address().String(), filePath, nil
}

// DeriveKeyFromRole derives and stores a role key under from and returns its address.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (addr string, filePath string, err error) {
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	root, err := ks.read(from, "")
	if err != nil {
		return "", "", err
	}
	seed, err := DeriveRoleSeed(root.Seed(), role)
	if err != nil {
		return "", "", err
	}
	kp, err := FromSeed(seed)
	if err != nil {
		return "", "", err
	}
	filePath = ks.path(from, role)
	if err := writeKeyFile(filePath, kp, overwrite); err != nil {
		return "", "", err
	}
	return kp.Address().String(), filePath, nil
}

// ExportKey returns the base58 address of a stored key.
func (ks *KeyStore) ExportKey(name, role string) (string, error) {
	kp, err := ks.read(name, role)
	if err != nil {
		return "", err
	}
	return kp.Address().String(), nil
}

// LoadKeypair resolves a signer from, in order: a hex seed, a key file, or a
// stored name (and optional role).
func (ks *KeyStore) LoadKeypair(seedHex, name, role, keyFile string) (*Keypair, error) {
	switch {
	case seedHex != "":
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		return FromSeed(seed)
	case keyFile != "":
		return ReadKeyFile(keyFile)
	case name != "":
		return ks.read(name, role)
	default:
		return nil, errors.New("no signer provided")
	}
}

// ListKeys returns every stored name with its root address and role names,
// sorted.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	dirs, err := os.ReadDir(ks.Directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []KeyEntry
	for _, d := range dirs {
		if !d.IsDir() || CheckKeyName(d.Name()) != nil {
			continue
		}
		e := KeyEntry{Identifier: d.Name()}
		if kp, err := ks.read(d.Name(), ""); err == nil {
			e.Address = kp.Address().String()
		}
		roles, _ := os.ReadDir(filepath.Join(ks.Directory, d.Name(), rolesDir))
		for _, r := range roles {
			if name, ok := strings.CutSuffix(r.Name(), keyExt); ok && !r.IsDir() {
				e.Roles = append(e.Roles, name)
			}
		}
		sort.Strings(e.Roles)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}
