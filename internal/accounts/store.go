// Package accounts persists accounts and their issued addresses, and is the
// single allocator of account and address indices.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Klingon-tech/zwalletd/internal/log"
	"github.com/Klingon-tech/zwalletd/internal/storage"
	"github.com/Klingon-tech/zwalletd/internal/wallet"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

var (
	// ErrUnknownAccount is returned for an account index that was never created.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrNotFound is returned for an address that was never issued.
	ErrNotFound = errors.New("address not found")
	// ErrSeedMismatch is returned by Open when the index was built from
	// different keys than the deriver holds.
	ErrSeedMismatch = errors.New("account index belongs to another wallet")
)

// DefaultCacheSize is the number of address records kept in memory.
const DefaultCacheSize = 4096

// KeyDeriver derives account and address key material.
type KeyDeriver interface {
	// Fingerprint identifies the key tree. It is stored with the index
	// and must not change between opens.
	Fingerprint() string
	DeriveAccount(account uint32) (*wallet.AccountKeys, error)
	DeriveAddressKeys(acct *wallet.AccountKeys, index uint32, family types.Family) (*types.AddressKeys, error)
}

// AddressEncoder turns key material into address strings.
type AddressEncoder interface {
	Receivers(keys *types.AddressKeys) (*types.Receivers, error)
	EncodeReceivers(family types.Family, r *types.Receivers) (string, error)
	EncodeTransparent(p2pkh []byte) (string, error)
}

// Observer is notified after records are durably committed.
type Observer interface {
	AccountCreated(account uint32)
	AddressIssued(account uint32, family types.Family)
}

// Options configures a Store.
type Options struct {
	CacheSize int
	Observer  Observer
}

type addrKey struct {
	account uint32
	index   uint32
}

type accountState struct {
	// mu serializes address allocation within the account.
	mu   sync.Mutex
	info Account
	keys *wallet.AccountKeys
	last uint32
}

// Store is the durable account and address index. Account creation is
// serialized wallet-wide; address issuance is serialized per account.
type Store struct {
	db       storage.DB
	deriver  KeyDeriver
	encoder  AddressEncoder
	observer Observer
	cache    *lru.Cache[addrKey, *Address]

	createMu sync.Mutex

	mu       sync.RWMutex
	accounts map[uint32]*accountState
	next     uint32
	// bind is set while the fingerprint still has to be written with the
	// first account.
	bind bool
}

// Open loads the account index from db.
func Open(db storage.DB, deriver KeyDeriver, encoder AddressEncoder, opts Options) (*Store, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[addrKey, *Address](size)
	if err != nil {
		return nil, fmt.Errorf("create address cache: %w", err)
	}

	s := &Store{
		db:       db,
		deriver:  deriver,
		encoder:  encoder,
		observer: opts.Observer,
		cache:    cache,
		accounts: make(map[uint32]*accountState),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := s.checkFingerprint(); err != nil {
		return nil, err
	}
	log.Accounts.Info().
		Int("accounts", len(s.accounts)).
		Uint32("next_account", s.next).
		Msg("Account index loaded")
	return s, nil
}

func (s *Store) load() error {
	raw, err := s.db.Get(nextAccountKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.next = 0
	case err != nil:
		return fmt.Errorf("load next account: %w", err)
	default:
		next, ok := parseU32(raw)
		if !ok {
			return fmt.Errorf("load next account: corrupt value %x", raw)
		}
		s.next = next
	}

	err = s.db.ForEach(accountPrefix, func(_, value []byte) error {
		var a Account
		if err := json.Unmarshal(value, &a); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		s.accounts[a.Index] = &accountState{info: a}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	for idx, st := range s.accounts {
		if idx >= s.next {
			return fmt.Errorf("account %d is beyond next account %d", idx, s.next)
		}
		raw, err := s.db.Get(counterKey(idx))
		if err != nil {
			return fmt.Errorf("load counter of account %d: %w", idx, err)
		}
		last, ok := parseU32(raw)
		if !ok {
			return fmt.Errorf("load counter of account %d: corrupt value %x", idx, raw)
		}
		st.last = last
	}
	return nil
}

// checkFingerprint compares the stored key fingerprint with the deriver's.
// An index without one adopts the deriver's on its first account, or
// immediately when accounts predate the fingerprint.
func (s *Store) checkFingerprint() error {
	want := s.deriver.Fingerprint()
	raw, err := s.db.Get(fingerprintKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if s.next == 0 {
			s.bind = true
			return nil
		}
		if err := s.db.Put(fingerprintKey, []byte(want)); err != nil {
			return fmt.Errorf("store fingerprint: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load fingerprint: %w", err)
	}
	if string(raw) != want {
		return fmt.Errorf("%w: index fingerprint %s, wallet fingerprint %s", ErrSeedMismatch, raw, want)
	}
	return nil
}

// CreateAccount allocates the next account index, derives its primary
// address and persists both in one commit.
func (s *Store) CreateAccount(label string) (*Account, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.RLock()
	idx := s.next
	s.mu.RUnlock()

	keys, err := s.deriver.DeriveAccount(idx)
	if err != nil {
		return nil, fmt.Errorf("derive account %d: %w", idx, err)
	}
	rec, err := s.buildAddress(keys, 0, types.FamilyUnified, label)
	if err != nil {
		return nil, err
	}

	acct := Account{
		Index:     idx,
		Label:     label,
		Address:   rec.Address,
		CreatedAt: rec.CreatedAt,
	}
	acctJSON, err := json.Marshal(&acct)
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Discard()
	if err := batch.Put(accountKey(idx), acctJSON); err != nil {
		return nil, err
	}
	if err := batch.Put(counterKey(idx), be32(0)); err != nil {
		return nil, err
	}
	if err := batch.Put(nextAccountKey, be32(idx+1)); err != nil {
		return nil, err
	}
	if s.bind {
		if err := batch.Put(fingerprintKey, []byte(s.deriver.Fingerprint())); err != nil {
			return nil, err
		}
	}
	if err := putAddress(batch, rec); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("persist account %d: %w", idx, err)
	}

	s.mu.Lock()
	s.accounts[idx] = &accountState{info: acct, keys: keys}
	s.next = idx + 1
	s.bind = false
	s.mu.Unlock()
	s.cache.Add(addrKey{idx, 0}, rec)

	if s.observer != nil {
		s.observer.AccountCreated(idx)
	}
	log.Accounts.Info().Uint32("account", idx).Str("label", label).Msg("Account created")

	out := acct
	return &out, nil
}

// EnsureDefaultAccount creates account 0 when the store is empty.
// It reports whether an account was created.
func (s *Store) EnsureDefaultAccount(label string) (*Account, bool, error) {
	if a, err := s.Account(0); err == nil {
		return a, false, nil
	}
	a, err := s.CreateAccount(label)
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// IssueAddress allocates the next address index of account and persists the
// derived address. The counter only advances once the record is committed,
// so a failed commit hands the same index to the next caller.
func (s *Store) IssueAddress(account uint32, family types.Family, label string) (*Address, error) {
	st, err := s.state(account)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.last >= wallet.MaxIndex {
		return nil, fmt.Errorf("%w: account %d has exhausted its address indices", wallet.ErrInvalidIndex, account)
	}
	idx := st.last + 1

	if st.keys == nil {
		keys, err := s.deriver.DeriveAccount(account)
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", account, err)
		}
		st.keys = keys
	}

	rec, err := s.buildAddress(st.keys, idx, family, label)
	if err != nil {
		return nil, err
	}

	batch := s.db.NewBatch()
	defer batch.Discard()
	if err := batch.Put(counterKey(account), be32(idx)); err != nil {
		return nil, err
	}
	if err := putAddress(batch, rec); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("persist address %d/%d: %w", account, idx, err)
	}

	st.last = idx
	s.cache.Add(addrKey{account, idx}, rec)

	if s.observer != nil {
		s.observer.AddressIssued(account, family)
	}
	log.Accounts.Debug().
		Uint32("account", account).
		Uint32("index", idx).
		Str("family", family.String()).
		Msg("Address issued")

	out := *rec
	return &out, nil
}

// GetAddress returns the issued address at (account, index). Index 0 is the
// account's primary address.
func (s *Store) GetAddress(account, index uint32) (*Address, error) {
	if _, err := s.state(account); err != nil {
		return nil, err
	}
	key := addrKey{account, index}
	if rec, ok := s.cache.Get(key); ok {
		out := *rec
		return &out, nil
	}

	raw, err := s.db.Get(addressKey(account, index))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %d index %d", ErrNotFound, account, index)
	}
	if err != nil {
		return nil, fmt.Errorf("load address %d/%d: %w", account, index, err)
	}
	var rec Address
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode address %d/%d: %w", account, index, err)
	}
	s.cache.Add(key, &rec)
	out := rec
	return &out, nil
}

// FindAddress resolves an address string, or one of its receiver strings,
// to the issued address record.
func (s *Store) FindAddress(addr string) (*Address, error) {
	raw, err := s.db.Get(reverseKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup address: %w", err)
	}
	account, index, ok := parseLocation(raw)
	if !ok {
		return nil, fmt.Errorf("lookup address: corrupt location %x", raw)
	}
	return s.GetAddress(account, index)
}

// Account returns the account record.
func (s *Store) Account(account uint32) (*Account, error) {
	st, err := s.state(account)
	if err != nil {
		return nil, err
	}
	out := st.info
	return &out, nil
}

// ListAccounts returns every account in index order.
func (s *Store) ListAccounts() []AccountInfo {
	s.mu.RLock()
	states := make([]*accountState, 0, len(s.accounts))
	for _, st := range s.accounts {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]AccountInfo, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, AccountInfo{Account: st.info, LastIndex: st.last})
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ListAddresses returns every address of account in index order, the
// primary address first.
func (s *Store) ListAddresses(account uint32) ([]*Address, error) {
	if _, err := s.state(account); err != nil {
		return nil, err
	}
	var out []*Address
	err := s.db.ForEach(join(addressPrefix, be32(account)), func(_, value []byte) error {
		var rec Address
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode address: %w", err)
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list addresses of account %d: %w", account, err)
	}
	return out, nil
}

// AccountCount returns the number of accounts.
func (s *Store) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// AddressCount returns the number of issued addresses across all accounts,
// primary addresses included.
func (s *Store) AddressCount() int {
	var n int
	for _, a := range s.ListAccounts() {
		n += int(a.LastIndex) + 1
	}
	return n
}

func (s *Store) state(account uint32) (*accountState, error) {
	s.mu.RLock()
	st, ok := s.accounts[account]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccount, account)
	}
	return st, nil
}

// buildAddress derives and encodes the address record for (keys, index).
func (s *Store) buildAddress(keys *wallet.AccountKeys, index uint32, family types.Family, label string) (*Address, error) {
	ak, err := s.deriver.DeriveAddressKeys(keys, index, family)
	if err != nil {
		return nil, fmt.Errorf("derive address %d/%d: %w", keys.Index, index, err)
	}
	r, err := s.encoder.Receivers(ak)
	if err != nil {
		return nil, fmt.Errorf("encode address %d/%d: %w", keys.Index, index, err)
	}
	encoded, err := s.encoder.EncodeReceivers(family, r)
	if err != nil {
		return nil, fmt.Errorf("encode address %d/%d: %w", keys.Index, index, err)
	}

	rec := &Address{
		Account:          keys.Index,
		Index:            index,
		Family:           family,
		Address:          encoded,
		DiversifierIndex: ak.DiversifierIndex,
		Label:            label,
		CreatedAt:        time.Now().UTC(),
	}
	if family == types.FamilyUnified {
		rec.Transparent, err = s.encoder.EncodeTransparent(r.P2PKH)
		if err != nil {
			return nil, fmt.Errorf("encode transparent receiver %d/%d: %w", keys.Index, index, err)
		}
		rec.Sapling, err = s.encoder.EncodeReceivers(types.FamilySapling, &types.Receivers{Sapling: r.Sapling})
		if err != nil {
			return nil, fmt.Errorf("encode sapling receiver %d/%d: %w", keys.Index, index, err)
		}
	}
	return rec, nil
}

func putAddress(batch storage.Batch, rec *Address) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	if err := batch.Put(addressKey(rec.Account, rec.Index), data); err != nil {
		return err
	}
	loc := location(rec.Account, rec.Index)
	for _, s := range []string{rec.Address, rec.Transparent, rec.Sapling} {
		if s == "" {
			continue
		}
		if err := batch.Put(reverseKey(s), loc); err != nil {
			return err
		}
	}
	return nil
}
