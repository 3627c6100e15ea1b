package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/zwalletd/internal/accounts"
	"github.com/Klingon-tech/zwalletd/internal/chainsync"
	"github.com/Klingon-tech/zwalletd/internal/wallet"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// LogicalActionFee is the fee of one logical action in zatoshis.
const LogicalActionFee = 5000

// estimatedActions is the action count of a typical wallet transaction:
// two transparent and two shielded inputs or outputs.
const estimatedActions = 4

// errorFrom maps a domain error to its API error. Unknown errors are logged
// and reported as internal.
func errorFrom(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, accounts.ErrUnknownAccount), errors.Is(err, accounts.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, wallet.ErrInvalidIndex):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, wallet.ErrWatchOnly):
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, chainsync.ErrNodeUnavailable):
		return &Error{Code: CodeNodeUnavailable, Message: err.Error()}
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("API call failed")
		return &Error{Code: CodeInternalError, Message: "internal error"}
	}
}

func addressResult(a *accounts.Address) AddressResult {
	return AddressResult{
		Address:          a.Address,
		AddressIndex:     a.Index,
		AccountIndex:     a.Account,
		Family:           a.Family,
		Label:            a.Label,
		Transparent:      a.Transparent,
		Sapling:          a.Sapling,
		DiversifierIndex: a.DiversifierIndex,
	}
}

func (s *Server) handleSyncInfo(ctx context.Context, _ json.RawMessage) (interface{}, *Error) {
	if s.sync == nil {
		return nil, &Error{Code: CodeNodeUnavailable, Message: chainsync.ErrNodeUnavailable.Error()}
	}
	snap, err := s.sync.GetSyncStatus(ctx)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	return &SyncInfoResult{
		Height:       snap.Height,
		TargetHeight: snap.TargetHeight,
		Synced:       snap.Synced,
	}, nil
}

func (s *Server) handleCreateAccount(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p CreateAccountParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	acct, err := s.store.CreateAccount(p.Label)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	return &CreateAccountResult{
		AccountIndex: acct.Index,
		Address:      acct.Address,
	}, nil
}

func (s *Server) handleCreateAddress(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p CreateAddressParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	if p.AccountIndex == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "account_index is required"}
	}
	family, err := types.ParseFamily(p.Family)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}

	addr, err := s.store.IssueAddress(*p.AccountIndex, family, p.Label)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	return &CreateAddressResult{
		Address:      addr.Address,
		AddressIndex: addr.Index,
		Family:       addr.Family,
	}, nil
}

func (s *Server) handleGetAddress(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p GetAddressParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	if p.AccountIndex == nil || p.AddressIndex == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "account_index and address_index are required"}
	}

	addr, err := s.store.GetAddress(*p.AccountIndex, *p.AddressIndex)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	res := addressResult(addr)
	return &res, nil
}

func (s *Server) handleGetAddresses(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p ListAddressesParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	if p.AccountIndex == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "account_index is required"}
	}

	addrs, err := s.store.ListAddresses(*p.AccountIndex)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	res := &ListAddressesResult{Addresses: make([]AddressResult, 0, len(addrs))}
	for _, a := range addrs {
		res.Addresses = append(res.Addresses, addressResult(a))
	}
	return res, nil
}

func (s *Server) handleGetAccounts(_ context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p GetAccountsParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}

	infos := s.store.ListAccounts()
	res := &GetAccountsResult{SubaddressAccounts: make([]AccountResult, 0, len(infos))}
	for _, a := range infos {
		if p.Tag != "" && a.Label != p.Tag {
			continue
		}
		res.SubaddressAccounts = append(res.SubaddressAccounts, AccountResult{
			AccountIndex: a.Index,
			Label:        a.Label,
			BaseAddress:  a.Address,
			AddressCount: a.LastIndex + 1,
		})
	}
	return res, nil
}

func (s *Server) handleValidateAddress(ctx context.Context, raw json.RawMessage) (interface{}, *Error) {
	var p AddressParam
	if err := parseParams(raw, &p); err != nil {
		return nil, err
	}
	p.Address = strings.TrimSpace(p.Address)
	if p.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}

	decoded, err := s.decoder.Decode(p.Address)
	if err != nil {
		return &ValidateAddressResult{Valid: false, Error: err.Error()}, nil
	}
	res := &ValidateAddressResult{
		Valid:   true,
		Kind:    string(decoded.Kind),
		Family:  decoded.Family().String(),
		Network: s.decoder.Network().String(),
	}

	// Bech32 strings are case-insensitive and stored in lower case.
	lookup := p.Address
	if decoded.Kind != address.KindTransparent {
		lookup = strings.ToLower(lookup)
	}
	owned, err := s.store.FindAddress(lookup)
	switch {
	case err == nil:
		res.IsMine = true
		res.AccountIndex = &owned.Account
		res.AddressIndex = &owned.Index
	case errors.Is(err, accounts.ErrNotFound):
	default:
		return nil, errorFrom(ctx, err)
	}
	return res, nil
}

func (s *Server) handleGetHeight(ctx context.Context, _ json.RawMessage) (interface{}, *Error) {
	if s.sync == nil {
		return nil, &Error{Code: CodeNodeUnavailable, Message: chainsync.ErrNodeUnavailable.Error()}
	}
	h, err := s.sync.Height(ctx)
	if err != nil {
		return nil, errorFrom(ctx, err)
	}
	return &HeightResult{Height: h}, nil
}

func (s *Server) handleGetFeeEstimate(context.Context, json.RawMessage) (interface{}, *Error) {
	return &FeeEstimateResult{Fee: estimatedActions * LogicalActionFee}, nil
}
