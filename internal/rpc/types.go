package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternalError   = -32603
	CodeNotFound        = -32000
	CodeNodeUnavailable = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HTTPStatus returns the status used for e on the REST endpoints.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeNodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RESTError is the body of a failed REST call.
type RESTError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ── Param types ─────────────────────────────────────────────────────────

// CreateAccountParam is used by create_account.
type CreateAccountParam struct {
	Label string `json:"label,omitempty"`
}

// CreateAddressParam is used by create_address.
type CreateAddressParam struct {
	AccountIndex *uint32 `json:"account_index"`
	Family       string  `json:"family,omitempty"`
	Label        string  `json:"label,omitempty"`
}

// GetAddressParam is used by get_address.
type GetAddressParam struct {
	AccountIndex *uint32 `json:"account_index"`
	AddressIndex *uint32 `json:"address_index"`
}

// GetAccountsParam is used by get_accounts. A non-empty tag filters by label.
type GetAccountsParam struct {
	Tag string `json:"tag,omitempty"`
}

// ListAddressesParam is used by get_addresses.
type ListAddressesParam struct {
	AccountIndex *uint32 `json:"account_index"`
}

// AddressParam is used by validate_address.
type AddressParam struct {
	Address string `json:"address"`
}

// ── Result types ────────────────────────────────────────────────────────

// SyncInfoResult is returned by sync_info.
type SyncInfoResult struct {
	Height       uint64 `json:"height"`
	TargetHeight uint64 `json:"target_height"`
	Synced       bool   `json:"synced"`
}

// CreateAccountResult is returned by create_account.
type CreateAccountResult struct {
	AccountIndex uint32 `json:"account_index"`
	Address      string `json:"address"`
}

// CreateAddressResult is returned by create_address.
type CreateAddressResult struct {
	Address      string       `json:"address"`
	AddressIndex uint32       `json:"address_index"`
	Family       types.Family `json:"family"`
}

// AddressResult is returned by get_address and listed by get_addresses.
type AddressResult struct {
	Address          string       `json:"address"`
	AddressIndex     uint32       `json:"address_index"`
	AccountIndex     uint32       `json:"account_index"`
	Family           types.Family `json:"family"`
	Label            string       `json:"label,omitempty"`
	Transparent      string       `json:"transparent,omitempty"`
	Sapling          string       `json:"sapling,omitempty"`
	DiversifierIndex uint64       `json:"diversifier_index"`
}

// AccountResult is one entry of get_accounts.
type AccountResult struct {
	AccountIndex uint32 `json:"account_index"`
	Label        string `json:"label"`
	BaseAddress  string `json:"base_address"`
	AddressCount uint32 `json:"address_count"`
}

// GetAccountsResult is returned by get_accounts.
type GetAccountsResult struct {
	SubaddressAccounts []AccountResult `json:"subaddress_accounts"`
}

// ListAddressesResult is returned by get_addresses.
type ListAddressesResult struct {
	Addresses []AddressResult `json:"addresses"`
}

// ValidateAddressResult is returned by validate_address.
type ValidateAddressResult struct {
	Valid        bool    `json:"valid"`
	Kind         string  `json:"kind,omitempty"`
	Family       string  `json:"family,omitempty"`
	Network      string  `json:"network,omitempty"`
	IsMine       bool    `json:"is_mine"`
	AccountIndex *uint32 `json:"account_index,omitempty"`
	AddressIndex *uint32 `json:"address_index,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// HeightResult is returned by get_height.
type HeightResult struct {
	Height uint64 `json:"height"`
}

// FeeEstimateResult is returned by get_fee_estimate.
type FeeEstimateResult struct {
	Fee uint64 `json:"fee"`
}
