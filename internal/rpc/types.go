package rpc

import (
	"github.com/omahs/minotaur-wallet/internal/chain"
	"github.com/omahs/minotaur-wallet/internal/syncer"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	// CodeIntegrity reports a window rejected for inconsistent chain data.
	CodeIntegrity = -32001
	// CodeUnavailable reports an upstream node or explorer failure.
	CodeUnavailable = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
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

// ── Param types ─────────────────────────────────────────────────────────

// AddressParam is used by endpoints that take a single address.
type AddressParam struct {
	Address string `json:"address"`
}

// AddAddressParam is used by address_add. Height is the first height to
// scan; it only applies to addresses not tracked yet.
type AddAddressParam struct {
	Address string `json:"address"`
	Height  uint64 `json:"height,omitempty"`
}

// SyncParam is used by sync_address. FromHeight overrides the stored
// cursor when set.
type SyncParam struct {
	Address    string  `json:"address"`
	FromHeight *uint64 `json:"from_height,omitempty"`
}

// BoxListParam is used by box_list.
type BoxListParam struct {
	Address     string `json:"address"`
	UnspentOnly bool   `json:"unspent_only,omitempty"`
}

// TxParam is used by tx_get.
type TxParam struct {
	TxID string `json:"tx_id"`
}

// HeadersParam is used by chain_getHeaders. Limit 0 returns every stored
// header.
type HeadersParam struct {
	FromHeight uint64 `json:"from_height,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// AddressResult describes a tracked address.
type AddressResult struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	Height    uint64 `json:"height"`
	CreatedAt int64  `json:"created_at"`
}

// NewAddressResult converts a registry record.
func NewAddressResult(a *wallet.Address) *AddressResult {
	return &AddressResult{
		ID:        a.ID,
		Address:   a.Address.String(),
		Network:   string(a.Network),
		Height:    a.Height,
		CreatedAt: a.CreatedAt.Unix(),
	}
}

// SyncResult is returned by sync_address.
type SyncResult struct {
	Status  string      `json:"status"`
	Height  uint64      `json:"height"`
	Windows int         `json:"windows"`
	Txs     int         `json:"txs"`
	Fork    *ForkResult `json:"fork,omitempty"`
}

// ForkResult describes a detected fork.
type ForkResult struct {
	Height   uint64 `json:"height"`
	Rollback uint64 `json:"rollback"`
	LocalID  string `json:"local_block_id"`
	RemoteID string `json:"remote_block_id"`
	TxID     string `json:"tx_id"`
}

// NewSyncResult converts an engine outcome.
func NewSyncResult(out syncer.Outcome) *SyncResult {
	r := &SyncResult{
		Status:  string(out.Status),
		Height:  out.Height,
		Windows: out.Windows,
		Txs:     out.Txs,
	}
	if out.Fork != nil {
		r.Fork = &ForkResult{
			Height:   out.Fork.Height,
			Rollback: out.Fork.Rollback,
			LocalID:  out.Fork.LocalID.String(),
			RemoteID: out.Fork.RemoteID.String(),
			TxID:     out.Fork.TxID.String(),
		}
	}
	return r
}

// IntegrityData is attached to CodeIntegrity errors.
type IntegrityData struct {
	Kind   string `json:"kind"`
	BoxID  string `json:"box_id,omitempty"`
	TxID   string `json:"tx_id,omitempty"`
	Height uint64 `json:"height"`
}

// TokenResult is a token id with an amount.
type TokenResult struct {
	TokenID string `json:"token_id"`
	Amount  string `json:"amount"`
}

func tokenResults(ts []types.TokenAmount) []TokenResult {
	out := make([]TokenResult, 0, len(ts))
	for _, t := range ts {
		out = append(out, TokenResult{TokenID: t.TokenID.String(), Amount: t.Amount.String()})
	}
	return out
}

// VerifyResult is returned by sync_verifyBalance.
type VerifyResult struct {
	Match  bool          `json:"match"`
	Report *ReportResult `json:"report"`
}

// ReportResult is the detail of a balance comparison.
type ReportResult struct {
	Address    string        `json:"address"`
	Height     uint64        `json:"height"`
	LocalErg   string        `json:"local_nano_ergs"`
	RemoteErg  string        `json:"remote_nano_ergs"`
	ErgMatch   bool          `json:"erg_match"`
	LocalOnly  []TokenResult `json:"local_only"`
	RemoteOnly []TokenResult `json:"remote_only"`
	Commitment string        `json:"commitment"`
}

// NewVerifyResult converts a verifier report.
func NewVerifyResult(r *syncer.Report) *VerifyResult {
	return &VerifyResult{
		Match: r.Match,
		Report: &ReportResult{
			Address:    r.Address.String(),
			Height:     r.Height,
			LocalErg:   r.LocalErg.String(),
			RemoteErg:  r.RemoteErg.String(),
			ErgMatch:   r.ErgMatch,
			LocalOnly:  tokenResults(r.LocalOnly),
			RemoteOnly: tokenResults(r.RemoteOnly),
			Commitment: r.Commitment.String(),
		},
	}
}

// BalanceResult is returned by address_getBalance.
type BalanceResult struct {
	Address  string        `json:"address"`
	Height   uint64        `json:"height"`
	NanoErgs string        `json:"nano_ergs"`
	Tokens   []TokenResult `json:"tokens"`
	Boxes    int           `json:"boxes"`
}

// BoxResult describes a stored box.
type BoxResult struct {
	BoxID       string        `json:"box_id"`
	TxID        string        `json:"tx_id"`
	Index       uint32        `json:"index"`
	Height      uint64        `json:"height"`
	Value       string        `json:"value"`
	Assets      []TokenResult `json:"assets"`
	Spent       bool          `json:"spent"`
	SpendTxID   string        `json:"spend_tx_id,omitempty"`
	SpendHeight uint64        `json:"spend_height,omitempty"`
}

// NewBoxResult converts a stored box.
func NewBoxResult(b *utxo.Box) *BoxResult {
	r := &BoxResult{
		BoxID:  b.ID.String(),
		TxID:   b.TxID.String(),
		Index:  b.Index,
		Height: b.Height,
		Value:  b.Value.String(),
		Assets: tokenResults(b.Assets),
		Spent:  b.Spent,
	}
	if b.SpendTxID != nil {
		r.SpendTxID = b.SpendTxID.String()
		r.SpendHeight = b.SpendHeight
	}
	return r
}

// TxResult describes a stored transaction.
type TxResult struct {
	TxID      string `json:"tx_id"`
	BlockID   string `json:"block_id"`
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// HeaderResult describes a stored block header.
type HeaderResult struct {
	Height    uint64 `json:"height"`
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Timestamp int64  `json:"timestamp"`
}

// NewHeaderResult converts a stored header.
func NewHeaderResult(h *chain.Header) *HeaderResult {
	return &HeaderResult{
		Height:    h.Height,
		ID:        h.ID.String(),
		ParentID:  h.ParentID.String(),
		Timestamp: h.Timestamp,
	}
}

// NodeInfoResult is returned by node_getInfo.
type NodeInfoResult struct {
	Network      string `json:"network"`
	Version      string `json:"version"`
	NodeName     string `json:"node_name,omitempty"`
	NodeVersion  string `json:"node_version,omitempty"`
	NodeHeight   uint64 `json:"node_height"`
	NodeError    string `json:"node_error,omitempty"`
	HeaderHeight uint64 `json:"header_height"`
	HeaderTip    string `json:"header_tip,omitempty"`
	Headers      int    `json:"headers"`
	Addresses    int    `json:"addresses"`
}
