package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/config"
	"github.com/omahs/minotaur-wallet/internal/chain"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/syncer"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

func (s *Server) registry() *wallet.Registry {
	return wallet.NewRegistry(s.db, s.network)
}

// resolveAddress parses a and looks up its registry record.
func (s *Server) resolveAddress(a string) (*wallet.Address, *Error) {
	if a == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	addr, err := types.ParseAddress(a, s.network)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	rec, err := s.registry().GetByAddress(addr)
	if err != nil {
		return nil, toRPCError(err)
	}
	return rec, nil
}

// toRPCError maps sync and storage failures to JSON-RPC errors.
func toRPCError(err error) *Error {
	var ie *syncer.IntegrityError
	var he *chainclient.HTTPError
	switch {
	case errors.As(err, &ie):
		data := &IntegrityData{Kind: syncer.ErrorKind(err), Height: ie.Height}
		if !ie.BoxID.IsZero() {
			data.BoxID = ie.BoxID.String()
		}
		if !ie.TxID.IsZero() {
			data.TxID = ie.TxID.String()
		}
		return &Error{Code: CodeIntegrity, Message: err.Error(), Data: data}
	case errors.Is(err, wallet.ErrAddressNotFound),
		errors.Is(err, chain.ErrTxNotFound),
		errors.Is(err, utxo.ErrBoxNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, chainclient.ErrChainUnavailable),
		errors.Is(err, chainclient.ErrBadResponse),
		errors.As(err, &he):
		return &Error{Code: CodeUnavailable, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// ── Sync endpoints ──────────────────────────────────────────────────────

func (s *Server) handleSyncAddress(ctx context.Context, req *Request) (interface{}, *Error) {
	if s.manager == nil {
		return nil, &Error{Code: CodeInternalError, Message: "sync not enabled"}
	}
	var params SyncParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	rec, rpcErr := s.resolveAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var (
		out syncer.Outcome
		err error
	)
	if params.FromHeight != nil {
		out, err = s.manager.SyncAddressFrom(ctx, rec.ID, *params.FromHeight)
	} else {
		out, err = s.manager.SyncAddress(ctx, rec.ID)
	}
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewSyncResult(out), nil
}

func (s *Server) handleSyncVerifyBalance(ctx context.Context, req *Request) (interface{}, *Error) {
	if s.manager == nil {
		return nil, &Error{Code: CodeInternalError, Message: "sync not enabled"}
	}
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	rec, rpcErr := s.resolveAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	report, err := s.manager.VerifyAddress(ctx, rec.ID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return NewVerifyResult(report), nil
}

// ── Address endpoints ───────────────────────────────────────────────────

func (s *Server) handleAddressAdd(req *Request) (interface{}, *Error) {
	var params AddAddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Address == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	if _, err := types.ParseAddress(params.Address, s.network); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}

	var rec *wallet.Address
	var created bool
	err := s.db.Update(func(kv storage.KV) error {
		var err error
		rec, created, err = wallet.NewRegistry(kv, s.network).AddAt(params.Address, params.Height)
		return err
	})
	if err != nil {
		return nil, toRPCError(err)
	}
	if created {
		s.logger.Info().
			Str("address", rec.Address.String()).
			Uint64("height", rec.Height).
			Msg("Address added")
	}
	return NewAddressResult(rec), nil
}

func (s *Server) handleAddressList(_ *Request) (interface{}, *Error) {
	addrs, err := s.registry().List()
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]*AddressResult, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, NewAddressResult(a))
	}
	return out, nil
}

func (s *Server) handleAddressGet(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	rec, rpcErr := s.resolveAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return NewAddressResult(rec), nil
}

func (s *Server) handleAddressGetBalance(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	rec, rpcErr := s.resolveAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	bal, err := wallet.AddressBalance(utxo.NewStore(s.db), rec.ID)
	if err != nil {
		return nil, toRPCError(err)
	}
	tokens := make([]TokenResult, 0, len(bal.Tokens))
	for _, t := range bal.Tokens {
		tokens = append(tokens, TokenResult{TokenID: t.TokenID.String(), Amount: t.Total.String()})
	}
	return &BalanceResult{
		Address:  rec.Address.String(),
		Height:   rec.Height,
		NanoErgs: bal.Erg.String(),
		Tokens:   tokens,
		Boxes:    bal.Boxes,
	}, nil
}

// ── Box/Tx endpoints ────────────────────────────────────────────────────

func (s *Server) handleBoxList(req *Request) (interface{}, *Error) {
	var params BoxListParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	rec, rpcErr := s.resolveAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	store := utxo.NewStore(s.db)
	var (
		boxes []*utxo.Box
		err   error
	)
	if params.UnspentOnly {
		boxes, err = store.Unspent(rec.ID)
	} else {
		boxes, err = store.GetByAddress(rec.ID)
	}
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]*BoxResult, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, NewBoxResult(b))
	}
	return out, nil
}

func (s *Server) handleTxGet(req *Request) (interface{}, *Error) {
	var params TxParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, err := types.ParseTxID(params.TxID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid tx_id: must be 32-byte hex"}
	}
	tx, err := chain.NewTxStore(s.db).Get(id)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &TxResult{
		TxID:      tx.ID.String(),
		BlockID:   tx.BlockID.String(),
		Height:    tx.Height,
		Timestamp: tx.Timestamp,
	}, nil
}

// ── Chain/Node endpoints ────────────────────────────────────────────────

func (s *Server) handleChainGetHeaders(req *Request) (interface{}, *Error) {
	var params HeadersParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}
	if params.Limit < 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "limit must not be negative"}
	}

	headers, err := chain.NewHeaderStore(s.db).All()
	if err != nil {
		return nil, toRPCError(err)
	}
	out := make([]*HeaderResult, 0, len(headers))
	for _, h := range headers {
		if h.Height < params.FromHeight {
			continue
		}
		out = append(out, NewHeaderResult(h))
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

func (s *Server) handleNodeGetInfo(ctx context.Context, _ *Request) (interface{}, *Error) {
	res := &NodeInfoResult{
		Network: string(s.network),
		Version: config.Version,
	}

	st, err := chain.LoadState(chain.NewHeaderStore(s.db))
	if err != nil {
		return nil, toRPCError(err)
	}
	if !st.IsEmpty() {
		res.HeaderHeight = st.Height
		res.HeaderTip = st.TipID.String()
		res.Headers = st.Headers
	}
	addrs, err := s.registry().List()
	if err != nil {
		return nil, toRPCError(err)
	}
	res.Addresses = len(addrs)

	if s.node != nil {
		info, err := s.node.Info(ctx)
		if err != nil {
			// Local state is still useful when the node is down.
			res.NodeError = err.Error()
		} else {
			res.NodeName = info.Name
			res.NodeVersion = info.AppVersion
			if info.FullHeight != nil {
				res.NodeHeight = *info.FullHeight
			}
		}
	}
	return res, nil
}
