package syncer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/omahs/minotaur-wallet/internal/chainclient"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Report is the outcome of comparing the local balance of an address with the
// explorer's confirmed balance.
type Report struct {
	AddressID string        `json:"addressId"`
	Address   types.Address `json:"address"`
	Height    uint64        `json:"height"`
	Match     bool          `json:"match"`

	LocalErg  types.Amount `json:"localNanoErgs"`
	RemoteErg types.Amount `json:"remoteNanoErgs"`
	ErgMatch  bool         `json:"ergMatch"`

	// LocalOnly lists local (token, amount) pairs the explorer does not
	// report; RemoteOnly the reverse.
	LocalOnly  []types.TokenAmount `json:"localOnly"`
	RemoteOnly []types.TokenAmount `json:"remoteOnly"`

	// Commitment is a digest of the unspent boxes the local totals came
	// from.
	Commitment types.Hash `json:"commitment"`
}

// Verifier reconciles locally derived balances with the explorer.
type Verifier struct {
	client  chainclient.Client
	db      storage.DB
	network types.Network
	logger  zerolog.Logger
}

// NewVerifier creates a verifier. db must be scoped to network.
func NewVerifier(client chainclient.Client, db storage.DB, network types.Network) *Verifier {
	return &Verifier{client: client, db: db, network: network, logger: klog.Verify}
}

// Verify reports whether the local balance of addr equals the explorer's
// confirmed balance. A mismatch is reported as false, not as an error.
func (v *Verifier) Verify(ctx context.Context, addr *wallet.Address) (bool, error) {
	r, err := v.Reconcile(ctx, addr)
	if err != nil {
		return false, err
	}
	return r.Match, nil
}

// Reconcile compares balances and describes every difference. Only a
// provider or storage failure returns an error.
func (v *Verifier) Reconcile(ctx context.Context, addr *wallet.Address) (*Report, error) {
	remote, err := v.client.ConfirmedBalance(ctx, addr.Address)
	if err != nil {
		return nil, fmt.Errorf("confirmed balance: %w", err)
	}

	boxes := utxo.NewStore(v.db)
	local, err := wallet.AddressBalance(boxes, addr.ID)
	if err != nil {
		return nil, fmt.Errorf("local balance: %w", err)
	}
	commitment, err := utxo.Commitment(boxes, addr.ID)
	if err != nil {
		return nil, err
	}

	localTokens := make([]types.TokenAmount, 0, len(local.Tokens))
	for _, t := range local.Tokens {
		localTokens = append(localTokens, types.TokenAmount{TokenID: t.TokenID, Amount: t.Total})
	}

	r := &Report{
		AddressID:  addr.ID,
		Address:    addr.Address,
		Height:     addr.Height,
		LocalErg:   local.Erg,
		RemoteErg:  remote.NanoErgs,
		ErgMatch:   local.Erg.Equal(remote.NanoErgs),
		LocalOnly:  tokenDiff(localTokens, remote.Tokens),
		RemoteOnly: tokenDiff(remote.Tokens, localTokens),
		Commitment: commitment,
	}
	r.Match = r.ErgMatch && len(r.LocalOnly) == 0 && len(r.RemoteOnly) == 0

	if !r.Match {
		metrics.BalanceMismatches.WithLabelValues(string(v.network)).Inc()
		v.logger.Warn().
			Str("address", addr.Address.String()).
			Uint64("height", addr.Height).
			Str("local_erg", r.LocalErg.String()).
			Str("remote_erg", r.RemoteErg.String()).
			Int("local_only", len(r.LocalOnly)).
			Int("remote_only", len(r.RemoteOnly)).
			Msg("Balance mismatch")
	}
	return r, nil
}

// tokenDiff returns the (token, amount) pairs of a that do not appear in b.
func tokenDiff(a, b []types.TokenAmount) []types.TokenAmount {
	diff := []types.TokenAmount{}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x.TokenID == y.TokenID && x.Amount.Equal(y.Amount) {
				found = true
				break
			}
		}
		if !found {
			diff = append(diff, x)
		}
	}
	return diff
}
