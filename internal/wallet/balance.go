package wallet

import (
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// TokenData is the total amount of one token held by an address.
type TokenData struct {
	TokenID types.TokenID `json:"tokenId"`
	Total   types.Amount  `json:"total"`
}

// Balance is the locally derived balance of an address.
type Balance struct {
	Erg    types.Amount `json:"nanoErgs"`
	Tokens []TokenData  `json:"tokens"`
	Boxes  int          `json:"boxes"`
}

// Balances sums the unspent boxes in boxes. Spent boxes are ignored.
// Tokens are ordered by token id; tokens whose total is zero are omitted.
func Balances(boxes []*utxo.Box) *Balance {
	bal := &Balance{Tokens: []TokenData{}}
	totals := make(map[types.TokenID]types.Amount)
	for _, b := range boxes {
		if b.Spent {
			continue
		}
		bal.Boxes++
		bal.Erg = bal.Erg.Add(b.Value)
		for _, a := range b.Assets {
			totals[a.TokenID] = totals[a.TokenID].Add(a.Amount)
		}
	}

	tokens := make([]types.TokenAmount, 0, len(totals))
	for id, total := range totals {
		if total.IsZero() {
			continue
		}
		tokens = append(tokens, types.TokenAmount{TokenID: id, Amount: total})
	}
	types.SortTokens(tokens)
	for _, t := range tokens {
		bal.Tokens = append(bal.Tokens, TokenData{TokenID: t.TokenID, Total: t.Amount})
	}
	return bal
}

// AddressBalance loads the unspent boxes of addressID from store and sums
// them.
func AddressBalance(store *utxo.Store, addressID string) (*Balance, error) {
	boxes, err := store.Unspent(addressID)
	if err != nil {
		return nil, err
	}
	return Balances(boxes), nil
}
