package types

import "sort"

// TokenAmount is a quantity of one token held in a box.
type TokenAmount struct {
	TokenID TokenID `json:"tokenId"`
	Amount  Amount  `json:"amount"`
}

// SortTokens orders token amounts by token id so that two token sets can be
// compared element-wise.
func SortTokens(tokens []TokenAmount) {
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].TokenID.String() < tokens[j].TokenID.String()
	})
}
