package chain

import "github.com/omahs/minotaur-wallet/pkg/types"

// State summarizes the locally known header chain.
type State struct {
	Height  uint64        `json:"height"`
	TipID   types.BlockID `json:"tipId"`
	Headers int           `json:"headers"`
}

// IsEmpty returns true if no headers have been stored yet.
func (s *State) IsEmpty() bool {
	return s.Headers == 0
}

// LoadState summarizes the contents of a header store.
func LoadState(hs *HeaderStore) (*State, error) {
	all, err := hs.All()
	if err != nil {
		return nil, err
	}
	st := &State{Headers: len(all)}
	if len(all) > 0 {
		tip := all[len(all)-1]
		st.Height = tip.Height
		st.TipID = tip.ID
	}
	return st, nil
}
