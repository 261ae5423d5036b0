package model

import "slices"

// HasPassed returns true if the player passed on the stake
func (s *StakeQuestionData) HasPassed(id PlayerID) bool {
	return slices.Contains(s.Passed, id)
}

// CurrentBidder returns the player whose turn it is to bid
func (s *StakeQuestionData) CurrentBidder() (PlayerID, bool) {
	if s.CurrentBidderIndex < 0 || s.CurrentBidderIndex >= len(s.BiddingOrder) {
		return "", false
	}
	return s.BiddingOrder[s.CurrentBidderIndex], true
}

// Contenders returns the bidders still in the stake, in bidding order.
// inGame filters out players who left or were restricted.
func (s *StakeQuestionData) Contenders(inGame func(PlayerID) bool) []PlayerID {
	var out []PlayerID
	for _, id := range s.BiddingOrder {
		if !s.HasPassed(id) && inGame(id) {
			out = append(out, id)
		}
	}
	return out
}

// AdvanceBidder moves the turn to the next contender after the current one
func (s *StakeQuestionData) AdvanceBidder(inGame func(PlayerID) bool) {
	n := len(s.BiddingOrder)
	for step := 1; step <= n; step++ {
		idx := (s.CurrentBidderIndex + step) % n
		id := s.BiddingOrder[idx]
		if !s.HasPassed(id) && inGame(id) {
			s.CurrentBidderIndex = idx
			return
		}
	}
}

// IsComplete returns true once the highest bidder is the only contender left,
// or nobody is left to outbid them
func (s *StakeQuestionData) IsComplete(inGame func(PlayerID) bool) bool {
	if s.HighestBidder == nil {
		return false
	}
	contenders := s.Contenders(inGame)
	if len(contenders) == 0 {
		return true
	}
	return len(contenders) == 1 && contenders[0] == *s.HighestBidder
}
