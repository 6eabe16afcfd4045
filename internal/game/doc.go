// Package game implements the rules of five-player "chiamata" Briscola.
//
// The main type is Game, a single-owner state machine covering bidding,
// calling the partner card, the blind first trick, trump revelation, trick
// play and final scoring. Game does no I/O and no locking; the server
// package gives each instance exactly one goroutine.
//
// # Basic Usage
//
//	g := game.New(randutil.New(42))
//	_ = g.StartGame()
//	_ = g.DealCards()
//	_ = g.PlayerBid(0, 70)
//	for _, id := range []int{1, 2, 3, 4} {
//	    _ = g.PlayerBid(id, game.PassBid)
//	}
//	_ = g.CallPartnerRank(7)
//	// five plays, starting with the caller...
//	res, _ := g.CallPartnerSuit(deck.Coins)
//
// # Phases
//
// idle → ready → bid → call-partner-rank → play-first-trick →
// call-partner-suit → trick-won ⇄ play-tricks → finished.
//
// The first trick is played before trump is known, so its resolution is
// deferred until the caller names the partner suit, which doubles as trump.
// Every later trick is resolved as soon as its fifth card lands.
//
// # Errors
//
// Operations validate everything before mutating. Failures are one of
// ValidationError, StateError, TurnError, LookupError or CardNotInHandError,
// and callers tell them apart with errors.As.
package game
