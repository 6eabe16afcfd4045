package game

// Result is the outcome of a finished deal
type Result struct {
	CallerID       int   `json:"caller_id"`
	PartnerID      int   `json:"partner_id"`
	Bid            int   `json:"bid"`
	CallerTeam     []int `json:"caller_team"`
	CallerPoints   int   `json:"caller_points"`
	DefenderPoints int   `json:"defender_points"`
	CallerWon      bool  `json:"caller_won"`
	// Settlement is the match-point delta per seat; it always sums to zero.
	Settlement []int `json:"settlement"`
}

// Result returns the final scoring once the game is finished
func (g *Game) Result() (Result, bool) {
	if g.result == nil {
		return Result{}, false
	}
	r := *g.result
	r.CallerTeam = append([]int(nil), r.CallerTeam...)
	r.Settlement = append([]int(nil), r.Settlement...)
	return r, true
}

func (g *Game) computeResult() Result {
	callerID := g.CallerID()
	partnerID := g.PartnerID()

	team := make(map[int]bool, 2)
	if callerID != NoPlayer {
		team[callerID] = true
	}
	if partnerID != NoPlayer {
		team[partnerID] = true
	}

	res := Result{
		CallerID:   callerID,
		PartnerID:  partnerID,
		Bid:        g.bid,
		Settlement: make([]int, NumPlayers),
	}
	for _, p := range g.players {
		if team[p.ID] {
			res.CallerTeam = append(res.CallerTeam, p.ID)
			res.CallerPoints += p.Points
		} else {
			res.DefenderPoints += p.Points
		}
	}
	res.CallerWon = callerID != NoPlayer && res.CallerPoints >= g.bid

	if callerID == NoPlayer {
		return res
	}

	// Caller wins or loses double (quadruple alone), partner single, each defender single.
	sign := 1
	if !res.CallerWon {
		sign = -1
	}
	alone := partnerID == NoPlayer || partnerID == callerID
	for _, p := range g.players {
		switch {
		case p.ID == callerID && alone:
			res.Settlement[p.ID] = 4 * sign
		case p.ID == callerID:
			res.Settlement[p.ID] = 2 * sign
		case p.ID == partnerID:
			res.Settlement[p.ID] = sign
		default:
			res.Settlement[p.ID] = -sign
		}
	}
	return res
}
