package models

import "fmt"

type ParticipantKind string

const (
	ParticipantClub ParticipantKind = "club"
	ParticipantTeam ParticipantKind = "team" // legacy model, being phased out
)

type ClubType string

const (
	ClubTypeHome     ClubType = "home-club"
	ClubTypeOpponent ClubType = "opponent-club"
)

// Participant is the tagged union over the current club model and the legacy
// team model. Kind discriminates; club-only fields are nil for teams.
type Participant struct {
	Kind      ParticipantKind `json:"kind"`
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	ShortName string          `json:"short_name,omitempty"`
	Active    bool            `json:"active"`

	// Club-only. SquadSlot maps a home club to one internal squad; nil for
	// opponent clubs and legacy teams.
	ClubType  *ClubType `json:"club_type,omitempty"`
	SquadSlot *int      `json:"squad_slot,omitempty"`

	LeagueIDs []int `json:"league_ids,omitempty"`
}

// Key identifies a participant across both models within one table scope.
func (p *Participant) Key() ParticipantKey {
	return ParticipantKey{Kind: p.Kind, ID: p.ID}
}

// MemberOf reports whether the participant is registered to the given league.
func (p *Participant) MemberOf(leagueID int) bool {
	for _, id := range p.LeagueIDs {
		if id == leagueID {
			return true
		}
	}
	return false
}

type ParticipantKey struct {
	Kind ParticipantKind `json:"kind"`
	ID   int             `json:"id"`
}

func (k ParticipantKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}
