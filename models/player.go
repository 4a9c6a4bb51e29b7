package models

import (
	"strconv"
	"strings"
)

// ByePrefix marks synthetic players used to pad a bracket.
const ByePrefix = "BYE_"

type Player struct {
	ID           int    `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
}

// IsBye reports whether the player is a bracket placeholder.
func (p Player) IsBye() bool {
	return strings.HasPrefix(p.Name, ByePrefix)
}

// ByeName returns the name of the i-th bye placeholder, starting at 1.
func ByeName(i int) string {
	return ByePrefix + strconv.Itoa(i)
}
