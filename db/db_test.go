package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Repositories map errors by constraint name, so the names must exist in
// the schema.
func TestSchemaDeclaresMappedConstraints(t *testing.T) {
	for _, constraint := range []string{
		"tournaments_status_check",
		"players_tournament_id_fkey",
		"matches_tournament_id_fkey",
		"matches_player1_id_fkey",
		"matches_player2_id_fkey",
		"matches_winner_id_fkey",
		"matches_tournament_round_match_key",
	} {
		assert.Contains(t, schema, constraint)
	}
}
