package ingest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// KeyPolicy derives the natural keys used to match payload entries against
// stored rows. Rankings and tiers are additionally keyed by the league and
// cup of their source scope.
type KeyPolicy interface {
	// SpeciesKey returns the species identifier of a pokemon, ranking or
	// tier entry. For tier entries the value is a bare string.
	SpeciesKey(entry gjson.Result) string

	// MoveKey returns the move identifier of a move entry
	MoveKey(entry gjson.Result) string
}

// DefaultKeyPolicy matches species by lowercased speciesId, which already
// encodes the form ("marowak_alolan"), and moves by uppercased moveId
type DefaultKeyPolicy struct{}

var _ KeyPolicy = DefaultKeyPolicy{}

// SpeciesKey implements KeyPolicy
func (DefaultKeyPolicy) SpeciesKey(entry gjson.Result) string {
	v := entry.String()
	if entry.IsObject() {
		v = entry.Get("speciesId").String()
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// MoveKey implements KeyPolicy
func (DefaultKeyPolicy) MoveKey(entry gjson.Result) string {
	return strings.ToUpper(strings.TrimSpace(entry.Get("moveId").String()))
}
