package pokeapi

import (
	"encoding/json"
	"fmt"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// apiPokemon mirrors the subset of GET /pokemon/{id} we consume. Pointers
// distinguish a missing field from a zero value.
type apiPokemon struct {
	ID      *int    `json:"id"`
	Name    *string `json:"name"`
	Height  int     `json:"height"`
	Weight  int     `json:"weight"`
	Sprites *struct {
		Other map[string]struct {
			FrontDefault *string `json:"front_default"`
		} `json:"other"`
	} `json:"sprites"`
	Types []struct {
		Type *struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

const artworkKey = "official-artwork"

// decodeRecord projects a raw response body onto a Record.
func decodeRecord(id int, body []byte) (pokemon.Record, error) {
	var raw apiPokemon
	if err := json.Unmarshal(body, &raw); err != nil {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "body", Err: err}
	}

	if raw.ID == nil {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "id"}
	}
	if raw.Name == nil || *raw.Name == "" {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "name"}
	}
	if raw.Sprites == nil {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "sprites"}
	}
	art, ok := raw.Sprites.Other[artworkKey]
	if !ok || art.FrontDefault == nil || *art.FrontDefault == "" {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "sprites.other." + artworkKey + ".front_default"}
	}
	if len(raw.Types) == 0 {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "types"}
	}

	rec := pokemon.Record{
		ID:     *raw.ID,
		Name:   *raw.Name,
		Image:  *art.FrontDefault,
		Height: raw.Height,
		Weight: raw.Weight,
	}
	for i, t := range raw.Types {
		if t.Type == nil || t.Type.Name == "" {
			return pokemon.Record{}, &MalformedError{ID: id, Field: fmt.Sprintf("types[%d].type.name", i)}
		}
		rec.Types = append(rec.Types, t.Type.Name)
	}
	for _, s := range raw.Stats {
		if s.Stat.Name == "" {
			continue
		}
		rec.Stats = append(rec.Stats, pokemon.Stat{Name: s.Stat.Name, Value: s.BaseStat})
	}

	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return pokemon.Record{}, &MalformedError{ID: id, Field: "record", Err: err}
	}
	return rec, nil
}
