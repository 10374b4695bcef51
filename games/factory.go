/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
)

var validate = validator.New()

// Types lists every game type New understands.
func Types() []GameType {
	return []GameType{TypeWordImposter, TypeBlitz, TypeCodenames}
}

// New builds an unstarted engine for gameType from its JSON settings.
func New(gameType GameType, settings json.RawMessage, words WordSource, rng Random) (Engine, error) {
	if rng == nil {
		rng = NewRandom()
	}

	switch gameType {
	case TypeWordImposter, TypeBlitz:
		var s ImposterSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, err
		}

		known := words.Categories()
		for _, c := range s.Categories {
			if !lo.Contains(known, c) {
				return nil, errs.Validation("unknown category %q", c)
			}
		}

		if gameType == TypeBlitz {
			return NewBlitz(s, words, rng), nil
		}

		return NewWordImposter(s, words, rng), nil

	case TypeCodenames:
		var s CodenamesSettings
		if err := decodeSettings(settings, &s); err != nil {
			return nil, err
		}

		return NewCodenames(s, words, rng), nil

	default:
		return nil, errs.NotFound("game.unknown_type", "unknown game type %q", gameType)
	}
}

func decodeSettings(raw json.RawMessage, dst any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return errs.Validation("malformed settings: %v", err)
		}
	}

	if err := validate.Struct(dst); err != nil {
		return errs.Validation("invalid settings: %v", err)
	}

	return nil
}
