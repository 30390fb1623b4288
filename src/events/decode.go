package events

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/onemorebsmith/league-calc/src/model"
	"github.com/onemorebsmith/league-calc/src/normalize"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownKind    = errors.New("unknown event kind")
)

// Decode parses a `{"cmd": ..., "cmdval": ...}` frame into a typed event.
// It either returns a fully validated event or an error, never a partial one.
func Decode(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.Wrap(ErrMalformedEvent, "frame is not valid json")
	}
	frame := gjson.ParseBytes(raw)
	if !frame.IsObject() {
		return nil, errors.Wrap(ErrMalformedEvent, "frame is not an object")
	}
	cmd := frame.Get("cmd")
	if cmd.Type != gjson.String {
		return nil, errors.Wrap(ErrMalformedEvent, "frame has no cmd")
	}
	kind, ok := kindByCmd[cmd.Str]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "cmd %q", cmd.Str)
	}
	return DecodePayload(kind, frame.Get("cmdval"))
}

// DecodePayload validates a bare payload for a known kind.
func DecodePayload(kind Kind, payload gjson.Result) (Event, error) {
	if !payload.Exists() {
		return nil, errors.Wrapf(ErrMalformedEvent, "%s: missing payload", kind)
	}
	switch kind {
	case KindPower:
		return decodePower(payload)
	case KindPoolPower:
		return decodePoolPower(payload)
	case KindBalance:
		return decodeBalance(payload)
	case KindGlobalSettings:
		return decodeGlobalSettings(payload)
	case KindUserSettings:
		return decodeUserSettings(payload)
	case KindCurrenciesConfig:
		return decodeCurrenciesConfig(payload)
	}
	return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
}

// Frame encodes a payload into the socket frame format.
func Frame(kind Kind, payload any) ([]byte, error) {
	cmd, ok := cmdByKind[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}
	return json.Marshal(map[string]any{"cmd": cmd, "cmdval": payload})
}

// number reads a numeric field. Numeric strings are accepted; anything else,
// including NaN and infinities, resolves to 0.
func number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return normalize.Finite(r.Float())
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		return normalize.Finite(v)
	}
	return 0
}

func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	}
	return ""
}

func first(obj gjson.Result, names ...string) gjson.Result {
	for _, n := range names {
		if r := obj.Get(n); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// unwrapList accepts either a bare array or an api envelope with the array
// under one of the given paths.
func unwrapList(payload gjson.Result, paths ...string) (gjson.Result, bool) {
	if payload.IsArray() {
		return payload, true
	}
	if !payload.IsObject() {
		return gjson.Result{}, false
	}
	if s := payload.Get("success"); s.Exists() && s.Type == gjson.False {
		return gjson.Result{}, false
	}
	for _, p := range paths {
		if r := payload.Get(p); r.IsArray() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func decodePower(payload gjson.Result) (Event, error) {
	if !payload.IsObject() {
		return nil, errors.Wrap(ErrMalformedEvent, "power: payload is not an object")
	}
	total := payload.Get("total")
	if !total.Exists() {
		return nil, errors.Wrap(ErrMalformedEvent, "power: missing total")
	}
	return PowerEvent{
		Total:   number(total),
		Penalty: number(payload.Get("penalty")),
	}, nil
}

func decodePoolPower(payload gjson.Result) (Event, error) {
	if !payload.IsObject() {
		return nil, errors.Wrap(ErrMalformedEvent, "pool_power: payload is not an object")
	}
	currency := payload.Get("currency")
	if currency.Type != gjson.String || strings.TrimSpace(currency.Str) == "" {
		return nil, errors.Wrap(ErrMalformedEvent, "pool_power: missing currency")
	}
	power := payload.Get("power")
	if !power.Exists() {
		return nil, errors.Wrap(ErrMalformedEvent, "pool_power: missing power")
	}
	return PoolPowerEvent{
		Currency: strings.TrimSpace(currency.Str),
		Power:    number(power),
		LeagueID: text(first(payload, "league_id", "leagueId")),
	}, nil
}

func decodeBalance(payload gjson.Result) (Event, error) {
	if nested := payload.Get("balances"); nested.IsObject() {
		payload = nested
	}
	if !payload.IsObject() {
		return nil, errors.Wrap(ErrMalformedEvent, "balance: payload is not an object")
	}
	balances := model.UserBalances{}
	payload.ForEach(func(key, value gjson.Result) bool {
		code := normalize.CodeFor(key.String())
		if code == "" {
			return true
		}
		switch value.Type {
		case gjson.String:
			balances[code] = strings.TrimSpace(value.Str)
		case gjson.Number:
			balances[code] = value.Raw
		}
		return true
	})
	return BalanceEvent{Balances: balances}, nil
}

func decodeGlobalSettings(payload gjson.Result) (Event, error) {
	list, ok := unwrapList(payload, "data", "settings")
	if !ok {
		return nil, errors.Wrap(ErrMalformedEvent, "global_settings: payload is not an array")
	}
	var settings []model.GlobalSetting
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		currency := item.Get("currency")
		if currency.Type != gjson.String || strings.TrimSpace(currency.Str) == "" {
			return true
		}
		settings = append(settings, model.GlobalSetting{
			Currency:             strings.TrimSpace(currency.Str),
			BlockSize:            number(first(item, "block_size", "blockSize", "block_payout")),
			PoolPowerForCurrency: number(first(item, "pool_power_for_currency", "poolPowerForCurrency", "total_power")),
			LeagueID:             text(first(item, "league_id", "leagueId")),
		})
		return true
	})
	if len(settings) == 0 {
		return nil, errors.Wrap(ErrMalformedEvent, "global_settings: no valid entries")
	}
	return GlobalSettingsEvent{Settings: settings}, nil
}

func decodeUserSettings(payload gjson.Result) (Event, error) {
	var marker string
	if payload.IsObject() {
		marker = text(first(payload, "current_mining_currency", "currentMiningCurrency"))
	}
	list, ok := unwrapList(payload, "data")
	if !ok {
		if marker != "" {
			return UserSettingsEvent{Marker: marker}, nil
		}
		return nil, errors.Wrap(ErrMalformedEvent, "user_settings: payload is not an array")
	}
	allocation := model.MiningAllocation{}
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		currency := item.Get("currency")
		if currency.Type != gjson.String || strings.TrimSpace(currency.Str) == "" {
			return true
		}
		allocation = append(allocation, model.AllocationEntry{
			CurrencyKey: strings.TrimSpace(currency.Str),
			Percent:     number(item.Get("percent")),
			IsDefault:   item.Get("is_default_currency").Bool(),
		})
		return true
	})
	return UserSettingsEvent{Allocation: allocation, Marker: marker}, nil
}

func decodeCurrenciesConfig(payload gjson.Result) (Event, error) {
	list, ok := unwrapList(payload, "data.currencies_config", "currencies_config")
	if !ok {
		return nil, errors.Wrap(ErrMalformedEvent, "currencies_config: payload is not an array")
	}
	var configs []model.CurrencyConfig
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		code := item.Get("code")
		if code.Type != gjson.String || strings.TrimSpace(code.Str) == "" {
			return true
		}
		configs = append(configs, model.CurrencyConfig{
			Code:               strings.ToLower(strings.TrimSpace(code.Str)),
			Name:               text(item.Get("name")),
			DisplayName:        text(item.Get("display_name")),
			BalanceKey:         text(item.Get("balance_key")),
			Min:                number(item.Get("min")),
			ToSmall:            int64(number(item.Get("to_small"))),
			PrecisionToBalance: int32(number(item.Get("precision_to_balance"))),
			IsCanBeMined:       item.Get("is_can_be_mined").Bool(),
			DisabledWithdraw:   item.Get("disabled_withdraw").Bool(),
			IsInGameCurrency:   item.Get("is_in_game_currency").Bool(),
		})
		return true
	})
	if len(configs) == 0 {
		return nil, errors.Wrap(ErrMalformedEvent, "currencies_config: no valid entries")
	}
	return CurrenciesConfigEvent{Configs: configs}, nil
}
