// Package normalize converts raw game values into canonical units and
// symbols. ParsePowerString covers power strings scraped from the game's
// pages, e.g. "13.152 Eh/s".
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type PowerUnit string

const (
	UnitH  PowerUnit = "H"
	UnitKh PowerUnit = "Kh"
	UnitMh PowerUnit = "Mh"
	UnitGh PowerUnit = "Gh"
	UnitTh PowerUnit = "Th"
	UnitPh PowerUnit = "Ph"
	UnitEh PowerUnit = "Eh"
	UnitZh PowerUnit = "Zh"
	UnitYh PowerUnit = "Yh"
)

// Units in ascending order, each 1000x the previous
var Units = []PowerUnit{UnitH, UnitKh, UnitMh, UnitGh, UnitTh, UnitPh, UnitEh, UnitZh, UnitYh}

var unitMultipliers = map[PowerUnit]float64{
	UnitH:  1,
	UnitKh: 1e3,
	UnitMh: 1e6,
	UnitGh: 1e9,
	UnitTh: 1e12,
	UnitPh: 1e15,
	UnitEh: 1e18,
	UnitZh: 1e21,
	UnitYh: 1e24,
}

var powerRegex = regexp.MustCompile(`^([\d.,]+)\s*([A-Za-z]+)$`)
var spaceRegex = regexp.MustCompile(`\s+`)

func Multiplier(unit PowerUnit) float64 {
	return unitMultipliers[unit]
}

// ParsePowerString converts strings like "13.152 Eh/s" into base H/s.
// Unparseable input yields 0.
func ParsePowerString(s string) float64 {
	cleaned := strings.TrimSpace(s)
	if len(cleaned) >= 2 && strings.EqualFold(cleaned[len(cleaned)-2:], "/s") {
		cleaned = cleaned[:len(cleaned)-2]
	}
	cleaned = strings.TrimSpace(spaceRegex.ReplaceAllString(cleaned, " "))

	match := powerRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return 0
	}
	value, ok := parseLocaleNumber(match[1])
	if !ok {
		return 0
	}
	unit, ok := ParseUnit(match[2])
	if !ok {
		return 0
	}
	return Finite(value * unitMultipliers[unit])
}

// ParseUnit matches a unit case-insensitively; the trailing 'h' is optional
// for prefixed units ("E" == "Eh").
func ParseUnit(raw string) (PowerUnit, bool) {
	lower := strings.ToLower(raw)
	if lower == "h" {
		return UnitH, true
	}
	lower = strings.TrimSuffix(lower, "h")
	if len(lower) != 1 {
		return "", false
	}
	candidate := PowerUnit(strings.ToUpper(lower) + "h")
	if _, ok := unitMultipliers[candidate]; !ok {
		return "", false
	}
	return candidate, true
}

// parseLocaleNumber accepts either '.' or ',' as decimal separator. When both
// appear the last one is the decimal separator; a separator that repeats is a
// thousands separator and must group digits in threes.
func parseLocaleNumber(raw string) (float64, bool) {
	dots := strings.Count(raw, ".")
	commas := strings.Count(raw, ",")
	normalized := raw
	ok := true
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(raw, ".") > strings.LastIndex(raw, ",") {
			i := strings.LastIndex(raw, ".")
			normalized, ok = stripThousands(raw[:i], ",")
			normalized += raw[i:]
		} else {
			i := strings.LastIndex(raw, ",")
			normalized, ok = stripThousands(raw[:i], ".")
			normalized += "." + raw[i+1:]
		}
	case commas > 1:
		normalized, ok = stripThousands(raw, ",")
	case commas == 1:
		normalized = strings.Replace(raw, ",", ".", 1)
	case dots > 1:
		normalized, ok = stripThousands(raw, ".")
	}
	if !ok || strings.Count(normalized, ".") > 1 || normalized == "" || normalized == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func stripThousands(raw, sep string) (string, bool) {
	groups := strings.Split(raw, sep)
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

// AutoScale picks the largest unit that keeps the value >= 1, starting from
// the given base unit.
func AutoScale(value float64, base PowerUnit) (float64, PowerUnit) {
	value = Finite(value)
	start := 0
	for i, u := range Units {
		if u == base {
			start = i
		}
	}
	idx := start
	for value >= 1000 && idx < len(Units)-1 {
		value /= 1000
		idx++
	}
	return value, Units[idx]
}

// FormatPower renders a value expressed in the base unit, e.g. 13152 with
// base Gh renders "13.15 Th/s".
func FormatPower(value float64, base PowerUnit) string {
	if !(value > 0) || math.IsInf(value, 0) {
		return fmt.Sprintf("0 %s/s", base)
	}
	scaled, unit := AutoScale(value, base)
	return fmt.Sprintf("%.2f %s/s", scaled, unit)
}

// Finite replaces NaN and infinities with 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
