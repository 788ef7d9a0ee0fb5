package domain

import "strings"

// roleEntry maps a name keyword to a party role and its score buff.
type roleEntry struct {
	Keyword string
	Role    string
	Buff    int
}

// roleTable is the fixed priority table for role assignment. Earlier
// entries win on substring matches; exact matches beat substring matches.
var roleTable = []roleEntry{
	{"admin", "Администратор", 15},
	{"boss", "Босс вечеринки", 12},
	{"dj", "Диджей", 10},
	{"star", "Звезда", 8},
	{"ninja", "Ниндзя", 5},
}

// AssignRole resolves a player's role and buff from their display name.
// Assignment happens once at player creation and is immutable thereafter.
// Exact keyword matches are tried first, then substring matches in table
// priority order. Names with no keyword get no role and a zero buff.
func AssignRole(name string) (string, int) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, e := range roleTable {
		if lower == e.Keyword {
			return e.Role, e.Buff
		}
	}
	for _, e := range roleTable {
		if strings.Contains(lower, e.Keyword) {
			return e.Role, e.Buff
		}
	}
	return "", 0
}
