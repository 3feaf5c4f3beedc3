/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package inspection

import "fmt"

// Kind is a type of inspection. Every kind is stored in its own backend table.
type Kind string

// Inspection kinds.
const (
	KindSanitation     Kind = "sanitation"
	KindAreaMonitoring Kind = "area_monitoring"
	KindKliping        Kind = "kliping"
)

// Kinds lists all known kinds.
var Kinds = []Kind{KindSanitation, KindAreaMonitoring, KindKliping}

// DefaultTables maps kinds to backend tables.
var DefaultTables = map[Kind]string{
	KindSanitation:     "sanitation_records",
	KindAreaMonitoring: "area_monitoring_records",
	KindKliping:        "kliping_records",
}

// ParseKind converts a string into a Kind. ErrUnknownKind is returned for anything else.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
