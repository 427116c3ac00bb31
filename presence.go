package ciskema

import "strings"

// Presence is the bit flag recorded for every composed entry.
type Presence uint8

const (
	PresenceSeen           Presence = 1 << iota // Value appeared in the input.
	PresenceDefaultApplied                      // Default value was applied.
	PresenceHidden                              // Hidden collection member.
)

// PresenceMap maps JSON Pointers to Presence flags.
type PresenceMap map[string]Presence

// Has reports whether every bit of flag is set for path.
func (pm PresenceMap) Has(path string, flag Presence) bool { return pm[path]&flag == flag }

// Filter keeps the paths under any include prefix (all when none) and drops
// those under an exclude prefix.
func (pm PresenceMap) Filter(opt PresenceOpt) PresenceMap {
	if pm == nil {
		return nil
	}
	out := make(PresenceMap, len(pm))
	for k, v := range pm {
		if len(opt.Include) > 0 && !hasAnyPrefix(k, opt.Include) {
			continue
		}
		if hasAnyPrefix(k, opt.Exclude) {
			continue
		}
		out[k] = v
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// collectPresence walks the composed tree. Sentinels are skipped since they
// stand for nothing in the input or the schema.
func collectPresence(root *Entry) PresenceMap {
	pm := make(PresenceMap)
	root.walk(func(e *Entry) {
		if e.typ.shape == ShapeSentinel {
			return
		}
		if _, ok := pm[e.path]; ok {
			// a rest child shares its parent's pointer
			return
		}
		var p Presence
		if e.specified {
			p |= PresenceSeen
		} else {
			p |= PresenceDefaultApplied
		}
		if e.hidden {
			p |= PresenceHidden
		}
		pm[e.path] = p
	})
	return pm
}
