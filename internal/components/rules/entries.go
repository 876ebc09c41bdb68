package rules

import "fmt"

// Entries is the serializable form of one category's lists, as decoded
// from the [rules.<category>] config tables.
type Entries struct {
	Whitelist []string `mapstructure:"whitelist"`
	Blacklist []string `mapstructure:"blacklist"`
}

// FromEntries builds a List starting from the stock defaults and
// applying per-category entries. A configured whitelist replaces the
// default whitelist for that category; blacklist entries are appended.
// The built-in reserved ranges apply regardless.
func FromEntries(byCategory map[Category]Entries) (*List, error) {
	l := Default()
	for cat, e := range byCategory {
		switch cat {
		case Scheme, Port, Host, IP:
			// known category
		default:
			return nil, fmt.Errorf("unknown rule category %q", cat)
		}
		if len(e.Whitelist) > 0 {
			if err := l.Set(Whitelist, cat, e.Whitelist...); err != nil {
				return nil, err
			}
		}
		if len(e.Blacklist) > 0 {
			if err := l.Add(Blacklist, cat, e.Blacklist...); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}
