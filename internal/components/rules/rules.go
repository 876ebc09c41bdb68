// Package rules holds the ordered allow/deny pattern rules applied to
// outbound URLs. Scheme and host entries are regular expressions matched
// against the whole value; port and ip entries are exact-match literals.
package rules

import (
	"fmt"
	"regexp"
)

// Category identifies one of the four rule categories.
type Category string

const (
	Scheme Category = "scheme"
	Port   Category = "port"
	Host   Category = "host"
	IP     Category = "ip"
)

// Kind selects the whitelist or the blacklist of a category.
type Kind string

const (
	Whitelist Kind = "whitelist"
	Blacklist Kind = "blacklist"
)

type entry struct {
	raw string
	re  *regexp.Regexp // nil for port/ip literals
}

func (e entry) matches(value string) bool {
	if e.re != nil {
		return e.re.MatchString(value)
	}
	return e.raw == value
}

// List holds whitelist and blacklist entries for all four categories.
// An empty category whitelist means no pattern restriction for that
// category. The built-in reserved address ranges (see reserved.go) are
// applied on top of the ip blacklist and cannot be removed.
type List struct {
	whitelist map[Category][]entry
	blacklist map[Category][]entry
}

// New returns an empty rule list with no restrictions beyond the
// built-in reserved address ranges.
func New() *List {
	return &List{
		whitelist: make(map[Category][]entry),
		blacklist: make(map[Category][]entry),
	}
}

// Default returns the stock rule list: schemes restricted to http/https
// and ports restricted to 80/443.
func Default() *List {
	l := New()
	// These patterns are static and known to compile.
	if err := l.Add(Whitelist, Scheme, "http", "https"); err != nil {
		panic(err)
	}
	if err := l.Add(Whitelist, Port, "80", "443"); err != nil {
		panic(err)
	}
	return l
}

// Add appends values to the given list of a category. Scheme and host
// values are compiled as full-match regular expressions; invalid patterns
// are rejected. Port and ip values are stored verbatim.
func (l *List) Add(kind Kind, cat Category, values ...string) error {
	target := l.whitelist
	if kind == Blacklist {
		target = l.blacklist
	}

	for _, v := range values {
		e := entry{raw: v}
		if cat == Scheme || cat == Host {
			re, err := regexp.Compile("^(?:" + v + ")$")
			if err != nil {
				return fmt.Errorf("invalid %s pattern %q: %w", cat, v, err)
			}
			e.re = re
		}
		target[cat] = append(target[cat], e)
	}
	return nil
}

// Set replaces the given list of a category with values. Passing no
// values clears the list, lifting the restriction for whitelists.
func (l *List) Set(kind Kind, cat Category, values ...string) error {
	target := l.whitelist
	if kind == Blacklist {
		target = l.blacklist
	}
	delete(target, cat)
	if len(values) == 0 {
		return nil
	}
	return l.Add(kind, cat, values...)
}

// HasWhitelist reports whether a whitelist is configured for the category.
func (l *List) HasWhitelist(cat Category) bool {
	return len(l.whitelist[cat]) > 0
}

// InWhitelist reports whether value matches an entry of the category's
// whitelist. An unconfigured whitelist never matches; callers must check
// HasWhitelist first to implement the "empty whitelist = unrestricted"
// contract.
func (l *List) InWhitelist(cat Category, value string) bool {
	return matchAny(l.whitelist[cat], value)
}

// InBlacklist reports whether value matches an entry of the category's
// blacklist.
func (l *List) InBlacklist(cat Category, value string) bool {
	return matchAny(l.blacklist[cat], value)
}

func matchAny(entries []entry, value string) bool {
	for _, e := range entries {
		if e.matches(value) {
			return true
		}
	}
	return false
}
