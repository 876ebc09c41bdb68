// Package cfg decodes raw configuration maps into typed settings
// structs. Rule categories and driver settings arrive from TOML as
// map[string]any; Decode turns them into their concrete structs and
// applies struct-provided defaults.
package cfg

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Setter is implemented by settings structs that carry their own
// defaults. Decode calls ApplyDefaults after a successful decode.
type Setter interface {
	ApplyDefaults()
}

// Decode decodes the raw input map into the target pointer c.
func Decode(input map[string]any, c any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  c,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return err
	}
	if s, ok := c.(Setter); ok {
		s.ApplyDefaults()
	}
	return nil
}

// DecodeWithUnused decodes input into c and returns any unused keys,
// sorted, so the caller can warn about config that had no effect.
func DecodeWithUnused(input map[string]any, c any) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   c,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, err
	}
	if s, ok := c.(Setter); ok {
		s.ApplyDefaults()
	}
	unused := md.Unused
	sort.Strings(unused)
	return unused, nil
}

// MustDecodeStrict decodes input into c and fails when any key is
// unused. Tests use this to catch dead configuration.
func MustDecodeStrict(input map[string]any, c any) error {
	unused, err := DecodeWithUnused(input, c)
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		return fmt.Errorf("unused config keys: %v", unused)
	}
	return nil
}
