package protocol

import (
	"fmt"
	"sort"
)

// T90Table maps response time names to device codes in both directions.
// It is immutable once built.
type T90Table struct {
	byName map[string]int
	byCode map[int]string
}

// DefaultT90Settings are the IGA 6 response times.
var DefaultT90Settings = map[string]int{
	"intrinsic": 0,
	"0.01s":     1,
	"0.05s":     2,
	"0.25s":     3,
	"1s":        4,
	"3s":        5,
	"10s":       6,
}

// NewT90Table builds a table from name -> code pairs. Codes must be unique,
// non-negative and names non-empty.
func NewT90Table(settings map[string]int) (*T90Table, error) {
	if len(settings) == 0 {
		return nil, fmt.Errorf("t90 table is empty")
	}
	t := &T90Table{
		byName: make(map[string]int, len(settings)),
		byCode: make(map[int]string, len(settings)),
	}
	for name, code := range settings {
		if name == "" {
			return nil, fmt.Errorf("t90 table: empty name for code %d", code)
		}
		if code < 0 {
			return nil, fmt.Errorf("t90 table: negative code %d for %q", code, name)
		}
		if other, dup := t.byCode[code]; dup {
			return nil, fmt.Errorf("t90 table: code %d used by both %q and %q", code, other, name)
		}
		t.byName[name] = code
		t.byCode[code] = name
	}
	return t, nil
}

// DefaultT90Table returns the table built from DefaultT90Settings.
func DefaultT90Table() *T90Table {
	t, err := NewT90Table(DefaultT90Settings)
	if err != nil {
		panic(err)
	}
	return t
}

// Code returns the device code for name.
func (t *T90Table) Code(name string) (int, error) {
	code, ok := t.byName[name]
	if !ok {
		return 0, &UnknownNameError{Name: name, Valid: t.Names()}
	}
	return code, nil
}

// Name returns the setting name for a device code.
func (t *T90Table) Name(code int) (string, error) {
	name, ok := t.byCode[code]
	if !ok {
		return "", &UnknownCodeError{Code: code}
	}
	return name, nil
}

// Names lists the settings ordered by code.
func (t *T90Table) Names() []string {
	codes := make([]int, 0, len(t.byCode))
	for c := range t.byCode {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = t.byCode[c]
	}
	return names
}
