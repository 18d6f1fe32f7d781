// Package units resolves unit strings attached to table columns. A small
// built-in table covers the physical units that show up in astronomical
// catalogs; anything else is accepted as an ad-hoc symbolic unit rather than
// rejected. Resolution is pure, so resolved units are cached process-wide
// keyed by the exact unit string.
package units

import (
	"sync"
)

// Unit is a resolved unit handle. Two resolutions of the same string within
// one process return the same handle.
type Unit struct {
	name     string
	physical string // long name for recognized units, empty for symbolic ones
}

// String returns the unit string exactly as it was resolved
func (u *Unit) String() string {
	return u.name
}

// Physical returns the long name of a recognized physical unit, or the
// empty string for an ad-hoc symbolic unit.
func (u *Unit) Physical() string {
	return u.physical
}

// Symbolic reports whether the unit was defined ad hoc rather than found in
// the recognized-unit table.
func (u *Unit) Symbolic() bool {
	return u.physical == ""
}

// recognized maps unit strings, exactly as written, to their long names.
// Compound expressions and SI prefixes are not interpreted: "mJy" resolves
// only because it is listed, not because "m"+"Jy" is.
var recognized = map[string]string{
	"Jy":     "jansky",
	"mJy":    "millijansky",
	"uJy":    "microjansky",
	"mag":    "magnitude",
	"deg":    "degree",
	"rad":    "radian",
	"arcmin": "arcminute",
	"arcsec": "arcsecond",
	"mas":    "milliarcsecond",
	"m":      "meter",
	"cm":     "centimeter",
	"km":     "kilometer",
	"AU":     "astronomical unit",
	"pc":     "parsec",
	"kpc":    "kiloparsec",
	"Mpc":    "megaparsec",
	"s":      "second",
	"ms":     "millisecond",
	"d":      "day",
	"yr":     "year",
	"a":      "year",
	"Hz":     "hertz",
	"kHz":    "kilohertz",
	"MHz":    "megahertz",
	"GHz":    "gigahertz",
	"g":      "gram",
	"kg":     "kilogram",
	"K":      "kelvin",
	"erg":    "erg",
	"J":      "joule",
	"W":      "watt",
	"eV":     "electronvolt",
	"keV":    "kiloelectronvolt",
	"ct":     "count",
	"pix":    "pixel",
	"Angstrom": "angstrom",
	"um":     "micrometer",
	"nm":     "nanometer",
	"km/s":   "kilometer per second",
	"m/s":    "meter per second",
	"ct/s":   "count per second",
	"erg/s":  "erg per second",
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Unit)
)

// Resolve returns the unit for the given string. Recognized strings resolve
// to physical units; unrecognized strings are defined as symbolic units.
// Resolve never fails.
func Resolve(s string) *Unit {
	cacheMu.RLock()
	u, ok := cache[s]
	cacheMu.RUnlock()
	if ok {
		return u
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if u, ok = cache[s]; ok {
		return u
	}
	u = &Unit{name: s, physical: recognized[s]}
	cache[s] = u
	return u
}
