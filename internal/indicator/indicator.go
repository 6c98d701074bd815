// Package indicator describes the indicators the pipeline collects and how
// each one is aggregated to annual resolution.
package indicator

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
)

// Indicator is one row of the indicator catalog.
type Indicator struct {
	Code string `csv:"code"`
	Name string `csv:"name,omitempty"`
	Geo  string `csv:"geo,omitempty"`
}

// LoadCatalog reads the indicator catalog (columns code, name, geo).
// Name defaults to the code and geo to defaultGeo.
func LoadCatalog(path, defaultGeo string) ([]Indicator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	inds, err := ParseCatalog(bytes.NewReader(b), defaultGeo)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return inds, nil
}

// ParseCatalog decodes a catalog from r.
func ParseCatalog(r io.Reader, defaultGeo string) ([]Indicator, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, err
	}
	var out []Indicator
	for {
		var ind Indicator
		err := dec.Decode(&ind)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ind.Code = strings.TrimSpace(ind.Code)
		if ind.Code == "" {
			continue
		}
		if strings.TrimSpace(ind.Name) == "" {
			ind.Name = ind.Code
		}
		if strings.TrimSpace(ind.Geo) == "" {
			ind.Geo = defaultGeo
		}
		out = append(out, ind)
	}
	return out, nil
}

// WriteCatalog encodes indicators as a catalog CSV.
func WriteCatalog(w io.Writer, inds []Indicator) error {
	b, err := csvutil.Marshal(inds)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Class selects how an indicator is reduced to one value per year.
type Class int

const (
	// Unclassified columns follow the configured fallback policy.
	Unclassified Class = iota
	// Continuous indicators are flows: summed over a year and interpolated across gaps.
	Continuous
	// Discrete indicators are stocks or rates: averaged over a year.
	Discrete
)

func (c Class) String() string {
	switch c {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return "unclassified"
	}
}

// Classes maps readable indicator names to their class.
type Classes map[string]Class

// NewClasses builds the class lookup from the two configured lists.
func NewClasses(continuous, discrete []string) Classes {
	c := make(Classes, len(continuous)+len(discrete))
	for _, n := range continuous {
		c[n] = Continuous
	}
	for _, n := range discrete {
		c[n] = Discrete
	}
	return c
}

// Of returns the class of name.
func (c Classes) Of(name string) Class { return c[name] }

// Stem strips the stage suffixes from a formatted file name stem, leaving
// the source code: "namq_10_gdp_raw_formatted" -> "namq_10_gdp".
func Stem(stem string) string {
	stem = strings.ReplaceAll(stem, "_raw_formatted", "")
	return strings.ReplaceAll(stem, "_formatted", "")
}

// ReadableName maps a formatted file stem to its readable column name,
// falling back to the code itself.
func ReadableName(stem string, names map[string]string) string {
	code := Stem(stem)
	if n, ok := names[code]; ok && n != "" {
		return n
	}
	return code
}
