// Package pairs enumerates ordered subject pairs and labels each as a real
// (interacting) pair or a pseudo pair.
package pairs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/io"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// Pair types
const (
	Real   = "Real"
	Pseudo = "Pseudo"
)

// Header is the column layout of the pair list file
var Header = []string{"Subject1", "Subject2", "Pair_Type"}

// Pair is one ordered subject pair
type Pair struct {
	Type     string
	Subject1 string
	Subject2 string
}

// ParseID splits a pair id such as "sub-001_sub-002" or "001_002" into
// normalised PIDs
func ParseID(id string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(id), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.InvalidInput(fmt.Sprintf("malformed pair id %q", id))
	}
	return refdata.NormalizePID(parts[0]), refdata.NormalizePID(parts[1]), nil
}

// Build returns every ordered pair of distinct participants. A pair is Real
// when either orientation appears among realIDs. Real pairs sort first, then
// by Subject1 and Subject2. When participants is empty the participants are
// the subjects named by realIDs.
func Build(realIDs []string, participants []string) ([]Pair, error) {
	realSet := make(map[[2]string]bool, len(realIDs))
	named := make(map[string]bool)
	for _, id := range realIDs {
		a, b, err := ParseID(id)
		if err != nil {
			return nil, err
		}
		realSet[[2]string{a, b}] = true
		named[a] = true
		named[b] = true
	}

	set := make(map[string]bool)
	if len(participants) == 0 {
		set = named
	} else {
		for _, p := range participants {
			set[refdata.NormalizePID(p)] = true
		}
		for s := range named {
			if !set[s] {
				return nil, errors.InvalidInput(fmt.Sprintf("real pair names subject %s outside the participant list", s))
			}
		}
	}

	subjects := make([]string, 0, len(set))
	for s := range set {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	out := make([]Pair, 0, len(subjects)*(len(subjects)-1))
	for _, a := range subjects {
		for _, b := range subjects {
			if a == b {
				continue
			}
			typ := Pseudo
			if realSet[[2]string{a, b}] || realSet[[2]string{b, a}] {
				typ = Real
			}
			out = append(out, Pair{Type: typ, Subject1: a, Subject2: b})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == Real
		}
		if out[i].Subject1 != out[j].Subject1 {
			return out[i].Subject1 < out[j].Subject1
		}
		return out[i].Subject2 < out[j].Subject2
	})

	return out, nil
}

// Write saves the pair list
func Write(path string, list []Pair) error {
	records := make([][]string, 0, len(list)+1)
	records = append(records, Header)
	for _, p := range list {
		records = append(records, []string{p.Subject1, p.Subject2, p.Type})
	}
	return io.WriteCSV(path, records)
}

// Load reads a pair list, stripping "sub-" prefixes and padding PIDs
func Load(path string) ([]Pair, error) {
	records, err := io.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput(path + ": empty pair list")
	}

	col := make(map[string]int)
	for i, h := range records[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("%s: missing column %q", path, name))
		}
	}

	list := make([]Pair, 0, len(records)-1)
	for _, rec := range records[1:] {
		typ := strings.TrimSpace(rec[col["Pair_Type"]])
		if typ != Real && typ != Pseudo {
			return nil, errors.InvalidInput(fmt.Sprintf("%s: unknown pair type %q", path, typ))
		}
		list = append(list, Pair{
			Type:     typ,
			Subject1: refdata.NormalizePID(rec[col["Subject1"]]),
			Subject2: refdata.NormalizePID(rec[col["Subject2"]]),
		})
	}
	return list, nil
}
