// Package refdata loads the reference inputs shared by every stage: the
// subject roster, the atlas labels and the real-pair list.
package refdata

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"strconv"
	"strings"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Networks maps Yeo 7-network codes to names
var Networks = []string{
	"NA",
	"Visual",
	"Somatomotor",
	"Dorsal Attention",
	"Ventral Attention",
	"Limbic",
	"Frontoparietal",
	"Default",
}

// Subject is one roster entry
type Subject struct {
	PID string
	Age float64
	Sex string
}

// Parcel is one atlas region; Index is 1-based
type Parcel struct {
	Index   int
	Label   string
	Network string
}

// Bundle is the immutable reference data handed to every stage
type Bundle struct {
	Roster    []Subject
	Parcels   []Parcel
	RealPairs []string

	// Version is a digest over the three source files
	Version string
}

// NormalizePID strips an optional "sub-" prefix and zero-pads numeric ids to 3 digits
func NormalizePID(raw string) string {
	pid := strings.TrimPrefix(strings.TrimSpace(raw), "sub-")
	if n, err := strconv.Atoi(pid); err == nil && n >= 0 {
		return fmt.Sprintf("%03d", n)
	}
	return pid
}

// Load reads the three reference files into a Bundle. Any missing file is fatal.
func Load(rosterPath, labelsPath, realPairsPath string) (*Bundle, error) {
	digest := sha256.New()

	rosterRecs, err := readTable(rosterPath, digest)
	if err != nil {
		return nil, err
	}
	labelRecs, err := readTable(labelsPath, digest)
	if err != nil {
		return nil, err
	}
	pairRecs, err := readTable(realPairsPath, digest)
	if err != nil {
		return nil, err
	}

	b := &Bundle{}
	if b.Roster, err = parseRoster(rosterRecs); err != nil {
		return nil, errors.Wrapf(err, "roster %s", rosterPath)
	}
	if b.Parcels, err = parseParcels(labelRecs); err != nil {
		return nil, errors.Wrapf(err, "atlas labels %s", labelsPath)
	}
	if b.RealPairs, err = parseRealPairs(pairRecs); err != nil {
		return nil, errors.Wrapf(err, "real pairs %s", realPairsPath)
	}
	b.Version = hex.EncodeToString(digest.Sum(nil))[:16]

	return b, nil
}

// PIDs returns roster PIDs in roster order
func (b *Bundle) PIDs() []string {
	pids := make([]string, len(b.Roster))
	for i, s := range b.Roster {
		pids[i] = s.PID
	}
	return pids
}

// Parcel returns the parcel with the given 1-based index
func (b *Bundle) Parcel(index int) (Parcel, bool) {
	if index >= 1 && index <= len(b.Parcels) && b.Parcels[index-1].Index == index {
		return b.Parcels[index-1], true
	}
	for _, p := range b.Parcels {
		if p.Index == index {
			return p, true
		}
	}
	return Parcel{}, false
}

func readTable(path string, digest hash.Hash) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.MissingInput(path, err)
	}
	digest.Write(data)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("parsing %s: %w", path, err))
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s: empty table", path))
	}
	return records, nil
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	out := make(map[string]int, len(names))
	for _, n := range names {
		i, ok := idx[n]
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("missing column %q", n))
		}
		out[n] = i
	}
	return out, nil
}

func parseRoster(records [][]string) ([]Subject, error) {
	col, err := columnIndex(records[0], "PID", "age", "sex_char")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	roster := make([]Subject, 0, len(records)-1)
	for line, rec := range records[1:] {
		pid := NormalizePID(rec[col["PID"]])
		if seen[pid] {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate PID %s", pid))
		}
		seen[pid] = true

		age, err := strconv.ParseFloat(strings.TrimSpace(rec[col["age"]]), 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("line %d: bad age %q", line+2, rec[col["age"]]))
		}
		roster = append(roster, Subject{
			PID: pid,
			Age: age,
			Sex: strings.TrimSpace(rec[col["sex_char"]]),
		})
	}
	return roster, nil
}

func parseParcels(records [][]string) ([]Parcel, error) {
	col, err := columnIndex(records[0], "one_based", "label", "Yeo_7network")
	if err != nil {
		return nil, err
	}

	parcels := make([]Parcel, 0, len(records)-1)
	for line, rec := range records[1:] {
		index, err := strconv.Atoi(strings.TrimSpace(rec[col["one_based"]]))
		if err != nil || index < 1 {
			return nil, errors.InvalidInput(fmt.Sprintf("line %d: bad parcel index %q", line+2, rec[col["one_based"]]))
		}
		parcels = append(parcels, Parcel{
			Index:   index,
			Label:   strings.TrimSpace(rec[col["label"]]),
			Network: NetworkName(strings.TrimSpace(rec[col["Yeo_7network"]])),
		})
	}
	return parcels, nil
}

// NetworkName maps a numeric network code to its name; non-numeric or unknown codes pass through
func NetworkName(code string) string {
	if n, err := strconv.Atoi(code); err == nil && n >= 0 && n < len(Networks) {
		return Networks[n]
	}
	return code
}

func parseRealPairs(records [][]string) ([]string, error) {
	col, err := columnIndex(records[0], "PairID")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		ids = append(ids, strings.TrimSpace(rec[col["PairID"]]))
	}
	return ids, nil
}
