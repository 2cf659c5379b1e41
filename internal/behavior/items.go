package behavior

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// Phase is the session an item rating belongs to
type Phase string

// Phases in source order
const (
	Pre  Phase = "pre"
	Post Phase = "post"
)

// Phases lists the phases in the order the RDM rows enumerate them
var Phases = []Phase{Pre, Post}

// ItemID identifies one row of an item-level RDM
type ItemID struct {
	Subject string
	Phase   Phase
	Item    int
}

func (id ItemID) String() string {
	return fmt.Sprintf("sub-%s|%s|%02d", id.Subject, id.Phase, id.Item)
}

// ParseItemID is the inverse of ItemID.String
func ParseItemID(s string) (ItemID, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return ItemID{}, errors.InvalidInput(fmt.Sprintf("malformed item id %q", s))
	}
	phase := Phase(parts[1])
	if phase != Pre && phase != Post {
		return ItemID{}, errors.InvalidInput(fmt.Sprintf("item id %q: unknown phase %q", s, parts[1]))
	}
	item, err := strconv.Atoi(parts[2])
	if err != nil || item < 1 {
		return ItemID{}, errors.InvalidInput(fmt.Sprintf("item id %q: bad item number", s))
	}
	return ItemID{Subject: refdata.NormalizePID(parts[0]), Phase: phase, Item: item}, nil
}

// ItemIDs enumerates subject × {pre, post} × item 1..items, subject slowest
func ItemIDs(roster []refdata.Subject, items int) []ItemID {
	ids := make([]ItemID, 0, len(roster)*len(Phases)*items)
	for _, s := range roster {
		for _, phase := range Phases {
			for i := 1; i <= items; i++ {
				ids = append(ids, ItemID{Subject: s.PID, Phase: phase, Item: i})
			}
		}
	}
	return ids
}
