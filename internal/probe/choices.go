package probe

import (
	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"
)

// minConfirmedChoices is the evidence needed before a list is accepted;
// a single accidental match does not make a choice list
const minConfirmedChoices = 2

// choiceLists are the curated label sets tried against string parameters, in order
var choiceLists = [][]string{
	{"Concert Hall", "Plate", "Room", "Chamber", "Ambience", "Cathedral", "Spring", "Nonlin"},
	{"1970s", "1980s", "Now", "Vintage", "Modern", "Classic"},
	{"1", "2", "3", "4", "5", "6", "7", "8"},
	{"Low", "Medium", "High"},
	{"On", "Off"},
}

// detectChoices returns the first curated list with enough confirmed labels
func (p *Prober) detectChoices(h host.Host, name string) []string {
	for _, list := range choiceLists {
		var confirmed []string
		for _, label := range list {
			if err := safeSet(h, name, types.String(label)); err != nil {
				continue
			}
			got, err := safeGet(h, name)
			if err != nil {
				continue
			}
			if s, ok := got.AsString(); ok && s == label {
				confirmed = append(confirmed, label)
			}
		}
		if len(confirmed) >= minConfirmedChoices {
			return confirmed
		}
	}
	return nil
}
