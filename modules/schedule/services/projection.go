package services

import (
	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
)

// BuildMarkerOptions merges the status and client catalogs into the single
// assignable-marker list shown by pickers. Pure; recompute whenever either
// catalog changes. Disabled entries are skipped. Typed client variants are
// composed at selection time, so only the bare client appears here.
func BuildMarkerOptions(statuses []types.Status, clients []types.Client) []types.MarkerOption {
	out := make([]types.MarkerOption, 0, len(statuses)+len(clients))
	for _, s := range statuses {
		if !s.IsEnabled {
			continue
		}
		out = append(out, types.MarkerOption{
			ID:    markerid.Encode(markerid.Status(s.ID)),
			Name:  s.Name,
			Color: s.Color,
			Kind:  markerid.KindStatus,
		})
	}
	for _, c := range clients {
		if !c.IsEnabled {
			continue
		}
		out = append(out, types.MarkerOption{
			ID:    markerid.Encode(markerid.Client(c.ID)),
			Name:  c.Name,
			Color: c.Color,
			Kind:  markerid.KindClient,
		})
	}
	return out
}
