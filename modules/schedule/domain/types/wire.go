package types

import "github.com/PCISGroup/rosterboard/pkg/markerid"

// MarkerItem is the server-friendly shape of one marker inside a day bucket
// payload. The structured form keeps the backend free of the string grammar.
type MarkerItem struct {
	Kind       string `json:"kind"`
	StatusID   string `json:"status_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	TypeID     string `json:"type_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

func MarkerItemFrom(m markerid.MarkerID) MarkerItem {
	return MarkerItem{
		Kind:       string(m.Kind),
		StatusID:   m.StatusID,
		ClientID:   m.ClientID,
		TypeID:     m.TypeID,
		EmployeeID: m.EmployeeID,
		Raw:        m.Raw,
	}
}

// Marker rebuilds the identifier. Unrecognized kinds come back as opaque
// unknown markers, mirroring the codec's tolerance.
func (it MarkerItem) Marker() markerid.MarkerID {
	switch markerid.Kind(it.Kind) {
	case markerid.KindStatus:
		return markerid.Status(it.StatusID)
	case markerid.KindClient:
		return markerid.Client(it.ClientID)
	case markerid.KindTypedClient:
		return markerid.TypedClient(it.ClientID, it.TypeID)
	case markerid.KindWithEmployee:
		return markerid.WithEmployee(it.EmployeeID, it.StatusID)
	default:
		return markerid.MarkerID{Kind: markerid.KindUnknown, Raw: it.Raw}
	}
}

func MarkerItemsFrom(markers []markerid.MarkerID) []MarkerItem {
	out := make([]MarkerItem, 0, len(markers))
	for _, m := range markers {
		out = append(out, MarkerItemFrom(m))
	}
	return out
}

func MarkersOf(items []MarkerItem) []markerid.MarkerID {
	out := make([]markerid.MarkerID, 0, len(items))
	for _, it := range items {
		out = append(out, it.Marker())
	}
	return out
}

// LifecycleStateRecord is the wire form of one lifecycle record.
type LifecycleStateRecord struct {
	EmployeeID    string `json:"employee_uuid"`
	Date          string `json:"date"`
	StatusID      string `json:"status_id"`
	State         string `json:"state"`
	Reason        string `json:"reason,omitempty"`
	Note          string `json:"note,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	PostponedDate string `json:"postponed_date,omitempty"`
	IsTBA         bool   `json:"is_tba,omitempty"`
}
