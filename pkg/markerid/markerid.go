// Package markerid encodes and decodes the composite identifiers used for
// day-board markers. The wire grammar is historical and must stay stable:
//
//	status-<id>            fixed catalog status (any other plain id too)
//	client-<id>            client visit, untyped
//	client-<id>_type-<tid> client visit with a schedule-type qualifier
//	with_<emp>_<status>    "With ..." status paired with a second employee
//
// Everything outside the grammar decodes to an opaque Unknown marker and
// round-trips unchanged. Decode never fails.
package markerid

import "strings"

type Kind string

const (
	KindStatus       Kind = "status"
	KindClient       Kind = "client"
	KindTypedClient  Kind = "typed_client"
	KindWithEmployee Kind = "with_employee"
	KindUnknown      Kind = "unknown"
)

// MarkerID is the decoded form of one marker identifier. Exactly the fields
// belonging to Kind are set; Raw is only set for KindUnknown.
type MarkerID struct {
	Kind       Kind
	StatusID   string // KindStatus, KindWithEmployee (base status)
	ClientID   string // KindClient, KindTypedClient
	TypeID     string // KindTypedClient
	EmployeeID string // KindWithEmployee (paired employee)
	Raw        string // KindUnknown
}

const (
	withPrefix   = "with_"
	clientPrefix = "client-"
	typeInfix    = "_type-"
)

func Status(id string) MarkerID { return MarkerID{Kind: KindStatus, StatusID: id} }

func Client(clientID string) MarkerID { return MarkerID{Kind: KindClient, ClientID: clientID} }

func TypedClient(clientID string, typeID string) MarkerID {
	return MarkerID{Kind: KindTypedClient, ClientID: clientID, TypeID: typeID}
}

func WithEmployee(employeeID string, baseStatusID string) MarkerID {
	return MarkerID{Kind: KindWithEmployee, EmployeeID: employeeID, StatusID: baseStatusID}
}

func Encode(m MarkerID) string {
	switch m.Kind {
	case KindStatus:
		return m.StatusID
	case KindClient:
		return clientPrefix + m.ClientID
	case KindTypedClient:
		return clientPrefix + m.ClientID + typeInfix + m.TypeID
	case KindWithEmployee:
		return withPrefix + m.EmployeeID + "_" + m.StatusID
	default:
		return m.Raw
	}
}

// Decode recognizes, in order: with-employee, typed client, bare client,
// plain status. Malformed with_/client- forms, and anything outside the
// catalog id alphabet, fall through to Unknown so a stale identifier still
// renders instead of breaking a whole day bucket.
func Decode(s string) MarkerID {
	if rest, ok := strings.CutPrefix(s, withPrefix); ok {
		emp, status, ok := strings.Cut(rest, "_")
		if ok && emp != "" && status != "" {
			return WithEmployee(emp, status)
		}
		return MarkerID{Kind: KindUnknown, Raw: s}
	}
	if rest, ok := strings.CutPrefix(s, clientPrefix); ok {
		if clientID, typeID, ok := strings.Cut(rest, typeInfix); ok {
			if clientID != "" && typeID != "" {
				return TypedClient(clientID, typeID)
			}
			return MarkerID{Kind: KindUnknown, Raw: s}
		}
		if rest != "" {
			return Client(rest)
		}
		return MarkerID{Kind: KindUnknown, Raw: s}
	}
	if !plainStatusID(s) {
		return MarkerID{Kind: KindUnknown, Raw: s}
	}
	return Status(s)
}

// plainStatusID reports whether s fits the catalog id alphabet: letters,
// digits, '-' and '_', at least one character.
func plainStatusID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Base returns the identifier lifecycle state is keyed by: typed client
// variants collapse onto their bare client, everything else is itself.
func (m MarkerID) Base() MarkerID {
	if m.Kind == KindTypedClient {
		return Client(m.ClientID)
	}
	return m
}

// BaseOf is Base over encoded strings.
func BaseOf(s string) string {
	return Encode(Decode(s).Base())
}

// SameBase reports whether two markers share one lifecycle record.
// WithEmployee markers never group, each occurrence is independent.
func SameBase(a MarkerID, b MarkerID) bool {
	if a.Kind == KindWithEmployee || b.Kind == KindWithEmployee {
		return a == b
	}
	return a.Base() == b.Base()
}

// DisplayName returns the catalog-independent fallback name.
func (m MarkerID) DisplayName() string {
	if m.Kind == KindUnknown {
		return "Unknown"
	}
	return Encode(m)
}
