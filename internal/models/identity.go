package models

type Section string

const (
	SectionDirectory Section = "directory"
	SectionDialplan  Section = "dialplan"
)

type Direction string

const (
	DirectionInternal  Direction = "internal"
	DirectionInbound   Direction = "inbound"
	DirectionOutbound  Direction = "outbound"
	DirectionEmergency Direction = "emergency"
	DirectionIVR       Direction = "ivr"
)

// ResolvedIdentity is the clean result of parsing one xml_curl request.
// It lives only for the duration of that request.
type ResolvedIdentity struct {
	Tenant      *Tenant
	Extension   *Extension
	Section     Section
	User        string
	Context     string
	Destination string
	Direction   Direction
}
