package models

import "strings"

type Section string

const (
	SectionOverview     Section = "Overview"
	SectionRegistration Section = "Registration"
	SectionParticipants Section = "Participants"
	SectionLocation     Section = "Location"
	SectionGeneral      Section = "General"
)

// SectionRule maps a case-sensitive text prefix to a section label.
type SectionRule struct {
	Prefix string
	Label  Section
}

// SectionRules is evaluated in order; the first matching prefix wins.
var SectionRules = []SectionRule{
	{Prefix: "Overview:", Label: SectionOverview},
	{Prefix: "Registration:", Label: SectionRegistration},
	{Prefix: "Participants:", Label: SectionParticipants},
	{Prefix: "Location:", Label: SectionLocation},
}

func (s Section) Lower() string {
	return strings.ToLower(string(s))
}
