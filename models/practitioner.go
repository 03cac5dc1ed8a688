package models

// Practitioner is a clinic staff member offering one or more appointment types.
type Practitioner struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	TypeIDs     []string `json:"typeIds,omitempty"`
	// AssignedToPatient marks the practitioner the patient usually sees.
	AssignedToPatient bool `json:"assignedToPatient,omitempty"`
}

// OffersType reports whether the practitioner offers the given appointment type.
func (p Practitioner) OffersType(typeID string) bool {
	for _, id := range p.TypeIDs {
		if id == typeID {
			return true
		}
	}
	return false
}

// PractitionerSelection is a tagged choice of practitioner: either a specific
// practitioner id, or "unspecified" meaning the clinic auto-assigns one at
// confirmation time. Use the constructors; the zero value is unspecified.
type PractitionerSelection struct {
	ID           string `json:"id,omitempty"`
	AutoAssigned bool   `json:"autoAssigned"`
}

// SpecificPractitioner selects the given practitioner explicitly.
func SpecificPractitioner(id string) PractitionerSelection {
	return PractitionerSelection{ID: id}
}

// AutoAssignedPractitioner declines to choose; the backend picks one.
func AutoAssignedPractitioner() PractitionerSelection {
	return PractitionerSelection{AutoAssigned: true}
}

// IsSpecific reports whether a concrete practitioner was chosen.
func (s PractitionerSelection) IsSpecific() bool {
	return !s.AutoAssigned && s.ID != ""
}

// CacheKey is the availability-cache key component for this selection.
func (s PractitionerSelection) CacheKey() string {
	if s.IsSpecific() {
		return s.ID
	}
	return "any"
}

// Equals compares two selections with auto-assignment awareness: two
// unspecified selections are equal regardless of ids carried alongside.
func (s PractitionerSelection) Equals(other PractitionerSelection) bool {
	if !s.IsSpecific() && !other.IsSpecific() {
		return true
	}
	return s.IsSpecific() == other.IsSpecific() && s.ID == other.ID
}
