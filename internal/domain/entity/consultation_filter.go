package entity

// ConsultationFilter is a domain-level filter for listing consultations.
// Used by repository layer to avoid coupling with delivery DTOs.
type ConsultationFilter struct {
	Statuses []ConsultationStatus
	Limit    int
	Offset   int
}
