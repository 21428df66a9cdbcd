package availability

import "github.com/agendasalon/agenda/services/booking-service/internal/model"

// ProfessionalPolicy picks the professional an availability query runs
// against when the caller did not name one. candidates are ordered by id.
type ProfessionalPolicy func(candidates []model.Professional) (model.Professional, bool)

// FirstEligible returns the first professional that is neither suspended nor archived.
func FirstEligible(candidates []model.Professional) (model.Professional, bool) {
	for _, p := range candidates {
		if p.Eligible() {
			return p, true
		}
	}
	return model.Professional{}, false
}
