package directory

import (
	"strings"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// Filter applies query to doctors and keeps their order. All filters must
// match; an empty text or the "All Specializations" value matches anything.
func Filter(doctors []*types.Doctor, query *types.DoctorQuery) []*types.Doctor {
	if query == nil {
		query = &types.DoctorQuery{}
	}

	text := strings.ToLower(strings.TrimSpace(query.Text))
	out := make([]*types.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if text != "" && !matchesText(d, text) {
			continue
		}
		if !matchesSpecialization(d, query.Specialization) {
			continue
		}
		if query.AvailableOnly && !d.Available {
			continue
		}
		out = append(out, d)
	}
	return out
}

func matchesText(d *types.Doctor, lowered string) bool {
	return strings.Contains(strings.ToLower(d.Name), lowered) ||
		strings.Contains(strings.ToLower(d.Specialization), lowered) ||
		strings.Contains(strings.ToLower(d.Location), lowered)
}

func matchesSpecialization(d *types.Doctor, specialization string) bool {
	if specialization == "" || specialization == types.AllSpecializations {
		return true
	}
	return d.Specialization == specialization
}
