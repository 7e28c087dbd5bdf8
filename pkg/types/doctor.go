package types

// AllSpecializations disables the specialization filter in a doctor search.
const AllSpecializations = "All Specializations"

// TimeSlot is a bookable time unit owned by a single doctor
type TimeSlot struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

// Doctor represents a doctor in the directory catalog
type Doctor struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Specialization string     `json:"specialization"`
	Image          string     `json:"image,omitempty"`
	Experience     int        `json:"experience"`
	Rating         float64    `json:"rating"`
	Reviews        int        `json:"reviews"`
	Location       string     `json:"location"`
	Fees           float64    `json:"fees"`
	Available      bool       `json:"available"`
	Bio            string     `json:"bio"`
	Qualifications []string   `json:"qualifications"`
	Languages      []string   `json:"languages"`
	AvailableSlots []TimeSlot `json:"availableSlots"`
}

// Slot returns the slot with the given id, or nil.
func (d *Doctor) Slot(slotID string) *TimeSlot {
	for i := range d.AvailableSlots {
		if d.AvailableSlots[i].ID == slotID {
			return &d.AvailableSlots[i]
		}
	}
	return nil
}

// OpenSlots counts slots whose available flag is still set.
func (d *Doctor) OpenSlots() int {
	n := 0
	for _, slot := range d.AvailableSlots {
		if slot.Available {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers never alias catalog state.
func (d *Doctor) Clone() *Doctor {
	cp := *d
	cp.Qualifications = append([]string(nil), d.Qualifications...)
	cp.Languages = append([]string(nil), d.Languages...)
	cp.AvailableSlots = append([]TimeSlot(nil), d.AvailableSlots...)
	return &cp
}

// DoctorQuery represents the filters of a directory search
type DoctorQuery struct {
	Text           string `json:"search,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	AvailableOnly  bool   `json:"available,omitempty"`
}
