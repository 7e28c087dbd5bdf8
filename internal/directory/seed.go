package directory

import (
	"strconv"

	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// Specializations lists the values offered by the search filter, sentinel first.
var Specializations = []string{
	types.AllSpecializations,
	"General Medicine",
	"Cardiologist",
	"Pediatrician",
	"Orthopedic Surgeon",
	"Dermatologist",
	"Neurologist",
}

func slots(doctorID, date string, times []string, unavailable int) []types.TimeSlot {
	out := make([]types.TimeSlot, len(times))
	for i, t := range times {
		out[i] = types.TimeSlot{
			ID:        doctorID + "-" + strconv.Itoa(i+1),
			Time:      t,
			Date:      date,
			Available: i+1 != unavailable,
		}
	}
	return out
}

// SeedDoctors returns a fresh copy of the built-in catalog.
func SeedDoctors() []*types.Doctor {
	return []*types.Doctor{
		{
			ID:             "1",
			Name:           "Dr. Sarah Johnson",
			Specialization: "General Medicine",
			Image:          "/assets/doctor-sarah.jpg",
			Experience:     8,
			Rating:         4.8,
			Reviews:        127,
			Location:       "Downtown Medical Center",
			Fees:           150,
			Available:      true,
			Bio:            "Dr. Sarah Johnson is a dedicated general practitioner with over 8 years of experience in providing comprehensive healthcare services. She specializes in preventive care, chronic disease management, and family medicine.",
			Qualifications: []string{"MBBS", "MD General Medicine", "Board Certified"},
			Languages:      []string{"English", "Spanish", "French"},
			AvailableSlots: slots("1", "2024-08-05",
				[]string{"09:00 AM", "10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"}, 3),
		},
		{
			ID:             "2",
			Name:           "Dr. James Wilson",
			Specialization: "Cardiologist",
			Image:          "/assets/doctor-james.jpg",
			Experience:     15,
			Rating:         4.9,
			Reviews:        203,
			Location:       "Heart Care Institute",
			Fees:           300,
			Available:      true,
			Bio:            "Dr. James Wilson is a renowned cardiologist with 15 years of experience in treating heart conditions. He specializes in interventional cardiology and has performed over 2000 successful procedures.",
			Qualifications: []string{"MBBS", "MD Cardiology", "Fellowship in Interventional Cardiology"},
			Languages:      []string{"English", "German"},
			AvailableSlots: slots("2", "2024-08-06",
				[]string{"08:00 AM", "09:00 AM", "10:00 AM", "01:00 PM", "02:00 PM", "03:00 PM"}, 4),
		},
		{
			ID:             "3",
			Name:           "Dr. Emily Chen",
			Specialization: "Pediatrician",
			Image:          "/assets/doctor-emily.jpg",
			Experience:     10,
			Rating:         4.7,
			Reviews:        156,
			Location:       "Children's Medical Center",
			Fees:           200,
			Available:      true,
			Bio:            "Dr. Emily Chen is a compassionate pediatrician dedicated to providing exceptional care for children from infancy through adolescence. She has extensive experience in developmental pediatrics and childhood nutrition.",
			Qualifications: []string{"MBBS", "MD Pediatrics", "Fellowship in Developmental Pediatrics"},
			Languages:      []string{"English", "Mandarin", "Cantonese"},
			AvailableSlots: slots("3", "2024-08-05",
				[]string{"09:00 AM", "10:30 AM", "11:30 AM", "02:30 PM", "03:30 PM", "04:30 PM"}, 5),
		},
		{
			ID:             "4",
			Name:           "Dr. Michael Rodriguez",
			Specialization: "Orthopedic Surgeon",
			Image:          "/assets/doctor-michael.jpg",
			Experience:     12,
			Rating:         4.8,
			Reviews:        98,
			Location:       "Orthopedic Specialty Clinic",
			Fees:           400,
			Available:      true,
			Bio:            "Dr. Michael Rodriguez is a skilled orthopedic surgeon specializing in sports medicine and joint replacement surgery. He has helped thousands of patients regain mobility and return to active lifestyles.",
			Qualifications: []string{"MBBS", "MS Orthopedics", "Fellowship in Sports Medicine"},
			Languages:      []string{"English", "Spanish", "Portuguese"},
			AvailableSlots: slots("4", "2024-08-07",
				[]string{"08:00 AM", "09:30 AM", "11:00 AM", "01:30 PM", "03:00 PM", "04:30 PM"}, 3),
		},
		{
			ID:             "5",
			Name:           "Dr. Lisa Thompson",
			Specialization: "Dermatologist",
			Image:          "/assets/doctor-lisa.jpg",
			Experience:     9,
			Rating:         4.9,
			Reviews:        142,
			Location:       "Skin Care Center",
			Fees:           250,
			Available:      true,
			Bio:            "Dr. Lisa Thompson is a board-certified dermatologist with expertise in both medical and cosmetic dermatology. She specializes in skin cancer detection, acne treatment, and anti-aging procedures.",
			Qualifications: []string{"MBBS", "MD Dermatology", "Fellowship in Cosmetic Dermatology"},
			Languages:      []string{"English", "Italian"},
			AvailableSlots: slots("5", "2024-08-08",
				[]string{"09:00 AM", "10:15 AM", "11:30 AM", "02:00 PM", "03:15 PM", "04:30 PM"}, 6),
		},
		{
			ID:             "6",
			Name:           "Dr. Robert Kim",
			Specialization: "Neurologist",
			Image:          "/assets/doctor-robert.jpg",
			Experience:     14,
			Rating:         4.8,
			Reviews:        89,
			Location:       "Neuroscience Institute",
			Fees:           350,
			Available:      true,
			Bio:            "Dr. Robert Kim is a distinguished neurologist with extensive experience in treating neurological disorders. He specializes in epilepsy, stroke, and movement disorders, providing cutting-edge treatment options.",
			Qualifications: []string{"MBBS", "MD Neurology", "Fellowship in Epilepsy"},
			Languages:      []string{"English", "Korean", "Japanese"},
			AvailableSlots: slots("6", "2024-08-09",
				[]string{"08:30 AM", "10:00 AM", "11:30 AM", "01:00 PM", "02:30 PM", "04:00 PM"}, 4),
		},
	}
}
