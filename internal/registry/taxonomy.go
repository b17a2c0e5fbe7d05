// Package registry handles the NPPES provider registry: locating and
// filtering the bulk dissemination file and loading the filtered table
// for matching.
package registry

// painTaxonomyCodes are the specialty codes kept regardless of location.
var painTaxonomyCodes = map[string]struct{}{
	"261QP3300X": {}, // Pain Clinic (facility)
	"208100000X": {}, // Pain Medicine
	"2081P2900X": {}, // Pain Medicine (PM&R)
	"2081P0010X": {}, // Interventional Pain Medicine
	"207L00000X": {}, // Anesthesiology
	"204D00000X": {}, // Neuromusculoskeletal Medicine
	"207RE0101X": {}, // Endocrinology
	"208VP0014X": {}, // Interventional Pain Medicine (PM&R)
	"2084P0800X": {}, // Psychiatry - Pain Medicine
	"2083P0011X": {}, // Preventive Medicine - Sports Medicine
	"364SP0808X": {}, // Pain Management Nurse Practitioner
	"1223P0106X": {}, // Orofacial Pain Dentist
	"225X00000X": {}, // Occupational Therapist
	"225100000X": {}, // Physical Therapist
	"2251P0200X": {}, // Physical Therapist - Orthopedic
	"332B00000X": {}, // Durable Medical Equipment
}

// medicalOrgCodes are broader facility codes; organizations carrying one
// are kept when they sit in a clinic postal code, and the set is unioned
// with the pain codes for taxonomy filtering.
var medicalOrgCodes = map[string]struct{}{
	"261QP3300X": {}, // Pain Clinic
	"261QM1300X": {}, // Multi-Specialty Clinic
	"261QM1200X": {}, // MRI Clinic
	"261QR0200X": {}, // Radiology Clinic
	"261QR0400X": {}, // Rehabilitation Clinic
	"261QP2300X": {}, // Primary Care Clinic
	"261QX0203X": {}, // Ambulatory Surgical Center
}

// CodesOfInterest returns the union of the pain and medical-org taxonomy
// sets used by the row filter.
func CodesOfInterest() map[string]struct{} {
	union := make(map[string]struct{}, len(painTaxonomyCodes)+len(medicalOrgCodes))
	for code := range painTaxonomyCodes {
		union[code] = struct{}{}
	}
	for code := range medicalOrgCodes {
		union[code] = struct{}{}
	}
	return union
}
