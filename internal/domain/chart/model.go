package chart

// ToothStatus is the whole-tooth diagnostic state. Face-level state takes
// precedence over it for display decisions, except for missing, which is
// terminal.
type ToothStatus string

const (
	StatusNone    ToothStatus = "none"
	StatusMissing ToothStatus = "missing"
	StatusCaries  ToothStatus = "caries"
	StatusFilled  ToothStatus = "filled"
	StatusCrown   ToothStatus = "crown"
)

func (s ToothStatus) Valid() bool {
	switch s {
	case StatusNone, StatusMissing, StatusCaries, StatusFilled, StatusCrown:
		return true
	}
	return false
}

// Face is one of the five clinically distinguished tooth surfaces.
type Face string

const (
	FaceVestibular Face = "vestibular"
	FaceLingual    Face = "lingual"
	FaceMesial     Face = "mesial"
	FaceDistal     Face = "distal"
	FaceOcclusal   Face = "occlusal"
)

// AllFaces lists faces in the order they are rendered and exported.
var AllFaces = []Face{FaceVestibular, FaceLingual, FaceMesial, FaceDistal, FaceOcclusal}

func (f Face) Valid() bool {
	switch f {
	case FaceVestibular, FaceLingual, FaceMesial, FaceDistal, FaceOcclusal:
		return true
	}
	return false
}

// FaceState is the diagnostic state of a single face.
type FaceState string

const (
	FaceNone   FaceState = "none"
	FaceCaries FaceState = "caries"
	FaceFilled FaceState = "filled"
	FaceCrown  FaceState = "crown"
)

func (s FaceState) Valid() bool {
	switch s {
	case FaceNone, FaceCaries, FaceFilled, FaceCrown:
		return true
	}
	return false
}

// TreatmentStatus marks a planned treatment as pending or done.
type TreatmentStatus string

const (
	TreatmentPlanned   TreatmentStatus = "planned"
	TreatmentCompleted TreatmentStatus = "completed"
)

func (s TreatmentStatus) Valid() bool {
	return s == TreatmentPlanned || s == TreatmentCompleted
}

// Treatment is a plan attached to a tooth, independent of diagnostic state.
type Treatment struct {
	Name   string          `json:"name"`
	Status TreatmentStatus `json:"status"`
}

// ToothRecord is the full diagnostic state of one tooth.
type ToothRecord struct {
	Status    ToothStatus        `json:"status"`
	Faces     map[Face]FaceState `json:"faces"`
	Treatment *Treatment         `json:"treatment,omitempty"`
	Notes     string             `json:"notes"`
}

// FDITeeth is the fixed 32-position permanent dentition in FDI notation,
// upper arch right-to-left then lower arch left-to-right.
var FDITeeth = []int{
	18, 17, 16, 15, 14, 13, 12, 11,
	21, 22, 23, 24, 25, 26, 27, 28,
	38, 37, 36, 35, 34, 33, 32, 31,
	41, 42, 43, 44, 45, 46, 47, 48,
}

var fdiSet = func() map[int]bool {
	set := make(map[int]bool, len(FDITeeth))
	for _, t := range FDITeeth {
		set[t] = true
	}
	return set
}()

// ValidTooth reports whether n is a valid FDI permanent tooth number.
func ValidTooth(n int) bool {
	return fdiSet[n]
}

// DefaultTooth returns the canonical healthy record: status none, every face
// none, no treatment, empty notes.
func DefaultTooth() ToothRecord {
	return Canonicalize(ToothRecord{})
}

// Canonicalize produces a fully-populated record so downstream logic never
// special-cases absent fields: missing faces default to none, unknown face
// keys are dropped, and a missing tooth is stripped of per-face annotations.
func Canonicalize(r ToothRecord) ToothRecord {
	if r.Status == "" {
		r.Status = StatusNone
	}

	faces := make(map[Face]FaceState, len(AllFaces))
	for _, f := range AllFaces {
		faces[f] = FaceNone
	}
	if r.Status != StatusMissing {
		for f, s := range r.Faces {
			if f.Valid() && s.Valid() {
				faces[f] = s
			}
		}
	}
	r.Faces = faces

	return r
}

// DisplayState is the derived state used for rendering/coloring a tooth.
type DisplayState string

const (
	DisplayNone    DisplayState = "none"
	DisplayMissing DisplayState = "missing"
	DisplayCaries  DisplayState = "caries"
	DisplayFilled  DisplayState = "filled"
	DisplayCrown   DisplayState = "crown"
)

// Display derives the rendering state of a canonical record. Missing is
// terminal. Any face in caries wins, then filled, then crown, then the
// whole-tooth status.
func (r ToothRecord) Display() DisplayState {
	if r.Status == StatusMissing {
		return DisplayMissing
	}

	var hasFilled, hasCrown bool
	for _, s := range r.Faces {
		switch s {
		case FaceCaries:
			return DisplayCaries
		case FaceFilled:
			hasFilled = true
		case FaceCrown:
			hasCrown = true
		}
	}
	if hasFilled {
		return DisplayFilled
	}
	if hasCrown {
		return DisplayCrown
	}

	switch r.Status {
	case StatusCaries:
		return DisplayCaries
	case StatusFilled:
		return DisplayFilled
	case StatusCrown:
		return DisplayCrown
	}
	return DisplayNone
}

// Probing site indexes for periodontal records: three buccal positions then
// three lingual/palatal positions, distal-center-mesial on each side.
const (
	SiteBuccalDistal = iota
	SiteBuccalCenter
	SiteBuccalMesial
	SiteLingualDistal
	SiteLingualCenter
	SiteLingualMesial
	NumSites
)

// PerioRecord holds one tooth's periodontal measurements.
type PerioRecord struct {
	Depths    [NumSites]int  `json:"depths"`
	Bleeding  [NumSites]bool `json:"bleeding"`
	Pus       bool           `json:"pus"`
	Mobility  int            `json:"mobility"`  // 0-3
	Furcation int            `json:"furcation"` // 0-3, displayed as 0, I, II, III
}

// HygieneRecord holds one tooth's four face-plaque flags.
type HygieneRecord struct {
	Vestibular bool `json:"vestibular"`
	Distal     bool `json:"distal"`
	Lingual    bool `json:"lingual"`
	Mesial     bool `json:"mesial"`
}

// NumHygieneFaces is the number of faces examined for plaque.
const NumHygieneFaces = 4

func (h HygieneRecord) plaqueCount() int {
	n := 0
	for _, b := range [NumHygieneFaces]bool{h.Vestibular, h.Distal, h.Lingual, h.Mesial} {
		if b {
			n++
		}
	}
	return n
}

// PatientChart is the per-patient snapshot persisted as one document.
type PatientChart struct {
	PatientID string                `json:"patient_id"`
	Teeth     map[int]ToothRecord   `json:"teeth"`
	Perio     map[int]PerioRecord   `json:"perio"`
	Hygiene   map[int]HygieneRecord `json:"hygiene"`
}

func newPatientChart(patientID string) *PatientChart {
	return &PatientChart{
		PatientID: patientID,
		Teeth:     make(map[int]ToothRecord),
		Perio:     make(map[int]PerioRecord),
		Hygiene:   make(map[int]HygieneRecord),
	}
}
