package models

// Feature is one named value of a feature record. Values are float64 for
// numeric features and string for categorical ones.
type Feature struct {
	Name  string
	Value interface{}
}

// FeatureRecord is the flat feature mapping produced once per patient.
// PatientID is kept apart from Features so it can always be written first.
type FeatureRecord struct {
	PatientID string
	Features  []Feature
}

// Len returns the number of features, not counting the patient identifier.
func (r FeatureRecord) Len() int {
	return len(r.Features)
}

// Get returns the value of the named feature.
func (r FeatureRecord) Get(name string) (interface{}, bool) {
	for _, f := range r.Features {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the feature names in record order.
func (r FeatureRecord) Names() []string {
	names := make([]string, len(r.Features))
	for i, f := range r.Features {
		names[i] = f.Name
	}
	return names
}

// PatientDir is one patient subdirectory of a batch root.
type PatientDir struct {
	ID   string
	Path string
}
