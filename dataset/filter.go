package dataset

// Filter restricts a dataset to a single analysis population.  Each
// criterion is applied only if its column name is non-empty, so the
// caller controls which of the study, part, compartment and dose
// restrictions are in effect.
type Filter struct {

	// StudyVar names the study identifier column; rows must have
	// the value Study.
	StudyVar string
	Study    float64

	// PartVar names the study-part column; rows must have the
	// value Part.
	PartVar string
	Part    float64

	// CompartmentVar names the compartment code column; rows must
	// have the value Compartment.
	CompartmentVar string
	Compartment    float64

	// DoseVar names the dose column; rows must have one of the
	// values in Doses.
	DoseVar string
	Doses   []float64
}

// Apply returns the subset of ds matching all configured criteria.
func (f *Filter) Apply(ds *Dataset) (*Dataset, error) {

	keep := make([]bool, ds.NumObs())
	for i := range keep {
		keep[i] = true
	}

	match := func(vname string, ok func(float64) bool) error {
		if vname == "" {
			return nil
		}
		x, err := ds.Col(vname)
		if err != nil {
			return err
		}
		for i, v := range x {
			if !ok(v) {
				keep[i] = false
			}
		}
		return nil
	}

	if err := match(f.StudyVar, func(v float64) bool { return v == f.Study }); err != nil {
		return nil, err
	}
	if err := match(f.PartVar, func(v float64) bool { return v == f.Part }); err != nil {
		return nil, err
	}
	if err := match(f.CompartmentVar, func(v float64) bool { return v == f.Compartment }); err != nil {
		return nil, err
	}
	if err := match(f.DoseVar, func(v float64) bool {
		for _, d := range f.Doses {
			if v == d {
				return true
			}
		}
		return false
	}); err != nil {
		return nil, err
	}

	return ds.Select(keep)
}
