package dataset

// Column names appended by DeriveChange.
const (
	BaselineCol  = "baseline"
	ChangeCol    = "change"
	PctChangeCol = "pctchange"
)

// DeriveChange partitions ds into baseline rows (dayVar == baselineDay)
// and post-baseline rows, joins each post-baseline row to its subject's
// baseline value by subjectVar, and appends the columns "baseline",
// "change" and "pctchange" to the post-baseline rows.  The returned
// dataset contains only post-baseline rows for subjects that have a
// baseline (inner join); post-baseline rows for subjects with no
// baseline are dropped.
//
// Percent change follows the source convention
//
//	pctchange = 100 * (value - baseline) / value
//
// with the current value, not the baseline, in the denominator.  This
// reproduces the originating analysis exactly and is asserted by the
// package tests; see DESIGN.md before changing it.
//
// A subject with more than one baseline row, or a post-baseline row
// whose value is zero (which would make the percent change non-finite),
// is reported as a DataError.
func DeriveChange(ds *Dataset, subjectVar, dayVar, valueVar string, baselineDay float64) (*Dataset, error) {

	subj, err := ds.Col(subjectVar)
	if err != nil {
		return nil, err
	}
	day, err := ds.Col(dayVar)
	if err != nil {
		return nil, err
	}
	value, err := ds.Col(valueVar)
	if err != nil {
		return nil, err
	}

	// One baseline per subject; duplicates are a data defect, not
	// something to be averaged away.
	base := make(map[float64]float64)
	for i := range subj {
		if day[i] != baselineDay {
			continue
		}
		if _, ok := base[subj[i]]; ok {
			return nil, subjectError(subj[i], "subject has more than one baseline record")
		}
		base[subj[i]] = value[i]
	}

	keep := make([]bool, ds.NumObs())
	for i := range subj {
		if day[i] == baselineDay {
			continue
		}
		if _, ok := base[subj[i]]; !ok {
			// No baseline: excluded by the inner join.
			continue
		}
		keep[i] = true
	}

	post, err := ds.Select(keep)
	if err != nil {
		return nil, err
	}

	psubj, _ := post.Col(subjectVar)
	pvalue, _ := post.Col(valueVar)

	bl := make([]float64, post.NumObs())
	chg := make([]float64, post.NumObs())
	pct := make([]float64, post.NumObs())
	for i := range psubj {
		b := base[psubj[i]]
		v := pvalue[i]
		if v == 0 {
			return nil, subjectError(psubj[i], "zero measured value makes percent change non-finite")
		}
		bl[i] = b
		chg[i] = v - b
		pct[i] = 100 * (v - b) / v
	}

	return post.Extend([][]float64{bl, chg, pct}, []string{BaselineCol, ChangeCol, PctChangeCol})
}

// Levels returns the sorted distinct values of the named column.
func Levels(ds *Dataset, name string) ([]float64, error) {

	x, err := ds.Col(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[float64]bool)
	var lv []float64
	for _, v := range x {
		if !seen[v] {
			seen[v] = true
			lv = append(lv, v)
		}
	}

	for i := 1; i < len(lv); i++ {
		for j := i; j > 0 && lv[j] < lv[j-1]; j-- {
			lv[j], lv[j-1] = lv[j-1], lv[j]
		}
	}

	return lv, nil
}
