package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/clinstat/cfbcontrast/emmeans"
)

// Style holds the visual configuration for contrast plots.  Passing a
// Style in keeps theming out of global state; DefaultStyle matches the
// executive-summary slide conventions.
type Style struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// DefaultStyle returns the standard contrast plot styling.
func DefaultStyle() *Style {
	return &Style{
		Title:  "Treatment effect by visit",
		XLabel: "Visit (study day)",
		YLabel: "Treatment benefit",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

// errPoints adapts a contrast series to the plotter interfaces for
// points with confidence whiskers.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// ContrastPlot builds a point-range chart of the contrast table: one
// line-and-points series per subgroup over visits, with confidence
// interval whiskers and a zero reference line.  Not-estimable
// combinations are skipped, leaving a visible gap.
func ContrastPlot(tab *emmeans.ContrastTable, st *Style) (*plot.Plot, error) {

	if st == nil {
		st = DefaultStyle()
	}

	p := plot.New()
	p.Title.Text = st.Title
	p.X.Label.Text = st.XLabel
	p.Y.Label.Text = st.YLabel

	bySubgroup := make(map[float64][]emmeans.Contrast)
	var subgroups []float64
	for _, c := range tab.Records {
		if !c.Estimable {
			continue
		}
		if _, ok := bySubgroup[c.Subgroup]; !ok {
			subgroups = append(subgroups, c.Subgroup)
		}
		bySubgroup[c.Subgroup] = append(bySubgroup[c.Subgroup], c)
	}
	sort.Float64s(subgroups)

	var xmin, xmax float64
	first := true

	for si, sg := range subgroups {
		recs := bySubgroup[sg]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Visit < recs[j].Visit })

		ep := errPoints{
			XYs:     make(plotter.XYs, len(recs)),
			YErrors: make(plotter.YErrors, len(recs)),
		}
		for i, c := range recs {
			ep.XYs[i].X = c.Visit
			ep.XYs[i].Y = c.Estimate
			ep.YErrors[i].Low = c.Estimate - c.Lower
			ep.YErrors[i].High = c.Upper - c.Estimate
			if first || c.Visit < xmin {
				xmin = c.Visit
			}
			if first || c.Visit > xmax {
				xmax = c.Visit
			}
			first = false
		}

		if err := plotutil.AddLinePoints(p, fmt.Sprintf("subgroup %g", sg), ep.XYs); err != nil {
			return nil, err
		}

		bars, err := plotter.NewYErrorBars(ep)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(si)
		p.Add(bars)
	}

	if !first {
		zero := plotter.XYs{{X: xmin, Y: 0}, {X: xmax, Y: 0}}
		ln, err := plotter.NewLine(zero)
		if err != nil {
			return nil, err
		}
		ln.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(ln)
	}

	return p, nil
}

// SaveContrastPlot renders the contrast plot to a file; the format is
// chosen from the file extension (png, pdf, svg, ...).
func SaveContrastPlot(tab *emmeans.ContrastTable, st *Style, path string) error {

	if st == nil {
		st = DefaultStyle()
	}

	p, err := ContrastPlot(tab, st)
	if err != nil {
		return err
	}
	return p.Save(st.Width, st.Height, path)
}
