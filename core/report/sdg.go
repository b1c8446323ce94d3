package report

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	appfs "github.com/statbureau/datahub/fs"
)

var indicatorsPath = "sdg/indicators.yaml"

// Indicator is an SDG indicator tracked against a baseline and a target.
type Indicator struct {
	Goal     int             `yaml:"goal" json:"goal"`
	Code     string          `yaml:"code" json:"code"`
	Title    string          `yaml:"title" json:"title"`
	Unit     string          `yaml:"unit" json:"unit"`
	Baseline float64         `yaml:"baseline" json:"baseline"`
	Target   float64         `yaml:"target" json:"target"`
	Current  float64         `yaml:"current" json:"current"`
	Progress decimal.Decimal `yaml:"-" json:"progress"`
}

type indicatorCatalogue struct {
	Indicators []Indicator `yaml:"indicators"`
}

var (
	indicators     []Indicator
	indicatorsErr  error
	indicatorsOnce sync.Once
)

// ParseIndicators decodes an indicator catalogue and computes each indicator's progress.
func ParseIndicators(data []byte) ([]Indicator, error) {
	var cat indicatorCatalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, "decoding indicators")
	}
	for i := range cat.Indicators {
		cat.Indicators[i].Progress = IndicatorProgress(cat.Indicators[i].Baseline, cat.Indicators[i].Target, cat.Indicators[i].Current)
	}
	return cat.Indicators, nil
}

// Indicators returns the embedded SDG indicator catalogue.
func Indicators() ([]Indicator, error) {
	indicatorsOnce.Do(func() {
		data, err := appfs.FS.ReadFile(indicatorsPath)
		if err != nil {
			indicatorsErr = errors.Wrap(err, "reading indicators")
			return
		}
		indicators, indicatorsErr = ParseIndicators(data)
	})
	out := make([]Indicator, len(indicators))
	copy(out, indicators)
	return out, indicatorsErr
}

// IndicatorProgress returns how far current went from baseline towards target, in percent,
// clamped to [0, 100] and rounded to one decimal place. Decreasing targets are supported.
func IndicatorProgress(baseline, target, current float64) decimal.Decimal {
	b := decimal.NewFromFloat(baseline)
	t := decimal.NewFromFloat(target)
	c := decimal.NewFromFloat(current)
	span := t.Sub(b)
	if span.IsZero() {
		if c.Equal(t) {
			return hundred
		}
		return decimal.Zero
	}
	pct := c.Sub(b).Div(span).Mul(hundred)
	if pct.LessThan(decimal.Zero) {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(1)
}
