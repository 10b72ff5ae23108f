package plans

import (
	"fmt"
	"time"
)

// Plan codes supported by the marketplace. The set is closed: prices and
// durations are resolved server-side, never from client input.
const (
	PlanTrial  = "trial"
	PlanAnnual = "annual"
)

// Plan describes a purchasable access period. PriceRef is the payment
// provider's price identifier for the hosted checkout. TrialOnly plans can be
// bought only by users who have never held any subscription.
type Plan struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	PriceRef  string `json:"price_ref"`
	TrialOnly bool   `json:"trial_only"`

	years  int
	months int
}

// PeriodEnd derives the end of the access period from its start using
// calendar arithmetic, so month lengths and leap years behave the way a plain
// "add N months/years" does. The result is computed once at materialization
// time and stored; it is never recomputed.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	return start.AddDate(p.years, p.months, 0)
}

// Catalog is the read-only registry of purchasable plans.
type Catalog struct {
	plans map[string]Plan
}

// NewCatalog builds the plan registry with the configured provider price
// references. The trial plan grants eight months, the annual plan one
// calendar year.
func NewCatalog(trialPriceRef, annualPriceRef string) *Catalog {
	return &Catalog{
		plans: map[string]Plan{
			PlanTrial: {
				Code:      PlanTrial,
				Name:      "Entry plan (8 months)",
				PriceRef:  trialPriceRef,
				TrialOnly: true,
				months:    8,
			},
			PlanAnnual: {
				Code:     PlanAnnual,
				Name:     "Annual plan",
				PriceRef: annualPriceRef,
				years:    1,
			},
		},
	}
}

// Lookup returns the plan for the given code.
func (c *Catalog) Lookup(code string) (Plan, error) {
	plan, ok := c.plans[code]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", code)
	}
	return plan, nil
}

// IsTrial reports whether the plan code names a trial-only plan. Unknown
// codes are not trials.
func (c *Catalog) IsTrial(code string) bool {
	return c.plans[code].TrialOnly
}

// PeriodEnd is a convenience wrapper over Lookup for callers that only need
// the duration rule.
func (c *Catalog) PeriodEnd(code string, start time.Time) (time.Time, error) {
	plan, err := c.Lookup(code)
	if err != nil {
		return time.Time{}, err
	}
	return plan.PeriodEnd(start), nil
}
