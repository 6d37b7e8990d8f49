package status

import (
	"testing"
	"time"

	"github.com/faawibowo/pakta/backend/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRiskProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	count := gen.IntRange(-50, 1000)

	properties.Property("percentage stays within [0, 100]", prop.ForAll(
		func(m, h, md, l int) bool {
			p := DeriveRiskPercentage(m, h, md, l)
			return p >= 0 && p <= MaxRiskPercentage
		},
		count, count, count, count,
	))

	properties.Property("percentage equals the clamped weighted sum", prop.ForAll(
		func(m, h, md, l int) bool {
			sum := 0
			for _, term := range [][2]int{{m, MissingElementWeight}, {h, HighRiskWeight}, {md, MediumRiskWeight}, {l, LowRiskWeight}} {
				if term[0] > 0 {
					sum += term[0] * term[1]
				}
			}
			if sum > MaxRiskPercentage {
				sum = MaxRiskPercentage
			}
			return DeriveRiskPercentage(m, h, md, l) == sum
		},
		count, count, count, count,
	))

	properties.Property("derivation is idempotent", prop.ForAll(
		func(m, h, md, l int) bool {
			p := DeriveRiskPercentage(m, h, md, l)
			return p == DeriveRiskPercentage(m, h, md, l) && DeriveOverallVerdict(p) == DeriveOverallVerdict(p)
		},
		count, count, count, count,
	))

	properties.Property("verdict is monotone in percentage", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			rank := map[model.Verdict]int{model.VerdictValid: 0, model.VerdictWarning: 1, model.VerdictHighRisk: 2}
			return rank[DeriveOverallVerdict(a)] <= rank[DeriveOverallVerdict(b)]
		},
		gen.IntRange(0, 100), gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestLifecycleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	base := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	offsets := gen.Int64Range(-int64(400*day), int64(400*day))
	stored := gen.OneConstOf(model.StatusActive, model.StatusExpired, model.StatusPending)

	properties.Property("stored Expired always reports Expired", prop.ForAll(
		func(off int64) bool {
			return DeriveLifecycleStatus(model.StatusExpired, base.Add(time.Duration(off)), base) == Expired
		},
		offsets,
	))

	properties.Property("a past end date always reports Expired", prop.ForAll(
		func(s model.ContractStatus, off int64) bool {
			if off >= 0 {
				return true
			}
			return DeriveLifecycleStatus(s, base.Add(time.Duration(off)), base) == Expired
		},
		stored, offsets,
	))

	properties.Property("Pending with a future end stays Pending", prop.ForAll(
		func(off int64) bool {
			if off < 0 {
				return true
			}
			return DeriveLifecycleStatus(model.StatusPending, base.Add(time.Duration(off)), base) == Pending
		},
		offsets,
	))

	properties.TestingRun(t)
}
