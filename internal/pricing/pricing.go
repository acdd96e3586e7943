package pricing

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// MinPrice is the floor under every quote, regardless of how negative the
// multipliers get.
const MinPrice = 50.0

// demandWeight scales an explicit demand signal after clamping.
const demandWeight = 0.4

// Calculator quotes a dynamic price from a flight's base fare and market
// state. It is pure apart from the demand fallback: when no demand signal is
// supplied, one is drawn from the injected random source, so tests that pass
// an explicit signal (or a seeded source) are deterministic.
type Calculator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewCalculator(rng *rand.Rand) *Calculator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Calculator{rng: rng}
}

// Quote computes baseFare * (1 + scarcity + time pressure + demand + tier),
// floored at MinPrice and rounded to cents. Out-of-range inputs are clamped,
// never rejected: quoting is display logic, not a safety boundary. demand, if
// non-nil, is clamped to [-0.5, 1.0] and weighted; if nil a uniform sample
// from [-0.1, 0.4) stands in for it.
func (c *Calculator) Quote(baseFare float64, seatsAvailable, totalSeats int, departure, now time.Time, demand *float64) float64 {
	if totalSeats < 1 {
		totalSeats = 1
	}
	if seatsAvailable < 0 {
		seatsAvailable = 0
	}
	if seatsAvailable > totalSeats {
		seatsAvailable = totalSeats
	}

	seatRatio := float64(seatsAvailable) / float64(totalSeats)
	var seatFactor float64
	switch {
	case seatRatio < 0.1:
		seatFactor = 0.8
	case seatRatio < 0.25:
		seatFactor = 0.5
	case seatRatio < 0.5:
		seatFactor = 0.2
	default:
		seatFactor = -0.05
	}

	hoursLeft := departure.Sub(now).Hours()
	if hoursLeft < 0 {
		hoursLeft = 0
	}
	var timeFactor float64
	switch {
	case hoursLeft <= 24:
		timeFactor = 0.6
	case hoursLeft <= 168:
		timeFactor = 0.25
	default:
		timeFactor = -0.05
	}

	var demandFactor float64
	if demand == nil {
		c.mu.Lock()
		demandFactor = -0.1 + c.rng.Float64()*0.5
		c.mu.Unlock()
	} else {
		demandFactor = clamp(*demand, -0.5, 1.0) * demandWeight
	}

	var tierBonus float64
	switch {
	case baseFare < 2000:
		tierBonus = 0.0
	case baseFare < 5000:
		tierBonus = 0.05
	default:
		tierBonus = 0.1
	}

	price := baseFare * (1 + seatFactor + timeFactor + demandFactor + tierBonus)
	if price < MinPrice {
		price = MinPrice
	}
	return math.Round(price*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
