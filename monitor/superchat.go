package monitor

import "time"

// PriceToTier maps a superchat price to its severity tier. Negative prices
// clamp to the lowest tier.
func PriceToTier(price float64) int {
	switch {
	case price >= 1000:
		return 6
	case price >= 500:
		return 5
	case price >= 100:
		return 4
	case price >= 50:
		return 3
	case price >= 30:
		return 2
	default:
		return 1
	}
}

// PriceToDuration maps a superchat price to its on-screen lifetime.
func PriceToDuration(price float64) time.Duration {
	switch {
	case price >= 500:
		return 300 * time.Second
	case price >= 50:
		return 120 * time.Second
	default:
		return 60 * time.Second
	}
}

// tierColors picks the background pair for a price from the configured table,
// first tier reached scanning from the top. The fallback matches the stock
// mid-tier blue.
func tierColors(tiers []Tier, price float64) (header, body string) {
	if price < 0 {
		price = 0
	}
	for _, t := range tiers {
		if price >= t.MinPrice {
			return t.HeaderColor, t.BodyColor
		}
	}
	return "rgb(21,101,192)", "rgb(30,136,229)"
}

// contribution is the pending gift value attributed to one user, waiting for a
// keyword-triggered superchat. It expires after the configured TTL so a stale
// gift cannot unlock a superchat much later.
type contribution struct {
	Count     int
	Price     float64
	CreatedAt time.Time
}

// putContribution creates or replaces the contribution for a user. Caller
// holds m.mu.
func (m *Monitor) putContribution(uid string, price float64, now time.Time) {
	m.contrib[uid] = contribution{Count: 1, Price: price, CreatedAt: now}
}

// takeContribution consumes a live contribution. Expired entries are treated
// as absent and removed. Caller holds m.mu.
func (m *Monitor) takeContribution(uid string, now time.Time) (contribution, bool) {
	c, ok := m.contrib[uid]
	if !ok {
		return contribution{}, false
	}
	if ttl := m.opts.Superchat.ContributionTTL; ttl > 0 && now.Sub(c.CreatedAt) > ttl {
		delete(m.contrib, uid)
		return contribution{}, false
	}
	if c.Count < 1 {
		return contribution{}, false
	}
	delete(m.contrib, uid)
	return c, true
}

// evictContributions drops entries past the TTL. Caller holds m.mu.
func (m *Monitor) evictContributions(now time.Time) {
	ttl := m.opts.Superchat.ContributionTTL
	if ttl <= 0 {
		return
	}
	for uid, c := range m.contrib {
		if now.Sub(c.CreatedAt) > ttl {
			delete(m.contrib, uid)
		}
	}
}

// sweepExpiry recomputes the expired flag for every live superchat. This is
// the only mutation a stored event sees after creation.
func (m *Monitor) sweepExpiry(now time.Time) {
	m.Superchats.ForEach(func(e *SuperchatEvent) {
		e.Expired = now.After(e.CreatedAt.Add(e.Duration))
	})
}
