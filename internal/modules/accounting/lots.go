package accounting

import (
	"sort"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/utils"
)

// lot is the running weighted-average-cost position: every buy blends into one
// average, sales take shares out at that average without changing it.
type lot struct {
	held float64
	avg  float64
}

func (l *lot) buy(qty, price float64) {
	if qty <= 0 {
		return
	}
	if l.held <= 0 {
		l.held = qty
		l.avg = price
		return
	}
	l.avg = (l.held*l.avg + qty*price) / (l.held + qty)
	l.held = utils.Round(l.held+qty, sharePrecision)
}

func (l *lot) sell(qty float64) {
	l.held = utils.Round(l.held-qty, sharePrecision)
	if l.held < 0 {
		l.held = 0
	}
}

type lotEvent struct {
	date  time.Time
	sale  bool
	entry domain.Entry
}

// replayLots walks buys and sales in date order, buys first on the same day, and
// returns the realized gain of every sale plus the final lot.
func replayLots(buys, sells []domain.Entry) ([]RealizedGain, lot) {
	events := make([]lotEvent, 0, len(buys)+len(sells))
	for _, b := range buys {
		events = append(events, lotEvent{date: b.Date, entry: b})
	}
	for _, s := range sells {
		events = append(events, lotEvent{date: s.Date, sale: true, entry: s})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].date.Equal(events[j].date) {
			return events[i].date.Before(events[j].date)
		}
		return !events[i].sale && events[j].sale
	})

	var l lot
	gains := make([]RealizedGain, 0, len(sells))
	for _, ev := range events {
		if !ev.sale {
			l.buy(ev.entry.Quantity, ev.entry.Price)
			continue
		}
		qty := abs(ev.entry.Quantity)
		gains = append(gains, RealizedGain{
			SaleDate:          ev.date.Format(domain.DateLayout),
			Quantity:          qty,
			SalePrice:         ev.entry.Price,
			AverageCostAtSale: l.avg,
			Gain:              (ev.entry.Price - l.avg) * qty,
		})
		l.sell(qty)
	}
	return gains, l
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
