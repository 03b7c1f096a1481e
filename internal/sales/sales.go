// Package sales derives the dashboard's chart and listing views from the
// transactions the backend returns. Every function is pure: the same input
// and the same now always produce the same output.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// Days is the length of every trailing chart.
const Days = 7

// RecentLimit is how many transactions the dashboard lists.
const RecentLimit = 10

// Window returns the trailing calendar days ending today, oldest first, as
// local midnights in now's location.
func Window(now time.Time, days int) []time.Time {
	if days <= 0 {
		return nil
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	out := make([]time.Time, days)
	for i := range out {
		out[i] = today.AddDate(0, 0, i-(days-1))
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Label is the short chart caption for a day, e.g. "15 Mar".
func Label(day time.Time) string { return day.Format("2 Jan") }

func series(txs []model.Transaction, now time.Time, keep func(model.Transaction) bool) []model.DailySalesPoint {
	loc := now.Location()
	window := Window(now, Days)
	points := make([]model.DailySalesPoint, len(window))
	for i, day := range window {
		points[i] = model.DailySalesPoint{Date: day, Label: Label(day), Sales: decimal.Zero}
	}
	for _, tx := range txs {
		if !tx.Completed() || tx.CreatedAt.IsZero() || !keep(tx) {
			continue
		}
		local := tx.CreatedAt.In(loc)
		for i := range points {
			if sameDay(local, points[i].Date) {
				points[i].Sales = points[i].Sales.Add(tx.Amount)
				points[i].Transactions++
				break
			}
		}
	}
	return points
}

// DailySales sums completed transactions per local calendar day over the
// last seven days, today included.
func DailySales(txs []model.Transaction, now time.Time) []model.DailySalesPoint {
	return series(txs, now, func(model.Transaction) bool { return true })
}

// MovieDailySales is DailySales restricted to one content id.
func MovieDailySales(txs []model.Transaction, movieID string, now time.Time) []model.DailySalesPoint {
	return series(txs, now, func(tx model.Transaction) bool { return tx.ContentID() == movieID })
}

// MoviesIn lists the distinct movies referenced by txs in order of first
// appearance. Transactions without a content id or title are skipped.
func MoviesIn(txs []model.Transaction) []model.ContentRef {
	seen := make(map[string]struct{})
	var out []model.ContentRef
	for _, tx := range txs {
		c := tx.Content
		if c == nil || c.ID == "" || c.Title == "" {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, *c)
	}
	return out
}

// MovieBreakdown builds one chart per movie in txs. Totals cover every
// completed transaction of the movie in the list; Daily covers the last
// seven days.
func MovieBreakdown(txs []model.Transaction, now time.Time) []model.MovieSales {
	movies := MoviesIn(txs)
	out := make([]model.MovieSales, 0, len(movies))
	for _, m := range movies {
		ms := model.MovieSales{MovieID: m.ID, Title: m.Title, TotalSales: decimal.Zero}
		for _, tx := range txs {
			if tx.Completed() && tx.ContentID() == m.ID {
				ms.TotalSales = ms.TotalSales.Add(tx.Amount)
				ms.TotalTransactions++
			}
		}
		ms.Daily = MovieDailySales(txs, m.ID, now)
		out = append(out, ms)
	}
	return out
}

// Recent returns the first n transactions. The backend already sorts them
// newest first.
func Recent(txs []model.Transaction, n int) []model.Transaction {
	if n < 0 {
		n = 0
	}
	if len(txs) <= n {
		return txs
	}
	return txs[:n]
}

// MaxSales is the largest daily value, zero for an empty or all-zero series.
func MaxSales(points []model.DailySalesPoint) decimal.Decimal {
	max := decimal.Zero
	for _, p := range points {
		if p.Sales.GreaterThan(max) {
			max = p.Sales
		}
	}
	return max
}

// BarHeight scales sales to a bar of at most full pixels.
func BarHeight(sales, max decimal.Decimal, full int) int {
	if !max.IsPositive() {
		return 0
	}
	return int(sales.Mul(decimal.NewFromInt(int64(full))).Div(max).IntPart())
}
