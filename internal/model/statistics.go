package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopSellingMovie is one row of the top-movies rollup. The backend nests
// the movie under "_id" because it is the group key of its aggregation.
type TopSellingMovie struct {
	Movie             ContentRef      `json:"_id"`
	TotalSales        decimal.Decimal `json:"totalSales"`
	TotalTransactions int64           `json:"totalTransactions"`
}

// SalesStatistics merges the overview, chart-data and top-movies responses.
// The three parts may have been computed at slightly different instants;
// no cross-field invariant is enforced.
type SalesStatistics struct {
	TotalRevenue            decimal.Decimal   `json:"totalRevenue"`
	TotalTransactions       int64             `json:"totalTransactions"`
	AverageTransactionValue decimal.Decimal   `json:"averageTransactionValue"`
	TopSellingMovies        []TopSellingMovie `json:"topSellingMovies"`
	Transactions            []Transaction     `json:"transactions"`
}

// DailySalesPoint is one bar of a seven day chart. It is derived on every
// render and never stored.
type DailySalesPoint struct {
	Date         time.Time       `json:"date"`
	Label        string          `json:"label"`
	Sales        decimal.Decimal `json:"sales"`
	Transactions int             `json:"transactions"`
}

// MovieSales is the per-movie chart: totals over the whole transaction
// list plus the trailing seven day series.
type MovieSales struct {
	MovieID           string            `json:"movieId"`
	Title             string            `json:"title"`
	TotalSales        decimal.Decimal   `json:"totalSales"`
	TotalTransactions int               `json:"totalTransactions"`
	Daily             []DailySalesPoint `json:"daily"`
}
