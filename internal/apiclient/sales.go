package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// ChartWindowDays is how far back chart-data is requested.
const ChartWindowDays = 7

type transactionsEnvelope struct {
	Data *struct {
		Transactions []model.Transaction `json:"transactions"`
	} `json:"data"`
}

type overviewEnvelope struct {
	Data *struct {
		Statistics *struct {
			TotalRevenue            decimal.Decimal `json:"totalRevenue"`
			TotalTransactions       int64           `json:"totalTransactions"`
			AverageTransactionValue decimal.Decimal `json:"averageTransactionValue"`
		} `json:"statistics"`
	} `json:"data"`
}

type topMoviesEnvelope struct {
	Data *struct {
		TopSellingMovies []model.TopSellingMovie `json:"topSellingMovies"`
	} `json:"data"`
}

// Transactions lists sales transactions within the user's scope.
func (c *Client) Transactions(ctx context.Context) ([]model.Transaction, error) {
	var env transactionsEnvelope
	if err := c.getJSON(ctx, "transactions", SalesPath, c.Scope(ctx).Apply(nil), &env); err != nil {
		return nil, err
	}
	if env.Data == nil || env.Data.Transactions == nil {
		return []model.Transaction{}, nil
	}
	return env.Data.Transactions, nil
}

// SalesStatistics fetches overview, chart data (last seven days) and top
// movies concurrently and merges them. If any of the three fails the
// others are cancelled and ErrDashboardData is returned.
func (c *Client) SalesStatistics(ctx context.Context) (model.SalesStatistics, error) {
	scope := c.Scope(ctx)
	startDate := c.now().AddDate(0, 0, -ChartWindowDays).Format("2006-01-02")

	var (
		overview overviewEnvelope
		chart    transactionsEnvelope
		top      topMoviesEnvelope
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "overview", OverviewPath, scope.Apply(nil), &overview)
	})
	g.Go(func() error {
		q := url.Values{"startDate": {startDate}}
		return c.getJSON(gctx, "chart-data", ChartDataPath, scope.Apply(q), &chart)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "top-movies", TopMoviesPath, scope.Apply(nil), &top)
	})
	if err := g.Wait(); err != nil {
		c.logger.Warnw("dashboard data fetch failed", "error", err)
		return model.SalesStatistics{}, fmt.Errorf("%w: %v", ErrDashboardData, err)
	}

	if overview.Data == nil || overview.Data.Statistics == nil {
		return model.SalesStatistics{}, fmt.Errorf("%w: overview without statistics", ErrDashboardData)
	}
	if chart.Data == nil || top.Data == nil {
		return model.SalesStatistics{}, fmt.Errorf("%w: missing data envelope", ErrDashboardData)
	}

	st := overview.Data.Statistics
	out := model.SalesStatistics{
		TotalRevenue:            st.TotalRevenue,
		TotalTransactions:       st.TotalTransactions,
		AverageTransactionValue: st.AverageTransactionValue,
		TopSellingMovies:        top.Data.TopSellingMovies,
		Transactions:            chart.Data.Transactions,
	}
	if out.TopSellingMovies == nil {
		out.TopSellingMovies = []model.TopSellingMovie{}
	}
	if out.Transactions == nil {
		out.Transactions = []model.Transaction{}
	}
	return out, nil
}
