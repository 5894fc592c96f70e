// Command tradelog inspects the bot's audit journal: daily PnL,
// positions, and recent settlements.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/baguette88/polymarket-trading-bot/internal/journal"
)

const defaultDBPath = "data/journal.db"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "pnl":
		runPnL()
	case "positions":
		runPositions(false)
	case "open":
		runPositions(true)
	case "settlements":
		limit := 50
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil {
				limit = n
			}
		}
		runSettlements(limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tradelog <command>

Commands:
  pnl              Show daily PnL table
  positions        Show all positions with settlement status
  open             Show open (unsettled) filled positions only
  settlements [N]  Show last N settlements (default 50)

Environment:
  TRADELOG_DB      Path to the journal database (default data/journal.db)`)
}

func dbPath() string {
	if p := os.Getenv("TRADELOG_DB"); p != "" {
		return p
	}
	return defaultDBPath
}

func openStore() *journal.Store {
	store, err := journal.Open(dbPath())
	if err != nil {
		slog.Error("opening db", "err", err)
		os.Exit(1)
	}
	return store
}

func runPnL() {
	store := openStore()
	defer store.Close()

	rows, err := store.GetDailyPnL(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("No PnL data yet.")
		return
	}

	fmt.Printf("%-12s %10s %6s %6s %6s\n", "Date", "PnL", "Wins", "Losses", "Trades")
	fmt.Println("---------------------------------------------")
	var totalPnL float64
	var totalWins, totalLosses, totalTrades int
	for _, r := range rows {
		fmt.Printf("%-12s %10.4f %6d %6d %6d\n", r.Date, r.PnL, r.Wins, r.Losses, r.Trades)
		totalPnL += r.PnL
		totalWins += r.Wins
		totalLosses += r.Losses
		totalTrades += r.Trades
	}
	fmt.Println("---------------------------------------------")
	fmt.Printf("%-12s %10.4f %6d %6d %6d\n", "TOTAL", totalPnL, totalWins, totalLosses, totalTrades)
}

func runPositions(openOnly bool) {
	store := openStore()
	defer store.Close()

	ctx := context.Background()
	var rows []journal.Position
	var err error
	if openOnly {
		rows, err = store.OpenPositions(ctx)
	} else {
		rows, err = store.GetPositions(ctx)
	}
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		if openOnly {
			fmt.Println("No open positions.")
		} else {
			fmt.Println("No positions recorded.")
		}
		return
	}

	fmt.Printf("%-20s %-14s %-6s %9s %9s %-10s %-6s %9s\n",
		"Time", "Market", "Dir", "Amount", "Shares", "Status", "Result", "PnL")
	fmt.Println("-------------------------------------------------------------------------------------------")
	for _, p := range rows {
		fmt.Printf("%-20s %-14s %-6s %9.2f %9.2f %-10s %-6s %9.4f\n",
			p.CreatedTime.Format("2006-01-02 15:04:05"),
			truncate(p.MarketID, 14),
			p.Direction,
			p.AmountUSD,
			p.Size,
			p.Status,
			p.Result,
			p.PnL,
		)
	}
}

func runSettlements(limit int) {
	store := openStore()
	defer store.Close()

	rows, err := store.RecentSettlements(context.Background(), limit)
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("No settlements recorded.")
		return
	}

	fmt.Printf("%-20s %-14s %-36s %-6s %9s %9s\n",
		"Time", "Market", "Trade", "Result", "PnL", "Exit")
	fmt.Println("----------------------------------------------------------------------------------------------------")
	for _, st := range rows {
		fmt.Printf("%-20s %-14s %-36s %-6s %9.4f %9.2f\n",
			st.SettledTime.Format("2006-01-02 15:04:05"),
			truncate(st.MarketID, 14),
			st.TradeID,
			st.Result,
			st.PnL,
			st.ExitPrice,
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
