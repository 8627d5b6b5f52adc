package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/example/meubles-dor/internal/bootstrap"
	"github.com/example/meubles-dor/internal/command"
	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/spf13/cobra"
)

var (
	orderStatus string
	orderSearch string
	orderPeriod string
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect and manage orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(cfg *config.Config, s *bootstrap.Services) error {
			orders := s.Queries.FilterOrders(cmd.Context(), order.Filter{
				Search: orderSearch,
				Status: order.Status(orderStatus),
				Period: order.Period(orderPeriod),
			})
			writeOrders(cmd.OutOrStdout(), orders, cfg.Store.Currency)
			return nil
		})
	},
}

func writeOrders(out io.Writer, orders []order.Order, currency string) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tPHONE\tPRODUCT\tTOTAL\tSTATUS")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s x%d\t%s %s\t%s\n",
			o.ID,
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
			o.CustomerDetails.FullName,
			o.CustomerDetails.PhoneNumber,
			o.FormData.ProductName, o.FormData.Quantity,
			o.TotalAmount.StringFixed(2), currency,
			o.Status,
		)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d order(s)\n", len(orders))
}

var ordersSetStatusCmd = &cobra.Command{
	Use:   "set-status ORDER_ID STATUS",
	Short: "Change an order's status",
	Long: `Change an order's status. STATUS is one of:
Nouvelle, En traitement, Expédiée, Livrée, Annulée.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := order.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), false, func(_ *config.Config, s *bootstrap.Services) error {
			o, err := s.Commands.UpdateOrderStatus(cmd.Context(), command.UpdateOrderStatus{OrderID: args[0], Status: status})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Order %s is now %s\n", o.ID, o.Status)
			return nil
		})
	},
}

var ordersDeleteCmd = &cobra.Command{
	Use:   "delete ORDER_ID",
	Short: "Delete an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(_ *config.Config, s *bootstrap.Services) error {
			if err := s.Commands.DeleteOrder(cmd.Context(), command.DeleteOrder{OrderID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Order %s deleted\n", args[0])
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(cfg *config.Config, s *bootstrap.Services) error {
			writeStats(cmd.OutOrStdout(), s.Queries.DashboardStats(cmd.Context()), cfg.Store.Currency)
			return nil
		})
	},
}

func writeStats(out io.Writer, st order.Stats, currency string) {
	fmt.Fprintf(out, "Total sales:       %s %s\n", st.TotalSales.StringFixed(2), currency)
	fmt.Fprintf(out, "Total orders:      %d\n", st.TotalOrders)
	fmt.Fprintf(out, "Products:          %d\n", st.TotalProducts)
	fmt.Fprintf(out, "Orders (%d days):  %d\n", order.RecentWindowDays, st.RecentOrdersCount)
	fmt.Fprintf(out, "New customers:     %d\n", st.NewCustomers)
	fmt.Fprintf(out, "As of:             %s\n", time.Now().Format(time.RFC1123))
}

func init() {
	ordersListCmd.Flags().StringVar(&orderStatus, "status", "", "Only orders with this status")
	ordersListCmd.Flags().StringVar(&orderSearch, "search", "", "Match customer name, phone or order id")
	ordersListCmd.Flags().StringVar(&orderPeriod, "period", "all", "all, today, week or month")

	ordersCmd.AddCommand(ordersListCmd, ordersSetStatusCmd, ordersDeleteCmd)
	rootCmd.AddCommand(ordersCmd, statsCmd)
}
