package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/jsonstore/internal/cart"
	"github.com/ziadkadry99/jsonstore/internal/db"
	"github.com/ziadkadry99/jsonstore/internal/storage"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or edit a visitor's persisted cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Print the cart lines stored for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd.Context(), args[0], func(c *cart.Cart) error {
			printCart(cmd, c)
			return nil
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add SESSION_ID ITEM_ID QUANTITY",
	Short: "Add a quantity of an item to a session's cart",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: %q", cart.ErrInvalidQuantity, args[2])
		}
		return withCart(cmd.Context(), args[0], func(c *cart.Cart) error {
			if _, err := c.AddToCart(cmd.Context(), cart.AddRequest{ID: args[1], Quantity: quantity}); err != nil {
				return err
			}
			printCart(cmd, c)
			return nil
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear SESSION_ID",
	Short: "Remove every line from a session's cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd.Context(), args[0], func(c *cart.Cart) error {
			for _, l := range c.Lines() {
				if err := c.Remove(cmd.Context(), l.ID); err != nil {
					return err
				}
			}
			printCart(cmd, c)
			return nil
		})
	},
}

// withCart loads the persisted cart of a session and hands it to fn.
func withCart(ctx context.Context, sessionID string, fn func(*cart.Cart) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Ephemeral {
		return fmt.Errorf("carts are not persisted when ephemeral is set")
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	return runOnCart(ctx, database, sessionID, fn)
}

func runOnCart(ctx context.Context, database *db.DB, sessionID string, fn func(*cart.Cart) error) error {
	c := cart.New(storage.NewCollection(storage.NewSQLiteKV(database, sessionID), cart.StoreName))
	if err := c.Fetch(ctx); err != nil {
		return err
	}
	return fn(c)
}

func printCart(cmd *cobra.Command, c *cart.Cart) {
	out := cmd.OutOrStdout()
	for _, l := range c.Lines() {
		fmt.Fprintf(out, "%-20s %d\n", l.ID, l.Quantity)
	}
	fmt.Fprintf(out, "total: %d\n", c.Count())
}

func init() {
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartClearCmd)
	rootCmd.AddCommand(cartCmd)
}
