package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func NewCmdShop(f *Factory, streams IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse and buy shop items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newCmdShopItems(f, streams),
		newCmdShopBuy(f, streams),
		newCmdShopInventory(f, streams),
	)
	return cmd
}

func newCmdShopItems(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "items",
		Short: "List shop items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := f.Client().ShopItems(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(streams.Out, "ID", "Name", "Type", "Price", "Premium")
			for _, it := range items {
				premium := ""
				if it.PremiumOnly {
					premium = "yes"
				}
				table.Append([]string{strconv.Itoa(int(it.ID)), it.Name, it.Type, itoa(it.Price), premium})
			}
			table.Render()
			return nil
		},
	}
}

func newCmdShopBuy(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "buy ITEM_ID",
		Short: "Buy an item with coins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			res, err := f.Client().Purchase(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "bought %s, %d coins left\n", res.Inventory.Item.Name, res.CoinsLeft)
			return nil
		},
	}
}

func newCmdShopInventory(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "List owned items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := f.Client().Inventory(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(streams.Out, "inventory is empty")
				return nil
			}
			table := newTable(streams.Out, "Item", "Type", "Qty")
			for _, it := range items {
				table.Append([]string{it.Item.Name, it.Item.Type, strconv.Itoa(it.Quantity)})
			}
			table.Render()
			return nil
		},
	}
}
