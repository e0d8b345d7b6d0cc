package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/pkg/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var (
	apiFlag     string
	quietFlag   bool
	jsonFlag    bool
	retryFlag   int
	sessionFlag string
)

var rootCmd = &cobra.Command{
	Use:           "platter",
	Short:         "platter: food ordering from the terminal",
	Long:          "platter talks to the food-ordering backend as a customer, a restaurant or a courier, depending on who is signed in.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if apiFlag != "" {
			config.Set("API_BASE_URL", apiFlag)
		}
		if sessionFlag != "" {
			config.Set("SESSION_DRIVER", sessionFlag)
		}
		if quietFlag {
			logger.SetOutput(os.Stderr, "quiet")
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiFlag, "api", "", "backend base URL, including /api (overrides API_BASE_URL)")
	pf.StringVar(&sessionFlag, "session", "", "session driver: file, memory, redis or sql (overrides SESSION_DRIVER)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "only log errors")
	pf.BoolVar(&jsonFlag, "json", false, "print JSON instead of tables")
	pf.IntVar(&retryFlag, "retry", 0, "retry GET requests that got no response this many times")

	// Account
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(addressesCmd)
	rootCmd.AddCommand(themeCmd)

	// Catalog
	rootCmd.AddCommand(restaurantsCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(checkoutCmd)

	// Orders
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(deliverCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(earningsCmd)
	rootCmd.AddCommand(exportCmd)

	// Dashboard
	rootCmd.AddCommand(serveCmd)
}
