package main

import (
	"github.com/spf13/cobra"

	"github.com/parisxmas/oxisite/internal/sitemap"
)

var robots bool

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print the sitemap (or robots.txt) to stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer closeLog()
		if robots {
			_, err := cmd.OutOrStdout().Write([]byte(sitemap.Robots(cfg.BaseURL, sitemap.RobotsOptions{
				Disallow:   cfg.RobotsDisallow,
				CrawlDelay: cfg.RobotsCrawlDelay,
			})))
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		_, err = cmd.OutOrStdout().Write(a.sitemap.Build(cmd.Context()))
		return err
	},
}

func init() {
	sitemapCmd.Flags().BoolVar(&robots, "robots", false, "print robots.txt instead")
}
