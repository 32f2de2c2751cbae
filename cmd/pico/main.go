package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "pico",
		Short: "pico is a tiny SQL-backed application server",
		Long: "pico serves HTTP routes defined in pico.lua, backed by SQL server\n" +
			"functions and optional Lua hooks, with static files as a fallback.",
	}

	root.AddCommand(serveCmd(), routesCmd(), createCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
