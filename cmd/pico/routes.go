package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"pico/config"
)

func routesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table from the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			defer cfg.Close()

			paths := make([]string, 0, len(cfg.Routes))
			byPath := make(map[string]string, len(cfg.Routes))
			for key, rt := range cfg.Routes {
				paths = append(paths, rt.Path)
				byPath[rt.Path] = key
			}
			sort.Strings(paths)

			for _, path := range paths {
				rt := cfg.Routes[byPath[path]]
				methods := make([]string, 0, len(rt.Definitions))
				for method, handler := range rt.Definitions {
					line := string(method)
					if handler.FunctionName != "" {
						line += " -> " + handler.FunctionName
					}
					methods = append(methods, line)
				}
				sort.Strings(methods)
				fmt.Printf("%s\n", path)
				for _, m := range methods {
					fmt.Printf("  %s\n", m)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "pico.lua", "path to the Lua config file")
	return cmd
}
