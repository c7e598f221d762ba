// Copyright Inkstone Tools, 2026. All rights reserved.

// Package main is the entry point for the kobomark CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the kobomark CLI.
var rootCmd = &cobra.Command{
	Use:   "kobomark",
	Short: "Composite e-reader markups into annotated page images",
	Long: `kobomark turns the markup files an e-reader leaves behind into annotated
page images. Each markup is a pair: a raster capture of the page and a
vector file holding the ink drawn on it. kobomark pairs them up, renders
the ink at page size, blends it over the capture, and writes lossless PNGs
organized by book title, with names resolved from the device's own
database when one is available.

The markups directory is conventionally <device>/.kobo/markups and the
database <device>/.kobo/KoboReader.sqlite; both are only ever read.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./kobomark.yaml or ~/.config/kobomark/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kobomark")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kobomark"))
		}
	}

	viper.SetEnvPrefix("KOBOMARK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting resolves a string option from its flag, falling back to the
// config file key when the flag was left at its default.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	v, _ := cmd.Flags().GetString(flag)
	if v == "" {
		return viper.GetString(key)
	}
	return v
}

// boolSetting resolves a bool option from its flag or the config file key.
func boolSetting(cmd *cobra.Command, flag, key string) bool {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetBool(flag)
		return v
	}
	return viper.GetBool(key)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
