/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
CMDB is a configuration management database which stores typed objects and
their links as a graph. All changes go through functions which are addressed
by a function type and an entity id.

Available commands:

	server    Start the CMDB server
	send      Send a message to a function
	register  Send a register message from a YAML file
	query     Run a path query
	result    Read the result of a call
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devt.de/krotik/cmdb/config"
	"devt.de/krotik/cmdb/server"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

/*
RootOptions holds the global flags of all commands.
*/
type RootOptions struct {
	Host string // Host and port of the CMDB server
}

/*
NewRootCommand creates the root command of the CMDB tool.
*/
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "cmdb",
		Short:   "CMDB graph based configuration management database",
		Version: config.ProductVersion,
	}

	cmd.PersistentFlags().StringVar(&opts.Host, "host", "localhost:9090", "host and port of the CMDB server")

	cmd.AddCommand(newServerCommand())
	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newResultCommand(opts))

	return cmd
}

/*
startServer runs the server. Tests replace it.
*/
var startServer = server.StartServer

func newServerCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Start the CMDB server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfigFile(configFile); err != nil {
				return fmt.Errorf("could not load config %v: %w", configFile, err)
			}

			startServer()

			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", config.DefaultConfigFile, "config file of the server")

	return cmd
}
