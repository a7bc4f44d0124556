/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"devt.de/krotik/cmdb/api"
	v1 "devt.de/krotik/cmdb/api/v1"
	"devt.de/krotik/cmdb/cmdb"
)

/*
client talks to the REST API of a CMDB server.
*/
type client struct {
	base string
	http *http.Client
}

func newClient(opts *RootOptions) *client {
	return &client{
		base: fmt.Sprintf("http://%v%v%v", opts.Host, api.APIRoot, v1.APIv1),
		http: &http.Client{Timeout: time.Minute},
	}
}

/*
do sends a request and copies the response body to out. Responses with an
error status are returned as error.
*/
func (c *client) do(method string, path string, query url.Values, body []byte, out io.Writer) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	res, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%v: %v", resp.Status, strings.TrimSpace(string(res)))
	}

	_, err = fmt.Fprintln(out, strings.TrimSpace(string(res)))

	return err
}

/*
waitQuery returns the query parameters of a call which waits for its result.
*/
func waitQuery(wait int) url.Values {
	q := url.Values{}
	if wait > 0 {
		q.Set("wait", fmt.Sprint(wait))
	}
	return q
}

func newSendCommand(opts *RootOptions) *cobra.Command {
	var wait int

	cmd := &cobra.Command{
		Use:   "send <namespace> <type> <id> <message>",
		Short: "Send a JSON message to a function",
		Long: `Send a JSON message to the function of an entity.

Example:
  cmdb send internal types.system.functions.root system/types '{"method": "CREATE", "name": "host"}'`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[3])) {
				return fmt.Errorf("invalid message JSON: %v", args[3])
			}

			path := fmt.Sprintf("/function/%v/%v/%v", args[0], args[1], args[2])

			return newClient(opts).do(http.MethodPost, path, waitQuery(wait), []byte(args[3]), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&wait, "wait", 0, "milliseconds to wait for the result")

	return cmd
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var wait int

	cmd := &cobra.Command{
		Use:           "register <file>",
		Short:         "Send a register message which is read from a YAML file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rm cmdb.RegisterMessage

			content, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}

			if err := yaml.Unmarshal(content, &rm); err != nil {
				return fmt.Errorf("could not parse %v: %w", args[0], err)
			}

			body, err := json.Marshal(&rm)
			if err != nil {
				return err
			}

			return newClient(opts).do(http.MethodPost, "/register/", waitQuery(wait), body, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&wait, "wait", 0, "milliseconds to wait for the result")

	return cmd
}

func newQueryCommand(opts *RootOptions) *cobra.Command {
	var filter string
	var limit int

	cmd := &cobra.Command{
		Use:   "query <expression>",
		Short: "Run a path query",
		Long: `Run a path query. The optional filter is a jq expression which
is applied to every found element.

Example:
  cmdb query '*.root' --filter '.type == "types/host"'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if filter != "" {
				q.Set("filter", filter)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}

			return newClient(opts).do(http.MethodGet, "/query/"+args[0], q, nil, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "jq filter for the found elements")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of elements")

	return cmd
}

func newResultCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "result <key>",
		Short:         "Read the result of a call",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(opts).do(http.MethodGet, "/result/"+args[0], nil, nil, cmd.OutOrStdout())
		},
	}
}
