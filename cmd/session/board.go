/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ibob/pkg/command"
)

const (
	UserOptionName = "user"
)

func NewCommentCommand(client func() *command.SessionClient) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "comment <text>",
		Short: "Append a comment to the archive being written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().Comment(user, args[0])
		},
	}
	cmd.Flags().StringVar(&user, UserOptionName, "operator", "Comment author")
	return cmd
}

func NewIntegrationCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "integration <seconds>",
		Short: "Set spectrometer integration time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			return client().SetIntegrationTime(seconds)
		},
	}
}

func NewTvgCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "tvg <value>",
		Short: "Set test vector generator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return err
			}
			return client().SetTvg(uint32(value))
		},
	}
}

func NewRestartCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Reset ADC and restart the data stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().Restart()
		},
	}
}

func NewSnapshotCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Request one raw ADC snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().Snapshot()
		},
	}
}

// NewSpecInfoCommand appends one info row built from key=value arguments. Numeric values are stored as numbers.
func NewSpecInfoCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "spec-info <key=value>...",
		Short: "Append a row to the info tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row := make(map[string]interface{})
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					row[key] = f
					continue
				}
				row[key] = value
			}
			return client().SpecInfo(row)
		},
	}
}
