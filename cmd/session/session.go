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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ibob/pkg/command"
	"jinr.ru/greenlab/go-ibob/pkg/config"
)

const (
	DeviceOptionName = "device"
)

// NewCommand builds the session command tree. Every subcommand addresses the board given by --device.
func NewCommand(cfg *config.Config) *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run or control the session of one board",
	}
	cmd.PersistentFlags().IntVar(&id, DeviceOptionName, 0, "Board id")
	client := func() *command.SessionClient {
		return command.NewSessionClientForDevice(cfg, id)
	}
	cmd.AddCommand(NewRunCommand(cfg, &id))
	cmd.AddCommand(NewStatusCommand(client))
	cmd.AddCommand(NewRecordCommand(client))
	cmd.AddCommand(NewPersonalityCommand(client))
	cmd.AddCommand(NewRegCommand(client))
	cmd.AddCommand(NewCommentCommand(client))
	cmd.AddCommand(NewSpecInfoCommand(client))
	cmd.AddCommand(NewIntegrationCommand(client))
	cmd.AddCommand(NewTvgCommand(client))
	cmd.AddCommand(NewRestartCommand(client))
	cmd.AddCommand(NewSnapshotCommand(client))
	cmd.AddCommand(NewQuitCommand(client))
	return cmd
}

func NewRunCommand(cfg *config.Config, id *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartSession(ctx, cfg, *id)
		},
	}
	return cmd
}

func NewStatusCommand(client func() *command.SessionClient) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				info, err := client().Info()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), info)
				return nil
			}
			st, err := client().Status()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(st)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Only print the packet count, prefixed with W while writing")
	return cmd
}

func NewRecordCommand(client func() *command.SessionClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Start or stop writing the archive",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "start <path>",
		Short: "Start writing to an archive on the session host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().RecordStart(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().RecordStop()
		},
	})
	return cmd
}

func NewQuitCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the session process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().Quit()
		},
	}
}
