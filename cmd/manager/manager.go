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

package manager

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ibob/pkg/command"
	"jinr.ru/greenlab/go-ibob/pkg/config"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Run or control the process manager",
	}
	client := func() *command.ManagerClient {
		return command.NewManagerClient(cfg)
	}
	cmd.AddCommand(NewRunCommand(cfg))
	cmd.AddCommand(NewStartCommand(client))
	cmd.AddCommand(NewStopCommand(client))
	cmd.AddCommand(NewRecordCommand(client))
	cmd.AddCommand(NewListCommand(client))
	return cmd
}

func NewRunCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start sessions for all configured boards and serve the manager API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartManager(ctx, cfg)
		},
	}
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("bad board id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func NewStartCommand(client func() *command.ManagerClient) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>...",
		Short: "Start session processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := client().Start(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func NewStopCommand(client func() *command.ManagerClient) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>...",
		Short: "Stop session processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := client().Stop(id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func NewRecordCommand(client func() *command.ManagerClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Coordinated recording on several boards",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "start <dir> [id]...",
		Short: "Write ibob<N>.db archives into dir, all registered boards when no ids are given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return client().RecordStart(ids, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop [id]...",
		Short: "Stop writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return client().RecordStop(ids)
		},
	})
	return cmd
}

func NewListCommand(client func() *command.ManagerClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := client().Sessions()
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s pid %-7d api %-21s data %d since %s\n",
					rec.Name, rec.Pid, rec.ApiAddress, rec.DataPort, rec.Registered.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
