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
	"sort"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ibob/pkg/command"
)

func NewRegCommand(client func() *command.SessionClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write board registers",
	}
	cmd.AddCommand(NewGetCommand(client))
	cmd.AddCommand(NewSetCommand(client))
	cmd.AddCommand(NewListCommand(client))
	return cmd
}

func NewGetCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Read register from the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := client().RegRead(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], value)
			return nil
		},
	}
}

func NewSetCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write register value, decimal or 0x prefixed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().RegWrite(args[0], args[1])
		},
	}
}

// NewListCommand prints the values last read or written, without touching the board
func NewListCommand(client func() *command.SessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached register values",
		RunE: func(cmd *cobra.Command, args []string) error {
			regs, err := client().RegReadAll()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(regs))
			for name := range regs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, regs[name])
			}
			return nil
		},
	}
}
