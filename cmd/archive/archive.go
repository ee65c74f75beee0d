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

package archive

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	RowsOptionName = "rows"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect recorded archives",
	}
	cmd.AddCommand(NewShowCommand())
	return cmd
}

// NewShowCommand prints the decoder, info rows, comments and the last rows of every measurement type
func NewShowCommand() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Show archive contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := store.OpenContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			personality, err := c.Personality()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "personality: %s\n", personality)

			info, err := c.Info()
			if err != nil {
				return err
			}
			comments, err := c.Comments()
			if err != nil {
				return err
			}
			summary := map[string]interface{}{
				"info":     info,
				"comments": comments,
			}

			groups, err := c.Groups()
			if err != nil {
				return err
			}
			measurements := map[string]interface{}{}
			for _, name := range groups {
				table, err := c.Rows(name)
				if err != nil {
					return err
				}
				last := table
				if rows >= 0 && len(last) > rows {
					last = last[len(last)-rows:]
				}
				measurements[name] = map[string]interface{}{
					"count": len(table),
					"rows":  last,
				}
			}
			summary["measurements"] = measurements

			data, err := yaml.Marshal(summary)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().IntVar(&rows, RowsOptionName, 5, "Number of trailing rows to show per measurement type, -1 for all")
	return cmd
}
