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
	"strings"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ibob/pkg/command"
	"jinr.ru/greenlab/go-ibob/pkg/personality"
)

const (
	AdcClockOptionName = "adc-clock"
)

func NewPersonalityCommand(client func() *command.SessionClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personality",
		Short: "Show, set or clear the decoder",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := client().Personality()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name: %s\n", info.Name)
			fmt.Fprintf(out, "capabilities: %s\n", strings.Join(info.Capabilities, ", "))
			if n := len(info.Frequencies); n > 0 {
				fmt.Fprintf(out, "baseband: %.3f .. %.3f MHz, %d channels\n",
					info.Frequencies[0], info.Frequencies[n-1], n)
			}
			return nil
		},
	}
	cmd.AddCommand(NewPersonalitySetCommand(client))
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the decoder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().ClearPersonality()
		},
	})
	return cmd
}

func NewPersonalitySetCommand(client func() *command.SessionClient) *cobra.Command {
	var adcClock float64
	cmd := &cobra.Command{
		Use:       "set <name>",
		Short:     "Assign a decoder",
		Args:      cobra.ExactArgs(1),
		ValidArgs: personality.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().SetPersonality(args[0], adcClock)
		},
	}
	cmd.Flags().Float64Var(&adcClock, AdcClockOptionName, 0, "ADC clock, MHz. Decoder default when zero")
	return cmd
}
