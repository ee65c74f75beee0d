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

package store

import (
	"sort"
)

// Row is one table row, column name to value
type Row map[string]interface{}

// Arrays holds the named arrays of one measurement
type Arrays map[string][]float64

// MeasurementType is one group of a container: a row table plus named arrays
// of fixed length.
type MeasurementType struct {
	Name    string
	Code    string
	Columns []string
	Arrays  map[string]int
}

// ArrayNames returns array names in a stable order
func (t MeasurementType) ArrayNames() []string {
	names := make([]string, 0, len(t.Arrays))
	for name := range t.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema describes everything a decoder produces
type Schema struct {
	Types       []MeasurementType
	InfoColumns []string
}

func (s Schema) Type(name string) (MeasurementType, bool) {
	for _, t := range s.Types {
		if t.Name == name {
			return t, true
		}
	}
	return MeasurementType{}, false
}

// Copy returns a shallow copy of the row so callers may add columns
func (r Row) Copy() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
