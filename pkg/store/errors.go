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
	"fmt"
)

// ErrArchiveOpen returned when an archive is opened twice without closing
type ErrArchiveOpen struct {
	Path string
}

func (e ErrArchiveOpen) Error() string {
	return fmt.Sprintf("Archive is already open: %s", e.Path)
}

// ErrStoreClosed returned when a write is attempted on a closed store
type ErrStoreClosed struct {
	What string
}

func (e ErrStoreClosed) Error() string {
	return fmt.Sprintf("Store is closed: %s", e.What)
}

// ErrUnknownMeasurement returned when a measurement or array name is absent from the schema
type ErrUnknownMeasurement struct {
	Name string
}

func (e ErrUnknownMeasurement) Error() string {
	return fmt.Sprintf("Unknown measurement: %s", e.Name)
}

// ErrArrayLength returned when a decoded array does not fit its declared length
type ErrArrayLength struct {
	Name string
	Want int
	Got  int
}

func (e ErrArrayLength) Error() string {
	return fmt.Sprintf("Array %s length mismatch: expected %d got %d", e.Name, e.Want, e.Got)
}

// ErrNoData returned when nothing was recorded yet
type ErrNoData struct {
	Name string
}

func (e ErrNoData) Error() string {
	return fmt.Sprintf("No data recorded for %s", e.Name)
}
