// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var header = []string{"episode", "count", "avg", "max", "min"}

// Writer appends aggregates to a CSV file for external plotting.
type Writer struct {
	file   io.Closer
	writer *csv.Writer
}

// Create opens the CSV file at path for appending, writing the header
// row if the file is new.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "stats: create")
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "stats: create")
	}

	writer := &Writer{file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := writer.writer.Write(header); err != nil {
			_ = file.Close()
			return nil, errors.Wrap(err, "stats: write header")
		}
	}

	return writer, nil
}

// Write appends one aggregate row.
func (w *Writer) Write(aggregate Aggregate) error {
	row := []string{
		strconv.Itoa(aggregate.Episode),
		strconv.Itoa(aggregate.Count),
		strconv.FormatFloat(aggregate.Avg, 'g', -1, 64),
		strconv.FormatFloat(aggregate.Max, 'g', -1, 64),
		strconv.FormatFloat(aggregate.Min, 'g', -1, 64),
	}

	if err := w.writer.Write(row); err != nil {
		return errors.Wrap(err, "stats: write row")
	}

	w.writer.Flush()
	return errors.Wrap(w.writer.Error(), "stats: write row")
}

func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		_ = w.file.Close()
		return errors.Wrap(err, "stats: close")
	}

	return w.file.Close()
}
