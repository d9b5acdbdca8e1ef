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

package oracle

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrTimeout     = errors.New("oracle: query timed out")
	ErrUnsupported = errors.New("oracle: unsupported operation")
	ErrMalformed   = errors.New("oracle: malformed response")
)

func unsupported(op string) error {
	return errors.Wrap(ErrUnsupported, op)
}

// QueryError describes a failed oracle query. Stage is the index of the
// failing invocation inside the operation's pipeline, or -1 if the
// failure happened while decoding the pipeline's output.
type QueryError struct {
	Op     string
	Stage  int
	Stderr string
	Err    error
}

func (err *QueryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "oracle %s", err.Op)
	if err.Stage >= 0 {
		fmt.Fprintf(&b, " (stage %d)", err.Stage)
	}
	fmt.Fprintf(&b, ": %v", err.Err)

	if stderr := strings.TrimSpace(err.Stderr); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}

	return b.String()
}

func (err *QueryError) Unwrap() error {
	return err.Err
}

// Cause lets github.com/pkg/errors see through a QueryError.
func (err *QueryError) Cause() error {
	return err.Err
}
