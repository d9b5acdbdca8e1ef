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

package util

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	spin     = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spinLock sync.Mutex
	spinners int
)

// StartSpinner shows the ~working~ spinner. Calls nest: the spinner is
// hidden once every StartSpinner has been matched by a PauseSpinner.
func StartSpinner() {
	spinLock.Lock()
	defer spinLock.Unlock()

	// The spinner would garble trace output.
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		return
	}

	spinners++
	if spinners == 1 {
		spin.Start()
	}
}

func PauseSpinner() {
	spinLock.Lock()
	defer spinLock.Unlock()

	if spinners == 0 {
		return
	}

	spinners--
	if spinners == 0 {
		spin.Stop()
	}
}

// Execute runs command in dir. The command's output is only shown if it
// fails, or always when tracing. If errStr is not empty it replaces the
// command's error.
func Execute(dir, errStr, command string, args ...string) error {
	logrus.Debugf("\x1b[34m%s\x1b[0m %s", command, strings.Join(args, " "))

	cmd := exec.Command(command, args...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	StartSpinner()
	err := cmd.Run()
	PauseSpinner()

	if err != nil {
		// Dump the command's output in case of failure.
		if output.Len() > 0 {
			fmt.Fprintf(os.Stderr, "==== \x1b[31mERROR\x1b[0m ====\n\x1b[31m%s\x1b[0m===============\n", output.String())
		}

		if errStr == "" {
			return errors.Wrapf(err, "%s %s", command, strings.Join(args, " "))
		}
		return errors.New(errStr)
	}

	return nil
}
