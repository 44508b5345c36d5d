/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "chatters/internal/log"
	"chatters/internal/telemetry"
	"chatters/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// LayoutDumper is implemented by floorplan.Store.
type LayoutDumper interface {
	HasUnsavedChanges() bool
	Dump() ([]byte, error)
}

// Target describes where crash artifacts go and what state to rescue.
type Target struct {
	// Dir receives the report and layout dump; empty means os.TempDir().
	Dir string
	// Layout is dumped when it holds unsaved edits. May be nil.
	Layout LayoutDumper
}

// Recover captures a panic, logs it with the stack, writes a crash report
// and dumps an unsaved floor plan next to it.
//
// Usage: defer crash.Recover(target)
func Recover(t Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(t, r, stack)
		if err != nil {
			l.Error("write crash report failed", slog.Any("err", err))
		}
		if t.Layout != nil {
			if path, err := dumpLayout(t); err != nil {
				l.Error("layout dump failed", slog.Any("err", err))
			} else if path != "" {
				l.Info("unsaved layout dumped", slog.String("path", path))
				_, _ = fmt.Fprintf(os.Stderr, "Unsaved layout changes were written to: %s\n", path)
			}
		}

		_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
		_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
		exitFn(2)
	}
}

func crashDir(t Target) string {
	if t.Dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(t.Dir, 0o755)
	return t.Dir
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(t Target, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(crashDir(t), fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Chatters Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t.Layout != nil {
		_, _ = fmt.Fprintf(&buf, "UnsavedLayout: %t\n", t.Layout.HasUnsavedChanges())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// optionally upload the report (opt-in via config or env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// dumpLayout writes the unsaved floor plan. It returns "" when nothing was
// pending.
func dumpLayout(t Target) (string, error) {
	if !t.Layout.HasUnsavedChanges() {
		return "", nil
	}
	b, err := t.Layout.Dump()
	if err != nil {
		return "", err
	}
	path := filepath.Join(crashDir(t), fmt.Sprintf("layout-%s.json", stamp()))
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
