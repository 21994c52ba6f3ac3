/* Copyright 2025 Parceltrack Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package agent

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parceltrack/parceltrack/pkg/device/cmd/sync"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/registration"
	jsonlog "github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  # run in the foreground until interrupted
  parceltrack agent

  # log to the terminal instead of the log file
  parceltrack agent --stderr`

const (
	logMaxSizeMB  = 10
	logMaxBackups = 5
)

var (
	stderrFlag      bool
	walEveryFlag    time.Duration
	vacuumEveryFlag time.Duration
)

// NewCmd returns a new agent command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agent",
		Short:   "Keep the device in sync with the server until interrupted",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&stderrFlag, "stderr", false, "write the sync log to stderr instead of the log file")
	f.DurationVar(&walEveryFlag, "wal-checkpoint", 10*time.Minute, "interval between WAL checkpoints")
	f.DurationVar(&vacuumEveryFlag, "vacuum", 24*time.Hour, "interval between database vacuums")

	return cmd
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		ok, err := registration.IsRegistered(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("device is not registered. Run 'parceltrack register' first")
		}

		if !stderrFlag {
			path := infra.LogFilePath(ctx)
			w := jsonlog.NewFileWriter(path, logMaxSizeMB, logMaxBackups)
			prev := jsonlog.SetOutput(w)
			defer func() {
				jsonlog.SetOutput(prev)
				w.Close()
			}()

			log.Infof("logging to %s\n", path)
		}

		stopMaintenance, err := database.StartMaintenance(ctx.DB, walEveryFlag, vacuumEveryFlag)
		if err != nil {
			return errors.Wrap(err, "starting database maintenance")
		}
		defer stopMaintenance()

		sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Infof("agent running. Press Ctrl+C to stop\n")

		if err := sync.NewScheduler(ctx).Start(sigCtx); err != nil {
			return errors.Wrap(err, "running the scheduler")
		}

		log.Successf("agent stopped\n")

		return nil
	}
}
