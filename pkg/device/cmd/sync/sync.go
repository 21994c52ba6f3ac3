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

package sync

import (
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/scheduler"
	"github.com/parceltrack/parceltrack/pkg/device/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  parceltrack sync`

// NewCmd returns a new sync command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"s"},
		Short:   "Run one sync cycle with the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

// NewScheduler builds a scheduler driving the sync engine of the context
func NewScheduler(ctx devctx.DeviceCtx) *scheduler.Scheduler {
	engine := syncer.New(ctx.DB, ctx.Client, ctx.Store, ctx.Clock)

	return scheduler.New(engine, ctx.DB, ctx.SyncInterval)
}

func printReport(r scheduler.Report) {
	for _, p := range r.Phases {
		if p.Err != nil {
			log.Errorf("%s: %s\n", p.Phase, p.Err.Error())
			continue
		}

		log.Infof("%s: %d applied, %d acknowledged, %d skipped\n", p.Phase, p.Result.Applied, p.Result.Acknowledged, p.Result.Skipped)
		for _, w := range p.Result.Warnings {
			log.Warnf("%s\n", w.Error())
		}
	}
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		report := NewScheduler(ctx).Tick(cmd.Context())
		printReport(report)

		if err := report.Err(); err != nil {
			return errors.Wrap(err, "syncing")
		}

		log.Successf("synced\n")

		return nil
	}
}
