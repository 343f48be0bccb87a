package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent persisted summary runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	defer closeStore()

	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no summary runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tRan At (UTC)\tDestinations\tSolutions\tNIGHT\tSuccessful\tAlready\tFailed\tDeduped")

	for _, run := range runs {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%d\t%d\t%s\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.RanAt.UTC().Format(time.RFC3339),
			run.TotalDestinations,
			run.TotalSolutions,
			run.TotalEstimatedNight.StringFixed(0),
			run.TotalSuccessful,
			run.TotalAlreadySubmitted,
			run.TotalFailed,
			run.DuplicatesRemoved,
		)
	}

	writer.Flush()
	return nil
}
