package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"video-generator-service/internal/client"
	"video-generator-service/internal/entity"
)

type clientFactory func() *client.Client

func newSubmitCommand(newClient clientFactory) *cobra.Command {
	var duration int
	var wait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "submit <keyword>",
		Short: "Start a video job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			job, err := c.Generate(cmd.Context(), args[0], duration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			if !wait {
				return nil
			}
			return waitAndReport(cmd, c, job.ID, interval)
		},
	}
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Target length in minutes (server default 12)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow progress until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --wait")
	return cmd
}

func newStatusCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>...",
		Short: "Show job status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			jobs := make([]*entity.Job, 0, len(args))
			for _, id := range args {
				job, err := c.Status(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("status %s: %w", id, err)
				}
				jobs = append(jobs, job)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
			return nil
		},
	}
}

func newWaitCommand(newClient clientFactory) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "wait <job_id>",
		Short: "Follow a job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitAndReport(cmd, newClient(), args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval")
	return cmd
}

func newDownloadCommand(newClient clientFactory) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <job_id>",
		Short: "Save a finished video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if output == "" {
				output = id + ".mp4"
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := newClient().Download(cmd.Context(), id, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(output)
				if errors.Is(err, client.ErrVideoNotFound) {
					return fmt.Errorf("job %s has no video yet", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", output, humanBytes(n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default <job_id>.mp4)")
	return cmd
}

func waitAndReport(cmd *cobra.Command, c *client.Client, id string, interval time.Duration) error {
	out := cmd.OutOrStdout()
	last := ""
	job, err := c.Wait(cmd.Context(), id, interval, func(j *entity.Job) {
		if p := deref(j.Progress); p != last {
			fmt.Fprintf(out, "%s  %s\n", j.Status, p)
			last = p
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderJobs([]*entity.Job{job}))
	switch job.Status {
	case entity.StatusFailed:
		return fmt.Errorf("job %s failed: %s", id, deref(job.Error))
	case entity.StatusNotFound:
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}
