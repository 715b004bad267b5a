package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/capture"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/enrollment"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/vision"
)

var (
	runFrames  string
	runChildID string
	runName    string
	runTimeout time.Duration
	runAPIURL  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a guided enrollment against the enrollment API",
	Long: `Replays the frames in --frames as a camera feed, guides the subject through
the front, left, right, up and down poses and uploads one photo per pose.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrollment(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFrames, "frames", "f", "", "Directory of JPEG/PNG frames to replay as the camera feed")
	runCmd.Flags().StringVarP(&runChildID, "child", "c", "", "Child identifier to enroll")
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "Display name of the child")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 2*time.Minute, "Give up and cancel the session after this long")
	runCmd.Flags().StringVar(&runAPIURL, "api", "", "Enrollment API base URL (overrides ENROLL_API_URL)")

	_ = runCmd.MarkFlagRequired("frames")
	_ = runCmd.MarkFlagRequired("child")
	rootCmd.AddCommand(runCmd)
}

// progressObserver renders controller events on stderr. Guidance repeats
// every tick, so only changes are printed.
type progressObserver struct {
	mu          sync.Mutex
	bar         *progressbar.ProgressBar
	lastMessage string
	outcome     capture.EventType
}

func newProgressObserver() *progressObserver {
	return &progressObserver{
		bar: progressbar.NewOptions(domain.RequiredBuckets,
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		),
	}
}

func (o *progressObserver) Notify(e capture.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e.Type {
	case capture.EventAccepted:
		_ = o.bar.Set(len(e.Captured))
	case capture.EventCompleted, capture.EventCompleteFailed, capture.EventCancelled:
		o.outcome = e.Type
	}

	if e.Message == "" || e.Message == o.lastMessage {
		return
	}
	o.lastMessage = e.Message
	o.bar.Describe(e.Message)
}

func (o *progressObserver) Outcome() capture.EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

func runEnrollment(ctx context.Context) error {
	source, err := capture.NewDirectorySource(runFrames)
	if err != nil {
		return err
	}

	clientCfg := captureCfg.Client()
	if runAPIURL != "" {
		clientCfg.BaseURL = runAPIURL
	}
	client := enrollment.NewClient(clientCfg)

	observer := newProgressObserver()
	controller := capture.NewController(
		captureCfg.Controller(),
		client,
		source,
		vision.NewDefaultAnalyzer(),
		clock.New(),
		observer,
		logger,
	)

	if err := controller.Start(ctx, runChildID, runName); err != nil {
		return err
	}
	sessionID := controller.SessionID()

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	runErr := controller.Run(runCtx)
	if runErr != nil {
		// interrupted or timed out: tell the server before exiting
		controller.Cancel(context.Background())
	}
	controller.Wait()
	fmt.Fprintln(os.Stderr)

	switch observer.Outcome() {
	case capture.EventCompleted:
		fmt.Printf("enrollment %s completed\n", sessionID)
		return nil
	case capture.EventCompleteFailed:
		return fmt.Errorf("enrollment %s captured every pose but completion was not confirmed", sessionID)
	}

	if errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("enrollment %s timed out after %s", sessionID, runTimeout)
	}
	return fmt.Errorf("enrollment %s cancelled", sessionID)
}
