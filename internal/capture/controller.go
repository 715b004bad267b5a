package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/enrollment"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/vision"
)

// SessionClient is the session authority as seen by the controller.
type SessionClient interface {
	Start(ctx context.Context, childID, name string) (*enrollment.StartResponse, error)
	UploadFrame(ctx context.Context, sessionID string, bucket domain.PoseBucket, quality float64, image []byte) (*enrollment.FrameResponse, error)
	Complete(ctx context.Context, sessionID string) (*enrollment.AckResponse, error)
	Cancel(ctx context.Context, sessionID string) (*enrollment.AckResponse, error)
}

// FrameSource supplies decoded frames. Device handling is the source's
// concern.
type FrameSource interface {
	Ready() bool
	Frame(ctx context.Context) (image.Image, error)
	Release() error
}

// FrameAnalyzer turns a working frame into a detection result.
type FrameAnalyzer interface {
	Analyze(f *vision.Frame) domain.DetectionResult
}

type Config struct {
	TickInterval   time.Duration
	Cooldown       time.Duration
	MinConfidence  float64
	MinQuality     float64
	JPEGQuality    int
	WorkingWidth   int
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   100 * time.Millisecond,
		Cooldown:       2 * time.Second,
		MinConfidence:  0.9,
		MinQuality:     0.85,
		JPEGQuality:    vision.DefaultJPEGQuality,
		WorkingWidth:   vision.DefaultWorkingWidth,
		RequestTimeout: 5 * time.Second,
	}
}

// Controller drives one guided enrollment at a time. Accepted buckets are
// recorded only when the session authority confirms them.
type Controller struct {
	cfg      Config
	client   SessionClient
	source   FrameSource
	analyzer FrameAnalyzer
	clock    clock.Clock
	observer Observer
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	starting  bool
	sessionID string
	// epoch changes whenever a session starts or leaves Active, so upload
	// results from an earlier session are discarded.
	epoch    uint64
	progress domain.PoseProgress
	cooldown map[domain.PoseBucket]time.Time
	stop     chan struct{}

	uploads sync.WaitGroup
}

func NewController(
	cfg Config,
	client SessionClient,
	source FrameSource,
	analyzer FrameAnalyzer,
	clk clock.Clock,
	observer Observer,
	logger *slog.Logger,
) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:      cfg,
		client:   client,
		source:   source,
		analyzer: analyzer,
		clock:    clk,
		observer: observer,
		logger:   logger,
		cooldown: make(map[domain.PoseBucket]time.Time),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Progress returns a snapshot of the accepted buckets.
func (c *Controller) Progress() domain.PoseProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Start opens a new session. It may be called from Idle, Completed or
// Cancelled; on failure the controller stays where it was.
func (c *Controller) Start(ctx context.Context, childID, name string) error {
	if childID == "" {
		return fmt.Errorf("%w: %w", ErrSessionInitFailure, ErrChildIDRequired)
	}

	c.mu.Lock()
	if c.state == StateActive || c.starting {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if !c.source.Ready() {
		return fmt.Errorf("%w: %w", ErrSessionInitFailure, ErrSourceNotReady)
	}

	resp, err := c.client.Start(ctx, childID, name)
	if err != nil {
		c.logger.Error("failed to start enrollment session", "child_id", childID, "error", err)
		return fmt.Errorf("%w: %w", ErrSessionInitFailure, err)
	}

	c.mu.Lock()
	c.state = StateActive
	c.sessionID = resp.SessionID
	c.epoch++
	c.progress.Reset()
	c.cooldown = make(map[domain.PoseBucket]time.Time)
	c.stop = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info("enrollment session started", "session_id", resp.SessionID, "child_id", childID)
	c.observer.Notify(Event{Type: EventStarted, SessionID: resp.SessionID, Message: resp.Message})
	return nil
}

// ShouldCapture evaluates r against the capture gates without side effects.
func (c *Controller) ShouldCapture(r domain.DetectionResult, now time.Time) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluate(r, now)
}

// Tick reads and analyzes one frame and, if every gate passes, marks the
// bucket's cooldown and starts an asynchronous upload.
func (c *Controller) Tick(ctx context.Context) (Decision, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return Decision{Reason: ReasonInactive}, nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	img, err := c.source.Frame(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read frame: %w", err)
	}
	frame, err := vision.NewFrame(img, c.cfg.WorkingWidth)
	if err != nil {
		return Decision{}, fmt.Errorf("build frame: %w", err)
	}
	result := c.analyzer.Analyze(frame)
	now := c.clock.Now()

	c.mu.Lock()
	if c.state != StateActive || c.epoch != epoch {
		c.mu.Unlock()
		return Decision{Reason: ReasonInactive, Result: result}, nil
	}
	d := c.evaluate(result, now)
	sessionID := c.sessionID
	if d.Capture {
		c.cooldown[d.Bucket] = now
	}
	c.mu.Unlock()

	if !d.Capture {
		c.observer.Notify(Event{Type: EventGuidance, SessionID: sessionID, Bucket: d.Bucket, Message: d.Message})
		return d, nil
	}

	payload, err := frame.EncodeJPEG(c.cfg.JPEGQuality)
	if err != nil {
		return d, fmt.Errorf("encode capture: %w", err)
	}

	c.observer.Notify(Event{Type: EventUploading, SessionID: sessionID, Bucket: d.Bucket, Message: d.Message})
	c.uploads.Add(1)
	go c.upload(context.WithoutCancel(ctx), epoch, sessionID, d.Bucket, result.Quality, payload)
	return d, nil
}

func (c *Controller) upload(ctx context.Context, epoch uint64, sessionID string, bucket domain.PoseBucket, quality float64, payload []byte) {
	defer c.uploads.Done()

	resp, err := c.client.UploadFrame(ctx, sessionID, bucket, quality, payload)

	c.mu.Lock()
	if c.state != StateActive || c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding upload result for inactive session", "session_id", sessionID, "bucket", bucket.String())
		return
	}

	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("frame upload failed", "session_id", sessionID, "bucket", bucket.String(), "error", err)
		c.observer.Notify(Event{
			Type:      EventUploadFailed,
			SessionID: sessionID,
			Bucket:    bucket,
			Message:   "Could not send the photo, retrying shortly",
			Err:       err,
		})
		return
	}

	if !resp.Accepted {
		c.mu.Unlock()
		c.logger.Info("frame rejected", "session_id", sessionID, "bucket", bucket.String(), "message", resp.Message)
		c.observer.Notify(Event{Type: EventRejected, SessionID: sessionID, Bucket: bucket, Message: resp.Message})
		return
	}

	c.progress.Add(bucket)
	captured := c.progress.Buckets()
	percent := c.progress.Percent()
	completed := resp.Completed && c.progress.Complete()
	if completed {
		c.leaveActive(StateCompleted)
	}
	c.mu.Unlock()

	c.observer.Notify(Event{
		Type:      EventAccepted,
		SessionID: sessionID,
		Bucket:    bucket,
		Message:   resp.Message,
		Progress:  percent,
		Captured:  captured,
	})

	if resp.Completed && !completed {
		c.logger.Warn("server reported completion before all buckets were accepted locally",
			"session_id", sessionID, "captured", len(captured))
	}
	if completed {
		c.finish(ctx, sessionID)
	}
}

// finish confirms completion with the server and releases the source.
func (c *Controller) finish(ctx context.Context, sessionID string) {
	c.releaseSource()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if _, err := c.client.Complete(ctx, sessionID); err != nil {
		c.logger.Error("failed to confirm enrollment completion", "session_id", sessionID, "error", err)
		c.observer.Notify(Event{
			Type:      EventCompleteFailed,
			SessionID: sessionID,
			Message:   "Enrollment finished but could not be confirmed",
			Progress:  100,
			Err:       err,
		})
		return
	}

	c.logger.Info("enrollment session completed", "session_id", sessionID)
	c.observer.Notify(Event{Type: EventCompleted, SessionID: sessionID, Message: "Enrollment completed", Progress: 100})
}

// Cancel stops the session immediately and clears local progress. The
// server is told in the background; its failure is only logged.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	c.leaveActive(StateCancelled)
	c.mu.Unlock()

	c.releaseSource()
	c.logger.Info("enrollment session cancelled", "session_id", sessionID)
	c.observer.Notify(Event{Type: EventCancelled, SessionID: sessionID, Message: "Enrollment cancelled"})

	c.uploads.Add(1)
	go func() {
		defer c.uploads.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RequestTimeout)
		defer cancel()

		if _, err := c.client.Cancel(ctx, sessionID); err != nil {
			c.logger.Warn("failed to cancel enrollment session", "session_id", sessionID, "error", err)
		}
	}()
}

// leaveActive moves out of Active and resets per-session state. Callers
// hold c.mu.
func (c *Controller) leaveActive(next State) {
	c.state = next
	c.epoch++
	c.progress.Reset()
	c.cooldown = make(map[domain.PoseBucket]time.Time)
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Controller) releaseSource() {
	if err := c.source.Release(); err != nil {
		c.logger.Warn("failed to release frame source", "error", err)
	}
}

// Run ticks at the configured interval until the session leaves Active or
// ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	stop := c.stop
	sessionID := c.sessionID
	c.mu.Unlock()

	ticker := c.clock.Ticker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.logger.Info("capture loop started", "session_id", sessionID, "interval", c.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("capture loop stopped", "session_id", sessionID, "reason", ctx.Err())
			return ctx.Err()
		case <-stop:
			c.logger.Info("capture loop stopped", "session_id", sessionID, "state", c.State().String())
			return nil
		case <-ticker.C:
			if _, err := c.Tick(ctx); err != nil {
				c.logger.Warn("capture tick failed", "session_id", sessionID, "error", err)
			}
		}
	}
}

// Wait blocks until in-flight uploads and background cancels finish.
func (c *Controller) Wait() {
	c.uploads.Wait()
}
