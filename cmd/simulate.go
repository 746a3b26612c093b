package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/actuator"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/timer"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <script.jsonl>",
	Short: "Replay a scripted frame sequence on a simulated clock",
	Long: `Replay a JSON-lines script against the access controller with a
simulated clock and print every transition. Nothing is sent to the lock.

Each line is one step:
  {"identity": "Alice", "repeat": 60}     frames carrying Alice's first enrolled sample
  {"embedding": [...], "faces": 1}        a frame with an explicit embedding
  {"faces": 0, "repeat": 10}              frames without a face
  {"faces": 2}                            a multi-face frame
  {"resolve": "Alice"}                    answer a multi-face prompt
  {"trigger": "confirm"}                  confirm, deny or begin_lock
  {"advance": "10s"}                      move the clock forward

Every frame also advances the clock by --frame-interval.

Examples:
  door-sentry simulate scenarios/unlock.jsonl
  door-sentry simulate --verbose --frame-interval 50ms scenarios/cooldown.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Duration("frame-interval", 33*time.Millisecond, "Simulated time between frames")
	simulateCmd.Flags().Bool("verbose", false, "Also print progress, preview and countdown notices")
}

// scriptStep is one line of a simulation script.
type scriptStep struct {
	Identity  string    `json:"identity,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Faces     *int      `json:"faces,omitempty"`
	Error     string    `json:"error,omitempty"`
	Repeat    int       `json:"repeat,omitempty"`
	Resolve   string    `json:"resolve,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Advance   string    `json:"advance,omitempty"`
}

// simulation drives a controller deterministically on a fake clock.
type simulation struct {
	ctrl     *access.Controller
	clock    *timer.Fake
	start    time.Time
	enrolled map[string][][]float32
	interval time.Duration
	out      io.Writer
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enrolled, err := gallery.LoadFile(cfg.Gallery.EnrollmentPath)
	if err != nil {
		return err
	}
	store, err := gallery.New(enrolled, galleryOptions(cfg))
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()

	sim, err := newSimulation(store, enrolled, accessOptions(cfg), os.Stdout, mustGetBool(cmd, "verbose"))
	if err != nil {
		return err
	}
	sim.interval = mustGetDuration(cmd, "frame-interval")

	return sim.run(cmd.Context(), f)
}

func newSimulation(store *gallery.Store, enrolled map[string][][]float32, opts access.Options, out io.Writer, verbose bool) (*simulation, error) {
	clock := timer.NewFake(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	printer := &noticePrinter{out: out, start: clock.Now(), verbose: verbose}

	ctrl, err := access.NewController(opts, access.Deps{
		Classifier: classifier.New(store),
		Scheduler:  clock,
		Actuator:   &printingActuator{out: out},
		Notices:    printer,
	})
	if err != nil {
		return nil, err
	}

	return &simulation{
		ctrl:     ctrl,
		clock:    clock,
		start:    clock.Now(),
		enrolled: enrolled,
		interval: 33 * time.Millisecond,
		out:      out,
	}, nil
}

func (s *simulation) run(ctx context.Context, r io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var step scriptStep
		if err := json.Unmarshal(raw, &step); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := s.apply(ctx, step); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	st := s.ctrl.Status()
	fmt.Fprintf(s.out, "final state: %s (frames=%d, commands=%d)\n", st.State, st.Frames, st.Commands)
	return nil
}

func (s *simulation) apply(ctx context.Context, step scriptStep) error {
	switch {
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("invalid advance: %w", err)
		}
		s.clock.Advance(d)
		s.ctrl.Drain(ctx)
		return nil

	case step.Trigger != "":
		reply := s.ctrl.Submit(access.Trigger(step.Trigger))
		s.ctrl.Drain(ctx)
		if err := <-reply; err != nil {
			fmt.Fprintf(s.out, "%s  trigger %s rejected: %v\n", s.elapsed(), step.Trigger, err)
		}
		return nil

	case step.Resolve != "":
		vec, err := s.sampleOf(step.Resolve)
		if err != nil {
			return err
		}
		if err := s.ctrl.ResolveFaces(vec); err != nil {
			return err
		}
		s.ctrl.Drain(ctx)
		return nil
	}

	frame, err := s.frameOf(step)
	if err != nil {
		return err
	}
	for range max(step.Repeat, 1) {
		if err := s.ctrl.SubmitFrame(frame); err != nil {
			return err
		}
		s.ctrl.Drain(ctx)
		s.clock.Advance(s.interval)
		s.ctrl.Drain(ctx)
	}
	return nil
}

func (s *simulation) frameOf(step scriptStep) (classifier.Frame, error) {
	f := classifier.Frame{Faces: 1, Embedding: step.Embedding}
	if step.Faces != nil {
		f.Faces = *step.Faces
	}
	if step.Error != "" {
		f.Err = errors.New(step.Error)
	}
	if step.Identity != "" {
		vec, err := s.sampleOf(step.Identity)
		if err != nil {
			return f, err
		}
		f.Embedding = vec
	}
	return f, nil
}

func (s *simulation) sampleOf(identity string) ([]float32, error) {
	samples := s.enrolled[identity]
	if len(samples) == 0 {
		return nil, fmt.Errorf("identity %q is not enrolled", identity)
	}
	return samples[0], nil
}

func (s *simulation) elapsed() string {
	return fmt.Sprintf("[+%8.3fs]", s.clock.Now().Sub(s.start).Seconds())
}

// noticePrinter renders notices as one line each.
type noticePrinter struct {
	out     io.Writer
	start   time.Time
	verbose bool
}

func (p *noticePrinter) Publish(n access.Notice) {
	at := fmt.Sprintf("[+%8.3fs]", n.At.Sub(p.start).Seconds())
	switch n.Kind {
	case access.NoticeState:
		if n.Identity != "" {
			fmt.Fprintf(p.out, "%s  -> %s (%s)\n", at, n.State, n.Identity)
		} else {
			fmt.Fprintf(p.out, "%s  -> %s\n", at, n.State)
		}
	case access.NoticeProgress, access.NoticePreview, access.NoticeCountdown:
		if p.verbose {
			fmt.Fprintf(p.out, "%s     %s %s %d\n", at, n.Kind, n.Identity, n.Remaining)
		}
	case access.NoticeCooldownActive:
		if p.verbose {
			fmt.Fprintf(p.out, "%s     cooldown %ds remaining\n", at, n.Remaining)
		}
	case access.NoticeDisambiguationNeeded:
		fmt.Fprintf(p.out, "%s     %d faces in view, waiting for an operator to pick one\n", at, n.Faces)
	default:
		fmt.Fprintf(p.out, "%s     %s %s %s\n", at, n.Kind, n.Identity, n.Message)
	}
}

// printingActuator reports commands instead of driving a lock.
type printingActuator struct {
	out io.Writer
}

func (a *printingActuator) Send(_ context.Context, cmd actuator.Command) error {
	if !cmd.Valid() {
		return actuator.ErrInvalidCommand
	}
	fmt.Fprintf(a.out, "             actuator: %s\n", cmd)
	return nil
}
