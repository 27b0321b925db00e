package main

import (
	"fmt"
	"time"

	"github.com/chazu/intcode/pkg/devices"
)

func cmdPaint(args []string, e *env) error {
	fs := newFlagSet("paint", "[-start 0|1] [program]")
	start := fs.Int64("start", e.m.Robot.Start, "Colour of the starting panel (0 black, 1 white)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *start != devices.Black && *start != devices.White {
		return fmt.Errorf("paint: start colour must be 0 or 1, got %d", *start)
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}

	r, err := devices.Paint(program, *start, runOptions(e.m, false)...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d panels painted\n", r.PaintedCount())
	fmt.Fprint(e.out, r.Render())
	return nil
}

func cmdArcade(args []string, e *env) error {
	fs := newFlagSet("arcade", "[-free] [-watch delay] [program]")
	free := fs.Bool("free", false, "Insert quarters and play until the game ends")
	watch := fs.Duration("watch", 0, "Draw the screen on every joystick read, pausing this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}
	opts := runOptions(e.m, false)

	if !*free {
		a, err := devices.Play(program, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "%d blocks\n", a.Blocks())
		return nil
	}

	var onFrame func(*devices.Arcade)
	if *watch > 0 {
		onFrame = func(a *devices.Arcade) {
			fmt.Fprint(e.out, "\033[H\033[2J", a.Render())
			time.Sleep(*watch)
		}
	}
	score, err := devices.FreePlay(program, onFrame, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "score %d\n", score)
	return nil
}

func cmdASCII(args []string, e *env) error {
	cfg := e.m.ASCII
	fs := newFlagSet("ascii", "[-main routine -a fn -b fn -c fn] [-video] [program]")
	mainRoutine := fs.String("main", cfg.Main, "Main movement routine, e.g. A,B,A,C")
	a := fs.String("a", cfg.A, "Movement function A")
	b := fs.String("b", cfg.B, "Movement function B")
	c := fs.String("c", cfg.C, "Movement function C")
	video := fs.Bool("video", cfg.Video, "Ask for the continuous video feed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}
	opts := runOptions(e.m, false)

	if *mainRoutine == "" {
		s, view, err := devices.Camera(program, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, view)
		fmt.Fprintf(e.out, "alignment %d\n", s.AlignmentSum())
		return nil
	}

	routine := devices.Routine{Main: *mainRoutine, A: *a, B: *b, C: *c, Video: *video}
	dust, err := devices.Movement(program, routine, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "dust %d\n", dust)
	return nil
}

func cmdBeam(args []string, e *env) error {
	cfg := e.m.Beam
	fs := newFlagSet("beam", "[-w n] [-h n] [-fit [-square n]] [program]")
	w := fs.Int64("w", cfg.Width, "Scan width")
	h := fs.Int64("h", cfg.Height, "Scan height")
	fit := fs.Bool("fit", false, "Find the closest square that fits inside the beam")
	square := fs.Int64("square", cfg.Square, "Square size for -fit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	program, _, err := loadProgram(fs, e)
	if err != nil {
		return err
	}
	opts := runOptions(e.m, false)

	if *fit {
		p, err := devices.FitSquare(program, *square, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "square at %s (%d)\n", p, p.X*10000+p.Y)
		return nil
	}
	n, err := devices.Scan(program, *w, *h, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d points affected\n", n)
	return nil
}
