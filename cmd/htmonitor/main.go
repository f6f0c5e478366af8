// cmd/htmonitor/main.go - Interactive cache/class/DL inspector
//
// A small command-line monitor for poking at a live Engine: list cached
// screens, dump a form's bitmap, force a poach, and step a DL through its
// lifecycle by hand. Grounded on the teacher's debug_monitor.go (a small
// command-driven state machine sitting on top of the emulated machine) and
// terminal_io.go (raw keystroke handling); here golang.org/x/term supplies
// the raw-mode line editor instead of a hand-rolled input ring buffer, since
// this tool talks to a real terminal rather than an emulated MMIO device.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	halftone "github.com/otley-rip/htcore"
)

func main() {
	engine := halftone.NewEngine(halftone.DefaultEngineConfig())
	defer engine.Close()

	seedDemoState(engine)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		runScripted(engine, os.Stdin, os.Stdout)
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatalf("htmonitor: make raw: %v", err)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "htmonitor> ")

	fmt.Fprintln(t, "htcore interactive monitor. Type 'help' for commands, 'quit' to exit.")
	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		if handleLine(engine, t, line) {
			return
		}
	}
}

// runScripted drives the same command loop over plain stdin/stdout, used
// when stdin isn't a terminal (piped input, non-interactive test harness).
func runScripted(engine *halftone.Engine, r io.Reader, w io.Writer) {
	sc := newLineScanner(r)
	for {
		line, ok := sc.next()
		if !ok {
			return
		}
		if handleLine(engine, w, line) {
			return
		}
	}
}

// seedDemoState installs a couple of cached screens so a freshly started
// monitor has something to inspect immediately, the way the teacher's
// monitor always has the currently-running machine's CPUs registered.
func seedDemoState(e *halftone.Engine) {
	basis := halftone.CellBasis{R1: 8, R2: 0, R3: 0, R4: 8, XDims: 8, YDims: 8}
	for i, name := range []string{"SimpleDot", "Line"} {
		spotFn, ok := e.SpotFns.Get(name)
		if !ok {
			continue
		}
		xcoords, ycoords, halfys, err := halftone.GenerateCoordsFromSpot(spotFn, basis, 64, true)
		if err != nil {
			continue
		}
		def := halftone.ScreenDef{
			SpotName:     name,
			ObjType:      halftone.ObjFill,
			ColorantName: "K",
			CellBasis:    basis,
			EXDims:       basis.XDims * 2,
			EYDims:       basis.YDims * 2,
			DepthShift:   halftone.Depth1,
			Notones:      32,
			GenerateCoords: func() ([]int, []int, []int, []int, error) {
				return xcoords, ycoords, nil, halfys, nil
			},
		}
		if _, err := e.InsertScreen(i+1, halftone.ObjFill, 0, def); err != nil {
			continue
		}
	}
}

// handleLine executes one monitor command and reports whether the session
// should end.
func handleLine(e *halftone.Engine, w io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		printHelp(w)
	case "quit", "exit":
		return true
	case "screens":
		cmdScreens(e, w)
	case "dump":
		cmdDump(e, w, args)
	case "poach":
		cmdPoach(e, w, args)
	case "dl":
		cmdDL(e, w, args)
	default:
		fmt.Fprintf(w, "unknown command %q; type 'help'\n", cmd)
	}
	return false
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `commands:
  screens                              list every cached screen
  dump <spot> <type> <ci> <dl> <tint>  render a cached form as ASCII art
  poach <spot> <type> <ci> <dl> <tint> force get_nearest to resolve a form
  dl introduce <n>                     introduce DL n
  dl handoff <n>                       hand off DL n to the renderer
  dl start <n>                         start_sheet for DL n
  dl end <n>                           end_sheet for DL n
  dl retire <n>                        retire DL n
  dl flush <n>                         flush up to DL n
  dl state <n>                         print DL n's lifecycle state
  quit                                 leave the monitor
`)
}

func cmdScreens(e *halftone.Engine, w io.Writer) {
	entries := e.Cache.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "(cache empty)")
		return
	}
	for key, s := range entries {
		fmt.Fprintf(w, "spot=%d type=%v colorant=%d -> %q halftype=%v refcount=%d notones=%d dls=%v\n",
			key.Spot, key.ObjType, key.Colorant, s.SpotName, s.HalfType, s.RefCount(), s.Notones, s.LiveDLs())
	}
}

func lookupArgs(e *halftone.Engine, args []string) (*halftone.Screen, halftone.EraseNr, int, error) {
	if len(args) != 5 {
		return nil, 0, 0, fmt.Errorf("expected <spot> <type> <ci> <dl> <tint>")
	}
	spot, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, 0, 0, err
	}
	objType, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, 0, 0, err
	}
	ci, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, 0, 0, err
	}
	dl, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, 0, 0, err
	}
	tint, err := strconv.Atoi(args[4])
	if err != nil {
		return nil, 0, 0, err
	}
	s, ok := e.LookupScreen(spot, halftone.ObjectType(objType), ci)
	if !ok {
		return nil, 0, 0, fmt.Errorf("no screen at spot=%d type=%d colorant=%d", spot, objType, ci)
	}
	return s, halftone.EraseNr(dl), tint, nil
}

func cmdDump(e *halftone.Engine, w io.Writer, args []string) {
	s, dl, tint, err := lookupArgs(e, args)
	if err != nil {
		fmt.Fprintln(w, "dump:", err)
		return
	}
	f, ok := s.GetForm(dl, tint)
	if !ok || f == nil {
		fmt.Fprintln(w, "dump: no resolved form for that (dl, tint); try 'poach' first")
		return
	}
	printFormArt(w, f)
}

func printFormArt(w io.Writer, f *halftone.Form) {
	fmt.Fprintf(w, "form %dx%d, %d bytes/row\n", f.Width, f.Height, f.LineBytes)
	rows := f.Height
	if rows > 32 {
		rows = 32
	}
	cols := f.Width
	if cols > 96 {
		cols = 96
	}
	for y := 0; y < rows; y++ {
		var sb strings.Builder
		for x := 0; x < cols; x++ {
			bitPos := x
			byteOff := (y*f.LineBytes*8 + bitPos) / 8
			bitOff := uint((y*f.LineBytes*8 + bitPos) % 8)
			if byteOff >= len(f.Pixels) {
				break
			}
			if (f.Pixels[byteOff]>>bitOff)&1 != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

func cmdPoach(e *halftone.Engine, w io.Writer, args []string) {
	s, dl, tint, err := lookupArgs(e, args)
	if err != nil {
		fmt.Fprintln(w, "poach:", err)
		return
	}
	e.MarkScreenKept(s, dl)
	f, err := e.ResolveForm(s, dl, tint)
	if err != nil {
		fmt.Fprintln(w, "poach: resolve failed:", err)
		return
	}
	fmt.Fprintf(w, "poach: resolved form %dx%d (initialized=%v)\n", f.Width, f.Height, f.Initialized)
}

func cmdDL(e *halftone.Engine, w io.Writer, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(w, "dl: expected <subcommand> <n>")
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(w, "dl: invalid DL number:", err)
		return
	}
	dl := halftone.EraseNr(n)
	switch args[0] {
	case "introduce":
		err = e.Introduce(dl)
	case "handoff":
		err = e.Handoff(dl)
	case "start":
		err = e.StartSheet(dl, nil)
	case "end":
		err = e.EndSheet(dl, true)
	case "retire":
		e.Retire(dl)
	case "flush":
		e.Flush(dl)
	case "state":
		fmt.Fprintln(w, e.DL.State(dl))
		return
	default:
		fmt.Fprintln(w, "dl: unknown subcommand", args[0])
		return
	}
	if err != nil {
		fmt.Fprintln(w, "dl:", err)
		return
	}
	fmt.Fprintln(w, "ok")
}

// lineScanner is a minimal line reader used for the non-terminal fallback,
// avoiding a bufio.Scanner dependency on a *os.File specifically so
// runScripted can take any io.Reader.
type lineScanner struct {
	r   io.Reader
	buf []byte
}

func newLineScanner(r io.Reader) *lineScanner { return &lineScanner{r: r} }

func (s *lineScanner) next() (string, bool) {
	for {
		if i := indexByte(s.buf, '\n'); i >= 0 {
			line := string(s.buf[:i])
			s.buf = s.buf[i+1:]
			return strings.TrimRight(line, "\r"), true
		}
		chunk := make([]byte, 4096)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			if len(s.buf) > 0 {
				line := string(s.buf)
				s.buf = nil
				return line, true
			}
			return "", false
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
