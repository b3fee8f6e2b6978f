package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/term"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/gopherlua"
	"github.com/wippyai/script-bridge/lifecycle"
	"github.com/wippyai/script-bridge/marshal"
	"github.com/wippyai/script-bridge/registry"
)

// vector is the demo type the inspector registers on startup.
type vector struct {
	X, Y, Z float64
}

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to a Lua script to run against the demo types")
		eval        = flag.String("eval", "", "Inline Lua chunk to run")
		interactive = flag.Bool("i", false, "Interactive stack inspector with TUI")
		debug       = flag.Bool("log", false, "Enable debug logging")
	)
	flag.Parse()

	if *debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine.SetLogger(l)
		lifecycle.SetLogger(l)
		gopherlua.SetLogger(l)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	src := *eval
	if *scriptFile != "" {
		data, err := os.ReadFile(*scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		src = string(data)
	}
	if src == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect -script <file.lua>  run a script against the demo types")
		fmt.Fprintln(os.Stderr, "       inspect -eval '<lua code>'  run an inline chunk")
		fmt.Fprintln(os.Stderr, "       inspect -i                  interactive stack inspector")
		os.Exit(1)
	}

	if err := runScript(src); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runScript(src string) error {
	eng := gopherlua.New()
	defer eng.Close()

	reg := registry.New()
	ch, err := marshal.New(eng, reg)
	if err != nil {
		return err
	}
	if err := registerDemoTypes(reg); err != nil {
		return err
	}
	bindDemoFunctions(eng, ch)

	if err := eng.DoString(src); err != nil {
		return err
	}

	// Anything the chunk returned is still on the stack; read it back
	// through the channel.
	if top := eng.Top(); top > 0 {
		fmt.Printf("Returned %d value(s):\n", top)
		for i := 1; i <= top; i++ {
			fmt.Printf("  [%d] %s\n", i, describeSlot(ch, scriptbridge.Slot(i)))
		}
	}
	return nil
}

func registerDemoTypes(reg *registry.Registry) error {
	_, err := registry.Register(reg, "vector",
		func(a, b vector) bool { return a == b },
		nil)
	return err
}

// bindDemoFunctions exposes vector construction and a host computation
// to scripts. Both read their arguments through the channel.
func bindDemoFunctions(eng *gopherlua.Engine, ch *marshal.Channel) {
	L := eng.State()

	L.SetGlobal("vec", L.NewFunction(func(L *lua.LState) int {
		var x, y, z float64
		if err := ch.ReadArgs(&x, &y, &z); err != nil {
			L.RaiseError("vec: %v", err)
			return 0
		}
		if _, err := marshal.Push(ch, vector{X: x, Y: y, Z: z}); err != nil {
			L.RaiseError("vec: %v", err)
			return 0
		}
		return 1
	}))

	L.SetGlobal("magnitude", L.NewFunction(func(L *lua.LState) int {
		var v vector
		if err := ch.ReadArgs(&v); err != nil {
			L.RaiseError("magnitude: %v", err)
			return 0
		}
		eng.PushNumber(math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
		return 1
	}))
}

func describeSlot(ch *marshal.Channel, slot scriptbridge.Slot) string {
	st := ch.Stack()
	switch st.KindAt(slot) {
	case scriptbridge.KindNil:
		return "nil"
	case scriptbridge.KindBool:
		b, _ := st.BoolAt(slot)
		return fmt.Sprintf("%v", b)
	case scriptbridge.KindNumber:
		n, _ := st.NumberAt(slot)
		return fmt.Sprintf("%g", n)
	case scriptbridge.KindString:
		s, _ := st.StringAt(slot)
		return fmt.Sprintf("%q", s)
	case scriptbridge.KindOpaque:
		tag, ok := st.TagAt(slot)
		if !ok {
			return "opaque (foreign)"
		}
		name := fmt.Sprintf("tag %d", tag)
		if desc, found := ch.Registry().LookupTag(tag); found {
			name = desc.Name()
		}
		if payload, found := st.PayloadAt(slot); found {
			return fmt.Sprintf("%s %+v", name, payload)
		}
		return name
	default:
		return "empty"
	}
}
